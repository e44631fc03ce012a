package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level        string        `yaml:"level" default:"info"`
		Format       string        `yaml:"format" default:"console"`
		Output       string        `yaml:"output" default:"stdout"`
		CollectTopic string        `yaml:"collect_topic" default:"coinscope.logs"`
		CollectEvery time.Duration `yaml:"collect_every" default:"30s"`
		CollectMax   int           `yaml:"collect_max" default:"100"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		DisableCORS     bool          `yaml:"disable_cors"`
	} `yaml:"server"`
	Metrics struct {
		Disabled bool   `yaml:"disabled"`
		Path     string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size" default:"200"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"coinscope.ticks"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"coinscope-bars"`
			OffsetReset string        `yaml:"offset_reset" default:"earliest"`
			Workers     int           `yaml:"workers" default:"4"`
			BufferSize  int           `yaml:"buffer_size" default:"1024"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"coinscope"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		Host           string        `yaml:"host" default:"localhost"`
		Port           int           `yaml:"port" default:"5432"`
		Database       string        `yaml:"database" default:"coinscope"`
		User           string        `yaml:"user" default:"postgres"`
		Password       string        `yaml:"password"`
		SSLMode        string        `yaml:"ssl_mode" default:"disable"`
		MaxConns       int32         `yaml:"max_conns" default:"8"`
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"5s"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"2"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	} `yaml:"queue"`
	Kraken struct {
		RESTURL        string        `yaml:"rest_url" default:"https://api.kraken.com"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.kraken.com/v2"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"10s"`
	} `yaml:"kraken"`
	Resources struct {
		MarketDir    string `yaml:"market_dir" default:"resources/market"`
		ChainDir     string `yaml:"chain_dir" default:"resources/chain"`
		DeveloperDir string `yaml:"developer_dir" default:"resources/developer"`
		SocialDir    string `yaml:"social_dir" default:"resources/social"`
	} `yaml:"resources"`
	Analysis struct {
		Granularity   time.Duration `yaml:"granularity" default:"30m"`
		StoreLookback int           `yaml:"store_lookback" default:"600"`
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"60s"`
		Windows       struct {
			SOPRSmooth      int `yaml:"sopr_smooth"`
			SentimentSmooth int `yaml:"sentiment_smooth"`
			Oscillator      int `yaml:"oscillator"`
			Band            int `yaml:"band"`
			Session         int `yaml:"session"`
			Volatility      int `yaml:"volatility"`
			Daily           int `yaml:"daily"`
			CommitAccum     int `yaml:"commit_accum"`
			DevBaseline     int `yaml:"dev_baseline"`
		} `yaml:"windows"`
	} `yaml:"analysis"`
	Sentiment struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"sentiment"`
	Advisory struct {
		Enabled    bool          `yaml:"enabled"`
		BaseURL    string        `yaml:"base_url" default:"https://api.openai.com/v1"`
		Model      string        `yaml:"model" default:"gpt-4o"`
		APIKey     string        `yaml:"api_key"`
		MaxTokens  int           `yaml:"max_tokens" default:"512"`
		Timeout    time.Duration `yaml:"timeout" default:"30s"`
		LockTTL    time.Duration `yaml:"lock_ttl" default:"60s"`
		RefreshTTL time.Duration `yaml:"refresh_ttl" default:"2m"`
		Interval   time.Duration `yaml:"interval" default:"30m"`
	} `yaml:"advisory"`
}

// parse reads a YAML configuration file and fills unset fields with their
// declared defaults. Validation happens separately so env overrides can be
// merged first.
func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables before validating, so secrets can live outside the file.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Kraken.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Advisory.APIKey = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Kraken.Symbols) == 0 {
		return fmt.Errorf("kraken.symbols cannot be empty")
	}
	if c.Analysis.Granularity <= 0 {
		return fmt.Errorf("analysis.granularity must be positive")
	}
	if c.Advisory.Enabled && c.Advisory.APIKey == "" {
		return fmt.Errorf("advisory.api_key is required when advisory is enabled")
	}
	return nil
}
