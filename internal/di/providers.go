package di

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"CoinScope/internal/analysis"
	domrepo "CoinScope/internal/domain/repository"
	domservice "CoinScope/internal/domain/service"
	"CoinScope/internal/handler/api"
	mid "CoinScope/internal/middleware"
	internalrepo "CoinScope/internal/repository"
	icache "CoinScope/internal/service/cache"
	"CoinScope/internal/service/stream"
	"CoinScope/internal/services/advisor"
	"CoinScope/internal/services/marketdata"
	"CoinScope/internal/services/scoring"
	"CoinScope/internal/usecase"
	pkgcache "CoinScope/pkg/cache"
	pkgch "CoinScope/pkg/clickhouse"
	"CoinScope/pkg/config"
	xhttp "CoinScope/pkg/http"
	pkgkafka "CoinScope/pkg/kafka"
	applogger "CoinScope/pkg/logger"
	pkgmetrics "CoinScope/pkg/metrics"
	pkgpg "CoinScope/pkg/postgres"
	pkgqueue "CoinScope/pkg/queue"
	"CoinScope/pkg/server"
)

const initSchemaTimeout = 10 * time.Second

// AdviseQueue is the redis worker queue consuming advice generation jobs.
type AdviseQueue *pkgqueue.RedisQueue

// LogQueue is the producer-only redis queue carrying aggregated log batches.
type LogQueue *pkgqueue.RedisQueue

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// database exists. Tables are created by the stores that own them.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initSchemaTimeout)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvidePostgresClient creates the Postgres client for advice persistence.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithMaxConns(cfg.Postgres.MaxConns),
		pkgpg.WithConnectTimeout(cfg.Postgres.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideRedisClient creates the shared redis client for the job queues.
// Returns nil when redis is disabled; queue consumers degrade gracefully.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// selected.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the tick consumer when the kafka backend is
// selected.
func ProvideKafkaConsumer(cfg *config.Config, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.OffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			m.RecordError("kafka_consume")
		},
	})
	return consumer, nil
}

// ProvideTickStore creates ClickHouse tick storage and its table.
func ProvideTickStore(ch *pkgch.Client, cfg *config.Config) (domrepo.TickStore, error) {
	store := internalrepo.NewClickHouseTickStore(ch, cfg.ClickHouse.Database+".ticks")
	ctx, cancel := context.WithTimeout(context.Background(), initSchemaTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("tick store init: %w", err)
	}
	return store, nil
}

// ProvideBarStore creates ClickHouse bar storage and its per-timeframe tables.
func ProvideBarStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (domrepo.BarStore, error) {
	store := internalrepo.NewClickHouseBarStore(ch, cfg.ClickHouse.Database)
	store.SetLogger(l)
	ctx, cancel := context.WithTimeout(context.Background(), initSchemaTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store init: %w", err)
	}
	return store, nil
}

// ProvideAdviceStore creates the Postgres advice store and its table.
func ProvideAdviceStore(pg *pkgpg.Client) (domrepo.AdviceStore, error) {
	store := internalrepo.NewPostgresAdviceStore(pg)
	ctx, cancel := context.WithTimeout(context.Background(), initSchemaTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("advice store init: %w", err)
	}
	return store, nil
}

// ProvideTickPublisher creates the Kafka publisher repository.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.TickPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideTickStream creates the Kraken WebSocket stream.
func ProvideTickStream(cfg *config.Config, l *applogger.Logger) domrepo.TickStream {
	return stream.New(
		cfg.Kraken.WebSocketURL,
		cfg.Kraken.Symbols,
		cfg.Kraken.ReconnectDelay,
		cfg.Kraken.PingInterval,
		l,
	)
}

// ProvideBarBuilder creates the shared bar builder. Both ingestion paths
// fold ticks through the same instance so shutdown flushes every open bucket.
func ProvideBarBuilder(store domrepo.BarStore, m domrepo.Metrics) *usecase.BarBuilder {
	return usecase.NewBarBuilder(store, domrepo.DefaultTimeframe(), m)
}

// ProvideTickProcessor creates the tick processor use case.
func ProvideTickProcessor(
	pub domrepo.TickPublisher,
	store domrepo.TickStore,
	builder *usecase.BarBuilder,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		builder,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideTickCollector creates the stream collector with the ingest
// pipeline between the WebSocket and the processor.
func ProvideTickCollector(
	s domrepo.TickStream,
	processor *usecase.TickProcessor,
	m domrepo.Metrics,
) *usecase.TickCollector {
	pipe := mid.NewIngestPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(s, processor, m, pipe)
}

// ProvideKafkaTicksHandler handles the ticks topic on the consumer side.
func ProvideKafkaTicksHandler(
	cfg *config.Config,
	store domrepo.TickStore,
	builder *usecase.BarBuilder,
	m domrepo.Metrics,
) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, builder, m)
}

// ProvideWindows merges configured window overrides onto the defaults.
func ProvideWindows(cfg *config.Config) analysis.Windows {
	w := analysis.DefaultWindows()
	if cfg.Analysis.Granularity > 0 {
		w.Granularity = cfg.Analysis.Granularity
	}
	o := cfg.Analysis.Windows
	if o.SOPRSmooth > 0 {
		w.SOPRSmooth = o.SOPRSmooth
	}
	if o.SentimentSmooth > 0 {
		w.SentimentSmooth = o.SentimentSmooth
	}
	if o.Oscillator > 0 {
		w.Oscillator = o.Oscillator
	}
	if o.Band > 0 {
		w.Band = o.Band
	}
	if o.Session > 0 {
		w.Session = o.Session
	}
	if o.Volatility > 0 {
		w.Volatility = o.Volatility
	}
	if o.Daily > 0 {
		w.Daily = o.Daily
	}
	if o.CommitAccum > 0 {
		w.CommitAccum = o.CommitAccum
	}
	if o.DevBaseline > 0 {
		w.DevBaseline = o.DevBaseline
	}
	return w
}

// ProvideScorer creates the sentiment scorer. Without a configured service
// the analysis layer falls back to pre-annotated post sentiment.
func ProvideScorer(cfg *config.Config) domservice.SentimentScorer {
	if cfg.Sentiment.ServiceURL == "" {
		return nil
	}
	return scoring.NewFinBERTScorer(cfg)
}

// ProvideAnalysisService creates the four-domain analysis service.
func ProvideAnalysisService(
	cfg *config.Config,
	w analysis.Windows,
	store domrepo.BarStore,
	scorer domservice.SentimentScorer,
	l *applogger.Logger,
) *analysis.Service {
	return analysis.NewService(analysis.Config{
		MarketDir:     cfg.Resources.MarketDir,
		ChainDir:      cfg.Resources.ChainDir,
		DeveloperDir:  cfg.Resources.DeveloperDir,
		SocialDir:     cfg.Resources.SocialDir,
		StoreLookback: cfg.Analysis.StoreLookback,
	}, w,
		analysis.WithBarStore(store),
		analysis.WithScorer(scorer),
		analysis.WithLogger(l),
	)
}

// ProvideOpenAIAdvisor creates the LLM advisor client.
func ProvideOpenAIAdvisor(cfg *config.Config) *advisor.OpenAIAdvisor {
	return advisor.NewOpenAIAdvisor(cfg)
}

// ProvideAdvisor exposes the advisor as its domain interface.
func ProvideAdvisor(oa *advisor.OpenAIAdvisor) domservice.Advisor {
	return oa
}

// ProvideAttentionSelector exposes the advisor's attention picking.
func ProvideAttentionSelector(oa *advisor.OpenAIAdvisor) domservice.AttentionSelector {
	return oa
}

// ProvideMarketData creates the Kraken REST client used for resource
// refresh and spot prices.
func ProvideMarketData(cfg *config.Config) *marketdata.KrakenClient {
	return marketdata.NewKrakenClient(cfg)
}

// ProvideCacheService creates the cache used for advisory locks and
// cross-instance state: redis when enabled, in-memory otherwise.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideBytesCache creates the response cache behind the HTTP handlers,
// sharing the redis client when one exists.
func ProvideBytesCache(rc *redis.Client) icache.BytesCache {
	if rc != nil {
		return icache.NewRedisCache(rc)
	}
	return icache.NewTTLCache()
}

// ProvideAdvisoryUseCase creates the advisory flow.
func ProvideAdvisoryUseCase(
	cfg *config.Config,
	svc *analysis.Service,
	adv domservice.Advisor,
	market *marketdata.KrakenClient,
	store domrepo.AdviceStore,
	cache pkgcache.Service,
	l *applogger.Logger,
) *usecase.AdvisoryUseCase {
	return usecase.NewAdvisoryUseCase(usecase.AdvisoryConfig{
		LockTTL:    cfg.Advisory.LockTTL,
		RefreshTTL: cfg.Advisory.RefreshTTL,
		SocialDir:  cfg.Resources.SocialDir,
		Symbols:    cfg.Kraken.Symbols,
	}, svc, adv, market, store, cache, l)
}

// ProvideAttentionUseCase creates the attention selection flow.
func ProvideAttentionUseCase(svc *analysis.Service, sel domservice.AttentionSelector) *usecase.AttentionUseCase {
	return usecase.NewAttentionUseCase(svc, sel)
}

// ProvideBarsUseCase creates the bar query flow.
func ProvideBarsUseCase(store domrepo.BarStore) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(store)
}

// ProvideAdviseQueue creates the advice job queue with its job registered.
func ProvideAdviseQueue(
	cfg *config.Config,
	rc *redis.Client,
	l *applogger.Logger,
	auc *usecase.AdvisoryUseCase,
) AdviseQueue {
	if rc == nil {
		return nil
	}
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc, pkgqueue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewAdviseJob(auc, l))
	return AdviseQueue(q)
}

// ProvideLogQueue creates the producer-only queue for log batches. Its key
// prefix is separate from the job queue so batches are not consumed as jobs.
func ProvideLogQueue(rc *redis.Client, l *applogger.Logger) LogQueue {
	if rc == nil {
		return nil
	}
	return LogQueue(pkgqueue.NewRedisPublisher(l, rc, pkgqueue.WithKeyPrefix("coinscope:logs")))
}

// disabledQueue stands in for the advise queue when redis is off.
type disabledQueue struct{}

func (disabledQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	return xhttp.NewAppError("ERR_QUEUE_DISABLED", "", "advice queue requires redis", http.StatusServiceUnavailable)
}

// ProvideAdvisoryHandler creates the advisory HTTP handler.
func ProvideAdvisoryHandler(
	auc *usecase.AdvisoryUseCase,
	attn *usecase.AttentionUseCase,
	aq AdviseQueue,
	bc icache.BytesCache,
	l *applogger.Logger,
) *api.AdvisoryHandler {
	var enq interface {
		Enqueue(ctx context.Context, msgType string, payload interface{}) error
	} = disabledQueue{}
	if aq != nil {
		enq = (*pkgqueue.RedisQueue)(aq)
	}
	h := api.NewAdvisoryHandler(auc, attn, enq)
	h.SetCache(bc)
	h.SetLogger(l)
	return h
}

// ProvideAnalysisHandler creates the analysis HTTP handler.
func ProvideAnalysisHandler(
	cfg *config.Config,
	svc *analysis.Service,
	bars *usecase.BarsUseCase,
	bc icache.BytesCache,
	l *applogger.Logger,
) *api.AnalysisHandler {
	h := api.NewAnalysisHandler(svc, bars)
	h.SetCache(bc)
	h.SetCacheTTL(cfg.Analysis.CacheTTL)
	h.SetLogger(l)
	return h
}

// ProvideHealthHandler creates the probe endpoint over the two stores plus
// the collector's connectivity flag.
func ProvideHealthHandler(ts domrepo.TickStore, as domrepo.AdviceStore, collector *usecase.TickCollector) *api.HealthHandler {
	return api.NewHealthHandler(ts, as, collector)
}

// ProvideRootHandler bundles the API handlers for route registration.
func ProvideRootHandler(advisory *api.AdvisoryHandler, analysisH *api.AnalysisHandler, health *api.HealthHandler) xhttp.Handler {
	return api.NewRoot(advisory, analysisH, health)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	collector *usecase.TickCollector,
	builder *usecase.BarBuilder,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	aq AdviseQueue,
	lq LogQueue,
	advisory *usecase.AdvisoryUseCase,
	chClient *pkgch.Client,
	pgClient *pkgpg.Client,
) *server.App {
	var mh pkgkafka.MessageHandler
	if consumer != nil {
		mh = kh
	}
	app := server.New(server.Deps{
		Config:       cfg,
		Logger:       l,
		Handler:      handler,
		Collector:    collector,
		Builder:      builder,
		Consumer:     consumer,
		KafkaHandler: mh,
		Queue:        (*pkgqueue.RedisQueue)(aq),
		LogQueue:     (*pkgqueue.RedisQueue)(lq),
		Advisory:     advisory,
		ClickHouse:   chClient,
		Postgres:     pgClient,
	})
	app.TickProc = collector.Processor()
	return app
}

// splitAddr breaks host:port apart, defaulting the redis port.
func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
