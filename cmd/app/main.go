package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"CoinScope/internal/di"
	"CoinScope/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// .env carries local secrets (OPENAI_API_KEY etc.); absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("coinscope starting env=%s backend=%s symbols=%v",
		cfg.Environment, cfg.Backend.Type, cfg.Kraken.Symbols)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("initialize: %v", err)
	}
	log.Printf("stores ready clickhouse=%s postgres=%s",
		cfg.ClickHouse.Database, cfg.Postgres.Database)
	if cfg.Backend.Type == "kafka" {
		log.Printf("kafka ready brokers=%v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	if err := app.Run(); err != nil {
		log.Printf("run: %v", err)
		os.Exit(1)
	}
}
