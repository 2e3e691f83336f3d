package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Aggregation run tuning.
	WorkerConcurrency int
	TenantTimeout     time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration

	// Cron expression for the scheduled full aggregation run.
	MetricsCron string

	// TTL for cached current snapshots.
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              os.Getenv("PORT"),
		Env:               os.Getenv("ENV"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 10),
		TenantTimeout:     time.Duration(envInt("TENANT_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxRetries:        envInt("MAX_RETRIES", 3),
		RetryBaseDelay:    time.Duration(envInt("RETRY_BASE_DELAY_MS", 200)) * time.Millisecond,
		MetricsCron:       os.Getenv("METRICS_CRON"),
		CacheTTL:          time.Duration(envInt("CACHE_TTL_MINUTES", 30)) * time.Minute,
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.MetricsCron == "" {
		// Daily full aggregation at 03:00.
		cfg.MetricsCron = "0 3 * * *"
	}

	return cfg
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️ Invalid value for %s (%q), using default %d", key, raw, def)
		return def
	}
	return v
}
