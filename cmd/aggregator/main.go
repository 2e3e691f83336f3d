package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/robfig/cron/v3"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/Marseau/ubs-metrics-engine/internal/config"
	"github.com/Marseau/ubs-metrics-engine/internal/database"
	"github.com/Marseau/ubs-metrics-engine/internal/gateway"
	"github.com/Marseau/ubs-metrics-engine/internal/handlers"
	"github.com/Marseau/ubs-metrics-engine/internal/runs"
	"github.com/Marseau/ubs-metrics-engine/internal/store"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/Marseau/ubs-metrics-engine/internal/validator"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Printf("🚀 Starting metrics aggregator on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init store, with Redis read-through cache when reachable
	var metricsStore store.MetricsStore = store.NewGormStore(db.GORM)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("⚠️  Redis not reachable (%v), serving reads without cache", err)
	} else {
		log.Printf("✅ Redis connected (%s)", cfg.RedisAddr)
		metricsStore = store.NewCachedStore(metricsStore, redisClient, cfg.CacheTTL)
	}

	// Init pipeline
	rawGateway := gateway.NewGormGateway(db.GORM)
	orchestrator := aggregator.New(rawGateway, metricsStore, aggregator.Config{
		Concurrency:    cfg.WorkerConcurrency,
		TenantTimeout:  cfg.TenantTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	})
	consistency := validator.New(rawGateway, metricsStore)
	runRecorder := runs.NewService(db.GORM)

	// Schedule the daily full aggregation run
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.MetricsCron, func() {
		runScheduled(orchestrator, runRecorder)
	})
	if err != nil {
		log.Fatalf("❌ Invalid METRICS_CRON %q: %v", cfg.MetricsCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("⏰ Scheduled aggregation run: %s", cfg.MetricsCron)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Metrics Aggregation Engine",
	})
	app.Use(cors.New())

	handlers.Register(app,
		handlers.NewHealthHandler(db),
		handlers.NewMetricsHandler(metricsStore),
		handlers.NewRunHandler(orchestrator, consistency, runRecorder),
	)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}

// runScheduled executes one full cron-triggered aggregation run.
func runScheduled(orchestrator *aggregator.Orchestrator, recorder *runs.Service) {
	ctx := context.Background()
	params := aggregator.RunParams{}

	record, err := recorder.Start(ctx, runs.TriggerCron, params)
	if err != nil {
		utils.LogError("scheduled run not recorded", err, nil)
		return
	}

	summary, runErr := orchestrator.Run(ctx, params)
	if err := recorder.Finish(ctx, record, summary, runErr); err != nil {
		utils.LogError("scheduled run record not closed", err, map[string]interface{}{
			"run_id": record.ID.String(),
		})
	}
	if runErr != nil {
		utils.LogError("scheduled run failed", runErr, map[string]interface{}{
			"run_id": record.ID.String(),
		})
		return
	}
	utils.LogInfo("scheduled run finished", map[string]interface{}{
		"run_id":   record.ID.String(),
		"duration": summary.Duration.String(),
		"windows":  len(summary.Windows),
		"partial":  summary.Failed(),
	})
}
