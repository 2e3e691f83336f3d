package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/Marseau/ubs-metrics-engine/internal/config"
	"github.com/Marseau/ubs-metrics-engine/internal/database"
	"github.com/Marseau/ubs-metrics-engine/internal/gateway"
	"github.com/Marseau/ubs-metrics-engine/internal/runs"
	"github.com/Marseau/ubs-metrics-engine/internal/store"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/Marseau/ubs-metrics-engine/internal/validator"
	"github.com/Marseau/ubs-metrics-engine/internal/window"
)

func main() {
	var windowsFlag string
	var tenantsFlag string
	var refFlag string
	var validateOnly bool

	flag.StringVar(&windowsFlag, "windows", "", "Comma-separated window labels (default: all)")
	flag.StringVar(&tenantsFlag, "tenants", "", "Comma-separated tenant UUIDs (default: all active)")
	flag.StringVar(&refFlag, "ref", "", "RFC3339 reference instant for backfills (default: now)")
	flag.BoolVar(&validateOnly, "validate", false, "Only validate stored snapshots, do not recompute")
	flag.Parse()

	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	metricsStore := store.NewGormStore(db.GORM)
	rawGateway := gateway.NewGormGateway(db.GORM)

	// Cancel the run on Ctrl-C; writes are idempotent upserts so an
	// interrupted run can simply be re-run.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	labels := window.AllLabels()
	if windowsFlag != "" {
		labels = strings.Split(windowsFlag, ",")
		for _, label := range labels {
			if !window.ValidLabel(label) {
				log.Fatalf("❌ Unknown window label: %s (use: %s)", label, strings.Join(window.AllLabels(), ", "))
			}
		}
	}

	var tenantIDs []uuid.UUID
	if tenantsFlag != "" {
		for _, raw := range strings.Split(tenantsFlag, ",") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				log.Fatalf("❌ Invalid tenant id %q: %v", raw, err)
			}
			tenantIDs = append(tenantIDs, id)
		}
	}

	if validateOnly {
		runValidation(ctx, rawGateway, metricsStore, tenantIDs, labels)
		return
	}

	var ref time.Time
	if refFlag != "" {
		parsed, err := time.Parse(time.RFC3339, refFlag)
		if err != nil {
			log.Fatalf("❌ Invalid -ref %q: %v", refFlag, err)
		}
		ref = parsed
	}

	orchestrator := aggregator.New(rawGateway, metricsStore, aggregator.Config{
		Concurrency:    cfg.WorkerConcurrency,
		TenantTimeout:  cfg.TenantTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	})
	recorder := runs.NewService(db.GORM)
	params := aggregator.RunParams{Windows: labels, TenantIDs: tenantIDs, Ref: ref}

	record, err := recorder.Start(ctx, runs.TriggerManual, params)
	if err != nil {
		log.Fatalf("❌ Failed to record run: %v", err)
	}

	log.Printf("🔄 Recomputing windows %s...", strings.Join(labels, ", "))
	summary, runErr := orchestrator.Run(ctx, params)
	if err := recorder.Finish(context.Background(), record, summary, runErr); err != nil {
		log.Printf("⚠️  Run record not closed: %v", err)
	}
	if runErr != nil {
		log.Fatalf("❌ Run failed: %v", runErr)
	}

	for _, w := range summary.Windows {
		if w.Err != "" {
			log.Printf("⚠️  Window %s: %d tenants ok, %d failed, platform step failed: %s",
				w.Window.Label, w.TenantsProcessed, w.TenantsFailed, w.Err)
			continue
		}
		log.Printf("✅ Window %s: %d tenants ok, %d failed (%s)",
			w.Window.Label, w.TenantsProcessed, w.TenantsFailed, w.Duration)
	}
	log.Printf("✅ Run %s finished in %s", record.ID, summary.Duration)
	if summary.Failed() {
		os.Exit(1)
	}
}

func runValidation(ctx context.Context, gw gateway.RawDataGateway, st store.MetricsStore, tenantIDs []uuid.UUID, labels []string) {
	if len(tenantIDs) == 0 {
		ids, err := gw.ListActiveTenantIDs(ctx)
		if err != nil {
			log.Fatalf("❌ Failed to list tenants: %v", err)
		}
		tenantIDs = ids
	}
	if len(tenantIDs) == 0 {
		log.Println("⚠️  No tenants to validate")
		return
	}

	log.Printf("🔍 Validating %d tenants over windows %s...", len(tenantIDs), strings.Join(labels, ", "))
	report, err := validator.New(gw, st).ValidateSample(ctx, tenantIDs, labels)
	if err != nil {
		log.Fatalf("❌ Validation failed: %v", err)
	}

	for _, warn := range report.Warnings {
		log.Printf("⚠️  %s", warn)
	}
	log.Printf("✅ Checked %d snapshots (%d skipped) in %s: %d drift warnings",
		report.TenantsChecked, report.TenantsSkipped, report.Duration, len(report.Warnings))
	if len(report.Warnings) > 0 {
		os.Exit(1)
	}
}
