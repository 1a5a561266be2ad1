// Command reconcile records settlements and expiries that the payment
// gateway reports but the database does not yet reflect. Run it from cron
// shortly after the daily settlement cutoff.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursepay/server/internal/app"
	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/shared/config"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.String("config", "", "config file (default: config.yaml in ., ./configs or /etc/coursepay)")
	dryRun := pflag.Bool("dry-run", false, "report what would change without writing")
	batchSize := pflag.Int("batch-size", 0, "rows examined per query (0 uses payments.reconcile_batch_size)")
	timeout := pflag.Duration("timeout", 30*time.Minute, "abort the run after this long")
	pflag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	deps, cleanup, err := app.InitializeDependencies(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	report, err := deps.OrderDomain.Reconcile(ctx, order.ReconcileOptions{
		DryRun:    *dryRun,
		BatchSize: *batchSize,
	})
	if err != nil {
		deps.ZapLogger.Error("Reconcile failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	if !*dryRun {
		deps.Metrics.RecordReconcile(report.Settled, report.RefundSettled, report.Expired, report.Failures)
	}

	deps.ZapLogger.Info("Reconcile finished",
		zap.Bool("dry_run", *dryRun),
		zap.Int("checked", report.Checked),
		zap.Int("settled", report.Settled),
		zap.Int("refund_settled", report.RefundSettled),
		zap.Int("expired", report.Expired),
		zap.Int("failures", report.Failures),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
