package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/config"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/providers/jetstream"
	"github.com/feral-file/ff-transfer-indexer/internal/scheduler"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSchedulerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "pipeline-scheduler",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting pipeline scheduler")

	clock := adapter.NewClock()

	publisher, err := jetstream.NewPublisher(ctx, cfg.NATS, adapter.NewNatsJetStream(), adapter.NewJSON(), clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create publisher", zap.Error(err))
	}
	defer publisher.Close()

	triggers := scheduler.NewTriggerScheduler(scheduler.TriggerConfig{
		ReceiveNewBlocksInterval:   cfg.Scheduler.ReceiveNewBlocksInterval,
		ReprocessOldBlocksInterval: cfg.Scheduler.ReprocessOldBlocksInterval,
	}, publisher, clock)

	logger.InfoCtx(ctx, "Initialized trigger scheduler",
		zap.Duration("receive_new_blocks_interval", cfg.Scheduler.ReceiveNewBlocksInterval),
		zap.Duration("reprocess_old_blocks_interval", cfg.Scheduler.ReprocessOldBlocksInterval),
	)

	err = triggers.Start(ctx)
	if err != nil && ctx.Err() == nil {
		logger.ErrorCtx(ctx, fmt.Errorf("trigger scheduler: %w", err))
	}
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := triggers.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}
	logger.InfoCtx(shutdownCtx, "Scheduler stopped")
}
