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
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
	"github.com/feral-file/ff-transfer-indexer/internal/api/server"
	"github.com/feral-file/ff-transfer-indexer/internal/config"
	"github.com/feral-file/ff-transfer-indexer/internal/extractor"
	"github.com/feral-file/ff-transfer-indexer/internal/lock"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/ownership"
	"github.com/feral-file/ff-transfer-indexer/internal/pipeline"
	"github.com/feral-file/ff-transfer-indexer/internal/providers/ethereum"
	"github.com/feral-file/ff-transfer-indexer/internal/providers/jetstream"
	"github.com/feral-file/ff-transfer-indexer/internal/ratelimit"
	"github.com/feral-file/ff-transfer-indexer/internal/reconciler"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service":  "pipeline-worker",
			"chain_id": fmt.Sprintf("%d", cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting pipeline worker")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	// Route reads to the replica, cursor and lock reads pin the primary
	err = db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: []gorm.Dialector{postgres.Open(cfg.Database.ReadDSN())},
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to register read replica", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()

	// Distributed RPC rate limiter, shared by every worker instance through Redis
	var limiter ratelimit.Limiter
	if cfg.RateLimiter.Enabled {
		redisClient := adapter.NewRedisClient(adapter.RedisOptions{
			Addr:     cfg.RateLimiter.RedisAddr,
			Password: cfg.RateLimiter.RedisPassword,
			DB:       cfg.RateLimiter.RedisDB,
		})
		limiter, err = ratelimit.NewLimiter(cfg.RateLimiter, redisClient, clock)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to initialize rate limiter", zap.Error(err))
		}
		defer func() {
			if err := limiter.Close(); err != nil {
				logger.Warn("Failed to close rate limiter", zap.Error(err))
			}
		}()
		logger.InfoCtx(ctx, "Rate limiter enabled", zap.String("redis_addr", cfg.RateLimiter.RedisAddr))
	}

	// Connect to the Ethereum node
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum node", zap.Error(err))
	}
	chainClient := ethereum.NewClient(ethClient, limiter, clock)

	// Pipeline components
	blockExtractor := extractor.NewExtractor(chainClient, extractor.Config{
		ReceiptConcurrency: cfg.Worker.ReceiptConcurrency,
		KittiesAddress:     cfg.Ethereum.KittiesAddress,
		PunksAddress:       cfg.Ethereum.PunksAddress,
	})
	defer blockExtractor.Close()

	locker := lock.NewLocker(dataStore, clock, lock.Config{
		Timeout:      cfg.Worker.LockTimeout,
		Expiry:       cfg.Worker.LockExpiry,
		PollInterval: cfg.Worker.LockPollInterval,
	})
	blockReconciler := reconciler.NewReconciler(dataStore)
	projector := ownership.NewProjector(dataStore, locker)

	publisher, err := jetstream.NewPublisher(ctx, cfg.NATS, natsJS, jsonAdapter, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create publisher", zap.Error(err))
	}
	defer publisher.Close()

	router := pipeline.NewRouter(pipeline.Config{
		StartBlock:         cfg.Ethereum.StartBlock,
		MaxBlocksPerRun:    cfg.Worker.MaxBlocksPerRun,
		ReprocessWindow:    cfg.Worker.ReprocessWindow,
		ReprocessThreshold: cfg.Worker.ReprocessThreshold,
		ReprocessLimit:     cfg.Worker.ReprocessLimit,
	}, pipeline.Dependencies{
		Extractor:  blockExtractor,
		Reconciler: blockReconciler,
		Projector:  projector,
		Publisher:  publisher,
		Store:      dataStore,
		Chain:      chainClient,
		Locker:     locker,
		JSON:       jsonAdapter,
		Clock:      clock,
	})

	consumer, err := jetstream.NewConsumer(jetstream.ConsumerConfig{
		NATS:          cfg.NATS,
		WorkPoolSize:  cfg.Worker.WorkPoolSize,
		TokenPoolSize: cfg.Worker.TokenPoolSize,
		QueueSize:     cfg.Worker.QueueSize,
		RetryDelay:    cfg.Worker.LockRetryDelay,
	}, natsJS, router, jsonAdapter, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Ops server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}, dataStore, publisher)

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	logger.InfoCtx(ctx, "Pipeline worker started",
		zap.Int("work_pool_size", cfg.Worker.WorkPoolSize),
		zap.Int("token_pool_size", cfg.Worker.TokenPoolSize),
	)

	// Wait for interrupt signal or a component failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err)
	}

	// Stop consuming, in-flight handlers see the canceled context and get redelivered
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Timed out waiting for in-flight messages")
	}

	logger.Info("Pipeline worker stopped")
}
