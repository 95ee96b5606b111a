package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/config"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
)

const (
	// provisionMaxElapsed bounds how long startup keeps retrying stream and consumer provisioning
	provisionMaxElapsed = 1 * time.Minute
)

// connect dials NATS and opens a JetStream context
func connect(cfg config.NATSConfig, natsJS adapter.NatsJetStream) (adapter.NatsConn, adapter.JetStream, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return nc, js, nil
}

// StreamConfig returns the stream holding every pipeline subject
func StreamConfig(cfg config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   []string{cfg.SubjectPrefix + ".>"},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.DuplicateWindow,
	}
}

// ensureStream creates or updates the pipeline stream, retrying while the server is unavailable
func ensureStream(ctx context.Context, js adapter.JetStream, cfg config.NATSConfig) error {
	streamCfg := StreamConfig(cfg)

	operation := func() error {
		return js.CreateOrUpdateStream(ctx, streamCfg)
	}
	notify := func(err error, d time.Duration) {
		logger.WarnCtx(ctx, "Stream provisioning failed, retrying",
			zap.Error(err),
			zap.String("stream", cfg.StreamName),
			zap.Duration("next_retry_in", d),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(provisionBackOff(), ctx), notify); err != nil {
		return fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	logger.InfoCtx(ctx, "Stream created/updated",
		zap.String("stream", cfg.StreamName),
		zap.Strings("subjects", streamCfg.Subjects),
	)
	return nil
}

func provisionBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = provisionMaxElapsed
	return b
}
