package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/config"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
)

const (
	publishInitialInterval = 100 * time.Millisecond
	publishMaxInterval     = 2 * time.Second
	publishMaxElapsed      = 30 * time.Second
)

type publisher struct {
	nc    adapter.NatsConn
	js    adapter.JetStream
	cfg   config.NATSConfig
	json  adapter.JSON
	clock adapter.Clock
}

// NewPublisher connects to NATS, makes sure the pipeline stream exists and returns a publisher
func NewPublisher(
	ctx context.Context,
	cfg config.NATSConfig,
	natsJS adapter.NatsJetStream,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) (messaging.Publisher, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	return &publisher{
		nc:    nc,
		js:    js,
		cfg:   cfg,
		json:  jsonAdapter,
		clock: clock,
	}, nil
}

// Publish wraps the payload in an envelope and publishes it on the command's queue subject.
// The envelope id is sent as the message id so the stream drops retried duplicates.
func (p *publisher) Publish(ctx context.Context, command messaging.Command, payload interface{}) error {
	env, err := messaging.NewEnvelope(p.json, command, payload, p.clock.Now())
	if err != nil {
		return err
	}

	data, err := p.json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	subject := p.cfg.Subject(string(command.Queue()), string(command))
	logger.DebugCtx(ctx, "Publishing message",
		zap.String("subject", subject),
		zap.String("message_id", env.ID),
	)

	operation := func() error {
		_, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(env.ID))
		return err
	}
	notify := func(err error, d time.Duration) {
		logger.WarnCtx(ctx, "Publish failed, retrying",
			zap.Error(err),
			zap.String("subject", subject),
			zap.Duration("next_retry_in", d),
		)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = publishInitialInterval
	b.MaxInterval = publishMaxInterval
	b.MaxElapsedTime = publishMaxElapsed

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to publish %s: %w", command, err)
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
