package jetstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/config"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
	"github.com/feral-file/ff-transfer-indexer/internal/metrics"
)

// Message outcomes
const (
	OutcomeAck        = "ack"
	OutcomeTerm       = "term"
	OutcomeRetryLater = "retry_later"
	OutcomeNak        = "nak"
)

// ConsumerConfig holds the configuration for the queue consumer
type ConsumerConfig struct {
	NATS          config.NATSConfig
	WorkPoolSize  int
	TokenPoolSize int
	QueueSize     int
	// RetryDelay is the redelivery delay of messages that failed with a retry-later error
	RetryDelay time.Duration
}

// Consumer pulls the work and token queues and hands each message to a handler
type Consumer interface {
	// Run consumes until the context is canceled
	Run(ctx context.Context) error
	// Close closes the NATS connection
	Close()
}

type consumer struct {
	nc      adapter.NatsConn
	js      adapter.JetStream
	handler messaging.Handler
	json    adapter.JSON
	clock   adapter.Clock
	config  ConsumerConfig
}

// NewConsumer connects to NATS and returns a consumer dispatching to handler
func NewConsumer(
	cfg ConsumerConfig,
	natsJS adapter.NatsJetStream,
	handler messaging.Handler,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) (Consumer, error) {
	nc, js, err := connect(cfg.NATS, natsJS)
	if err != nil {
		return nil, err
	}

	return &consumer{
		nc:      nc,
		js:      js,
		handler: handler,
		json:    jsonAdapter,
		clock:   clock,
		config:  cfg,
	}, nil
}

func (c *consumer) poolSize(queue messaging.Queue) int {
	if queue == messaging.QueueToken {
		return max(c.config.TokenPoolSize, 1)
	}
	return max(c.config.WorkPoolSize, 1)
}

func (c *consumer) consumerName(queue messaging.Queue) string {
	if queue == messaging.QueueToken {
		return c.config.NATS.TokenConsumerName
	}
	return c.config.NATS.WorkConsumerName
}

// consumerConfig returns the durable consumer of a queue.
// MaxAckPending caps the unacknowledged messages at what the queue's pool can hold,
// so submitting to the pool never blocks the dispatcher.
func (c *consumer) consumerConfig(queue messaging.Queue) jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       c.consumerName(queue),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.NATS.AckWait,
		MaxDeliver:    c.config.NATS.MaxDeliver,
		FilterSubject: c.config.NATS.QueueSubjects(string(queue)),
		MaxAckPending: c.poolSize(queue) + max(c.config.QueueSize, 0),
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
}

func (c *consumer) ensureConsumer(ctx context.Context, queue messaging.Queue) (adapter.Consumer, error) {
	consumerCfg := c.consumerConfig(queue)

	var cons adapter.Consumer
	operation := func() error {
		var err error
		cons, err = c.js.CreateOrUpdateConsumer(ctx, c.config.NATS.StreamName, consumerCfg)
		return err
	}
	notify := func(err error, d time.Duration) {
		logger.WarnCtx(ctx, "Consumer provisioning failed, retrying",
			zap.Error(err),
			zap.String("consumer", consumerCfg.Durable),
			zap.Duration("next_retry_in", d),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(provisionBackOff(), ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", consumerCfg.Durable, err)
	}

	info, err := cons.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.InfoCtx(ctx, "Consumer created/retrieved",
		zap.String("consumer", info.Name),
		zap.String("filter_subject", consumerCfg.FilterSubject),
		zap.Int("max_ack_pending", consumerCfg.MaxAckPending),
	)

	return cons, nil
}

// Run provisions the stream and both consumers, then dispatches messages until ctx is canceled.
// Work messages are always dispatched before token messages.
func (c *consumer) Run(ctx context.Context) error {
	if err := ensureStream(ctx, c.js, c.config.NATS); err != nil {
		return err
	}

	pools := make(map[messaging.Queue]pond.Pool, len(messaging.Queues))
	channels := make(map[messaging.Queue]chan adapter.Message, len(messaging.Queues))
	var subs []adapter.ConsumeContext
	defer func() {
		for _, sub := range subs {
			sub.Stop()
		}
		for _, pool := range pools {
			pool.StopAndWait()
		}
	}()

	for _, queue := range messaging.Queues {
		cons, err := c.ensureConsumer(ctx, queue)
		if err != nil {
			return err
		}

		pools[queue] = pond.NewPool(
			c.poolSize(queue),
			pond.WithQueueSize(max(c.config.QueueSize, 1)),
			pond.WithContext(ctx),
		)

		msgChan := make(chan adapter.Message, c.poolSize(queue))
		channels[queue] = msgChan

		sub, err := cons.Consume(func(msg adapter.Message) {
			select {
			case msgChan <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription for %s queue: %w", queue, err)
		}
		subs = append(subs, sub)
	}

	logger.InfoCtx(ctx, "Started consuming messages",
		zap.Int("work_pool_size", c.poolSize(messaging.QueueWork)),
		zap.Int("token_pool_size", c.poolSize(messaging.QueueToken)),
	)

	d := &dispatcher{
		workCh:  channels[messaging.QueueWork],
		tokenCh: channels[messaging.QueueToken],
		submit: func(queue messaging.Queue, msg adapter.Message) {
			pools[queue].Submit(func() {
				c.handleMessage(ctx, queue, msg)
			})
		},
	}
	d.run(ctx)

	logger.InfoCtx(ctx, "Shutting down consumer")
	return nil
}

// dispatcher moves messages from the queue channels to their pools, work first
type dispatcher struct {
	workCh  <-chan adapter.Message
	tokenCh <-chan adapter.Message
	submit  func(queue messaging.Queue, msg adapter.Message)
}

func (d *dispatcher) run(ctx context.Context) {
	for {
		// Drain pending work before looking at the token queue
		select {
		case <-ctx.Done():
			return
		case msg := <-d.workCh:
			d.submit(messaging.QueueWork, msg)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case msg := <-d.workCh:
			d.submit(messaging.QueueWork, msg)
		case msg := <-d.tokenCh:
			d.submit(messaging.QueueToken, msg)
		}
	}
}

// handleMessage decodes and handles a single message, then settles it
func (c *consumer) handleMessage(ctx context.Context, queue messaging.Queue, msg adapter.Message) {
	start := c.clock.Now()
	info := logger.MessageInfo{
		Subject: msg.Subject(),
		Queue:   string(queue),
	}
	if md, err := msg.Metadata(); err == nil && md != nil {
		info.StreamSeq = md.Sequence.Stream
		info.NumDelivered = md.NumDelivered
	}

	command := "unknown"
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while handling message: %v", r)
			}
		}()

		env, err := messaging.DecodeEnvelope(c.json, msg.Data())
		if err != nil {
			return err
		}
		info.ID = env.ID
		info.Command = string(env.Command)
		command = string(env.Command)

		logger.DebugMsg(info, "Received message")
		handlerCtx := logger.WithFields(ctx, info.Fields()...)
		handlerCtx = messaging.WithDeliveryAttempt(handlerCtx, info.NumDelivered)
		return c.handler.Handle(handlerCtx, env)
	}()

	outcome := c.settle(info, msg, err)

	metrics.MessagesHandled.WithLabelValues(string(queue), command, outcome).Inc()
	metrics.MessageDuration.WithLabelValues(string(queue), command).Observe(c.clock.Since(start).Seconds())
}

// settle maps the handling result to a message outcome
func (c *consumer) settle(info logger.MessageInfo, msg adapter.Message, err error) string {
	var outcome string
	var settleErr error

	switch {
	case err == nil:
		outcome = OutcomeAck
		settleErr = msg.Ack()
	case domain.IsPermanent(err):
		logger.WarnMsg(info, "Dropping message", zap.Error(err))
		outcome = OutcomeTerm
		settleErr = msg.Term()
	case domain.IsRetryLater(err):
		logger.InfoMsg(info, "Rescheduling message",
			zap.Error(err),
			zap.Duration("delay", c.config.RetryDelay),
		)
		outcome = OutcomeRetryLater
		settleErr = msg.NakWithDelay(c.config.RetryDelay)
	default:
		if errors.Is(err, context.Canceled) {
			logger.InfoMsg(info, "Message interrupted by shutdown")
		} else {
			logger.ErrorMsg(info, err)
		}
		outcome = OutcomeNak
		settleErr = msg.Nak()
	}

	if settleErr != nil {
		logger.ErrorMsg(info, fmt.Errorf("failed to %s message: %w", outcome, settleErr))
	}

	return outcome
}

// Close drains the connection so pending acks reach the server, falling back to a hard close
func (c *consumer) Close() {
	if c.nc == nil {
		return
	}

	if err := c.nc.Drain(); err != nil {
		logger.Warn("NATS drain failed, closing connection", zap.Error(err))
		c.nc.Close()
	}
}
