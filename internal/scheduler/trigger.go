package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
)

// TriggerConfig holds the trigger intervals
type TriggerConfig struct {
	ReceiveNewBlocksInterval   time.Duration
	ReprocessOldBlocksInterval time.Duration
}

// triggerScheduler publishes RECEIVE_NEW_BLOCKS and REPROCESS_OLD_BLOCKS on fixed intervals.
// It only produces triggers; the work itself runs on the workers.
type triggerScheduler struct {
	config    TriggerConfig
	publisher messaging.Publisher
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewTriggerScheduler creates a new trigger scheduler
func NewTriggerScheduler(config TriggerConfig, publisher messaging.Publisher, clock adapter.Clock) Scheduler {
	return &triggerScheduler{
		config:    config,
		publisher: publisher,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the scheduler's name
func (s *triggerScheduler) Name() string {
	return "trigger-scheduler"
}

// Start publishes both triggers immediately, then on every tick of their interval
func (s *triggerScheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting trigger scheduler",
		zap.Duration("receive_new_blocks_interval", s.config.ReceiveNewBlocksInterval),
		zap.Duration("reprocess_old_blocks_interval", s.config.ReprocessOldBlocksInterval),
	)

	receiveTicker := s.clock.NewTicker(s.config.ReceiveNewBlocksInterval)
	defer receiveTicker.Stop()
	reprocessTicker := s.clock.NewTicker(s.config.ReprocessOldBlocksInterval)
	defer reprocessTicker.Stop()

	s.trigger(ctx, messaging.CommandReceiveNewBlocks, messaging.ReceiveNewBlocksPayload{})
	s.trigger(ctx, messaging.CommandReprocessOldBlocks, messaging.ReprocessOldBlocksPayload{})

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Trigger scheduler stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Trigger scheduler stop requested")
			return nil
		case <-receiveTicker.C:
			s.trigger(ctx, messaging.CommandReceiveNewBlocks, messaging.ReceiveNewBlocksPayload{})
		case <-reprocessTicker.C:
			s.trigger(ctx, messaging.CommandReprocessOldBlocks, messaging.ReprocessOldBlocksPayload{})
		}
	}
}

// trigger publishes one command. A failed publish is logged and the next tick tries again.
func (s *triggerScheduler) trigger(ctx context.Context, command messaging.Command, payload interface{}) {
	if err := s.publisher.Publish(ctx, command, payload); err != nil {
		if ctx.Err() == nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to publish %s trigger: %w", command, err))
		}
		return
	}
	logger.DebugCtx(ctx, "Published trigger", zap.String("command", string(command)))
}

// Stop gracefully stops the scheduler with timeout support
func (s *triggerScheduler) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping trigger scheduler")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Trigger scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Trigger scheduler stop interrupted by context timeout")
		return ctx.Err()
	}
}
