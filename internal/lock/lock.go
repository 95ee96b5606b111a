package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/metrics"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// Config holds the lock timing settings
type Config struct {
	// Timeout bounds how long Acquire keeps polling a held lock
	Timeout time.Duration
	// Expiry is how long a lease lives without a release
	Expiry time.Duration
	// PollInterval is the wait between attempts on a held lock
	PollInterval time.Duration
}

// Lease is a held lock. Only the holder token can release it.
type Lease struct {
	Name       string
	Holder     string
	ExpiryTime time.Time
}

// Locker is a named lease shared across worker processes through the store
//
//go:generate mockgen -source=lock.go -destination=../mocks/lock.go -package=mocks -mock_names=Locker=MockLocker
type Locker interface {
	// Acquire takes the named lock, polling while another holder has it.
	// It returns domain.ErrLockTimeout once the timeout has elapsed since the first attempt.
	Acquire(ctx context.Context, name string) (*Lease, error)

	// Release drops the lease. It returns domain.ErrLockNotHeld when the lease
	// was already lost to expiry or taken over by another holder.
	Release(ctx context.Context, lease *Lease) error

	// WithLock runs fn while holding the named lock and always attempts a release afterwards.
	// The error of fn is returned as is; a failed release is only logged.
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type locker struct {
	store  store.Store
	clock  adapter.Clock
	config Config
}

// NewLocker creates a new store-backed locker. Zero settings use the package defaults.
func NewLocker(st store.Store, clock adapter.Clock, cfg Config) Locker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DEFAULT_LOCK_TIMEOUT
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = domain.DEFAULT_LOCK_EXPIRY
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = domain.DEFAULT_LOCK_POLL_INTERVAL
	}

	return &locker{
		store:  st,
		clock:  clock,
		config: cfg,
	}
}

// Acquire takes the named lock
func (l *locker) Acquire(ctx context.Context, name string) (*Lease, error) {
	holder := uuid.NewString()
	start := l.clock.Now()

	for {
		now := l.clock.Now()
		lease := &Lease{
			Name:       name,
			Holder:     holder,
			ExpiryTime: now.Add(l.config.Expiry),
		}

		created, err := l.store.CreateLock(ctx, &schema.Lock{
			Name:       lease.Name,
			Holder:     lease.Holder,
			ExpiryTime: lease.ExpiryTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}
		if created {
			metrics.LockWaitSeconds.Observe(l.clock.Since(start).Seconds())
			return lease, nil
		}

		existing, err := l.store.GetLock(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}
		if existing == nil {
			// Released between the insert and the read
			continue
		}

		if !existing.ExpiryTime.After(now) {
			if _, err := l.store.DeleteExpiredLock(ctx, name, existing.ExpiryTime); err != nil {
				return nil, fmt.Errorf("failed to clear expired lock %s: %w", name, err)
			}
			logger.DebugCtx(ctx, "Cleared expired lock",
				zap.String("name", name),
				zap.Time("expiryTime", existing.ExpiryTime))
			continue
		}

		if l.clock.Since(start) >= l.config.Timeout {
			metrics.LockTimeouts.Inc()
			return nil, fmt.Errorf("%w: %s after %s", domain.ErrLockTimeout, name, l.config.Timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-l.clock.After(l.config.PollInterval):
		}
	}
}

// Release drops the lease
func (l *locker) Release(ctx context.Context, lease *Lease) error {
	deleted, err := l.store.DeleteLock(ctx, lease.Name, lease.Holder)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lease.Name, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", domain.ErrLockNotHeld, lease.Name)
	}
	return nil
}

// WithLock runs fn while holding the named lock
func (l *locker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, name)
	if err != nil {
		return err
	}

	defer func() {
		// Release even when ctx is already canceled
		if err := l.Release(context.WithoutCancel(ctx), lease); err != nil {
			if errors.Is(err, domain.ErrLockNotHeld) {
				logger.WarnCtx(ctx, "Lock was lost before release", zap.String("name", name))
				return
			}
			logger.ErrorCtx(ctx, err, zap.String("name", name))
		}
	}()

	return fn(ctx)
}
