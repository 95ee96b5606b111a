package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/config"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
)

// ProviderEthereum is the limiter key of the Ethereum JSON-RPC endpoint
const ProviderEthereum = "ethereum"

// ErrLimiterClosed is returned by Wait after Close
var ErrLimiterClosed = errors.New("rate limiter is closed")

// Limiter defines the interface for a distributed request rate limiter
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Wait blocks until a request to provider is allowed, the context is canceled,
	// or the provider's max wait time is exceeded
	Wait(ctx context.Context, provider string) error

	// Close stops health monitoring and closes the Redis connection
	Close() error
}

// limiter is the Redis-backed implementation of Limiter
type limiter struct {
	config         config.RateLimiterConfig
	providers      map[string]*providerLimiter
	redis          adapter.RedisClient
	clock          adapter.Clock
	closed         atomic.Bool
	closeOnce      sync.Once
	redisAvailable atomic.Bool
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

// providerLimiter holds the rate limiting state for a single provider
type providerLimiter struct {
	name               string
	config             config.RateLimitConfig
	distributedLimiter adapter.RedisRateLimiter
	localLimiter       *rate.Limiter
	preFilterLimiter   *rate.Limiter
}

// NewLimiter creates a new distributed rate limiter
func NewLimiter(cfg config.RateLimiterConfig, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
	}

	distributedLimiter := rc.RateLimiter()

	providers := make(map[string]*providerLimiter)
	for name, providerConfig := range cfg.Providers {
		// Local fallback runs at a fraction of the shared rate, at least 1 rps
		localRate := max(float64(providerConfig.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)

		providers[name] = &providerLimiter{
			name:               name,
			config:             providerConfig,
			distributedLimiter: distributedLimiter,
			localLimiter:       rate.NewLimiter(rate.Limit(localRate), providerConfig.Burst),
			preFilterLimiter:   rate.NewLimiter(rate.Limit(providerConfig.RequestsPerSecond), providerConfig.Burst),
		}
	}

	l := &limiter{
		config:    cfg,
		providers: providers,
		redis:     rc,
		clock:     clock,
		stopCh:    make(chan struct{}),
	}
	l.redisAvailable.Store(redisAvailable)

	l.wg.Add(1)
	go l.monitorRedisHealth()

	logger.Info("Rate limiter initialized",
		zap.Int("providers", len(cfg.Providers)),
		zap.Bool("redis_available", redisAvailable),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return l, nil
}

// Do waits for a rate limit token for provider and then runs fn.
// A nil limiter runs fn directly.
func Do[T any](ctx context.Context, l Limiter, provider string, fn func(ctx context.Context) (T, error)) (T, error) {
	if l == nil {
		return fn(ctx)
	}

	var zero T
	if err := l.Wait(ctx, provider); err != nil {
		return zero, fmt.Errorf("rate limit wait for %s: %w", provider, err)
	}
	return fn(ctx)
}

// Wait blocks until a token is acquired for provider
func (l *limiter) Wait(ctx context.Context, provider string) error {
	if l.closed.Load() {
		return ErrLimiterClosed
	}

	pl, ok := l.providers[provider]
	if !ok {
		return fmt.Errorf("provider '%s' not configured", provider)
	}

	waitCtx, cancel := context.WithTimeout(ctx, pl.config.MaxWaitTime)
	defer cancel()

	return l.acquireToken(waitCtx, pl)
}

// acquireToken acquires a rate limit token, blocking until one is available
func (l *limiter) acquireToken(ctx context.Context, pl *providerLimiter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if l.redisAvailable.Load() {
			allowed, retryAfter, err := l.tryDistributedLimit(ctx, pl)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}

				l.redisAvailable.Store(false)
				if !l.config.EnableLocalFallback {
					return fmt.Errorf("redis rate limiter unavailable: %w", err)
				}

				logger.Warn("Redis rate limiter error, falling back to local",
					zap.String("provider", pl.name),
					zap.Error(err),
				)
			case allowed:
				return nil
			default:
				// Spread retries over 50-150% of retryAfter
				jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-l.clock.After(jitter):
					continue
				}
			}
		}

		if l.config.EnableLocalFallback {
			return pl.localLimiter.Wait(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(100 * time.Millisecond):
		}
	}
}

// tryDistributedLimit attempts to acquire a token from the distributed limiter
// Returns: (allowed bool, retryAfter duration, error)
func (l *limiter) tryDistributedLimit(ctx context.Context, pl *providerLimiter) (bool, time.Duration, error) {
	if pl.distributedLimiter == nil {
		return false, 0, fmt.Errorf("distributed limiter not available")
	}

	// Pre-filter locally so idle workers don't hammer Redis
	if err := pl.preFilterLimiter.Wait(ctx); err != nil {
		return false, 0, err
	}

	res, err := pl.distributedLimiter.Allow(ctx, l.config.RedisKeyPrefix+pl.name, redis_rate.PerSecond(pl.config.RequestsPerSecond))
	if err != nil {
		return false, 0, err
	}

	if res.Allowed == 0 {
		logger.Debug("Rate limit token unavailable, waiting",
			zap.String("provider", pl.name),
			zap.Duration("retry_after", res.RetryAfter),
			zap.Int("remaining", res.Remaining),
		)
		return false, max(res.RetryAfter, time.Millisecond), nil
	}

	return true, 0, nil
}

// monitorRedisHealth periodically checks Redis health and updates availability status
func (l *limiter) monitorRedisHealth() {
	defer l.wg.Done()

	ticker := l.clock.NewTicker(l.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := l.redis.Ping(ctx)
		cancel()

		redisAvailable := err == nil
		wasAvailable := l.redisAvailable.Swap(redisAvailable)

		if !wasAvailable && redisAvailable {
			logger.Info("Redis connection restored")
		}
	}
}

// Close stops health monitoring and closes the Redis connection
func (l *limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.stopCh)
		l.wg.Wait()

		if closeErr := l.redis.Close(); closeErr != nil {
			logger.Warn("Error closing Redis connection", zap.Error(closeErr))
			err = closeErr
		}

		logger.Info("Rate limiter shutdown complete")
	})
	return err
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *config.RateLimiterConfig) error {
	if cfg.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required")
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	providers := make(map[string]config.RateLimitConfig, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		if provider.RequestsPerSecond <= 0 {
			return fmt.Errorf("provider %s: requests_per_second must be positive", name)
		}

		if provider.Burst <= 0 {
			provider.Burst = provider.RequestsPerSecond
		}

		if provider.MaxWaitTime <= 0 {
			provider.MaxWaitTime = time.Minute
		}

		providers[name] = provider
	}
	cfg.Providers = providers

	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "ff:transfer-indexer:limiter:"
	}

	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}

	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 10 * time.Second
	}

	return nil
}
