package adapter

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisOptions holds the connection settings of the rate limiter backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisClient defines the Redis operations the rate limiter needs, to enable mocking
//
//go:generate mockgen -source=redis.go -destination=../mocks/redis.go -package=mocks -mock_names=RedisClient=MockRedisClient,RedisRateLimiter=MockRedisRateLimiter
type RedisClient interface {
	// Ping checks if Redis is reachable
	Ping(ctx context.Context) error

	// RateLimiter returns a GCRA limiter backed by this client
	RateLimiter() RedisRateLimiter

	// Close closes the Redis connection
	Close() error
}

// RedisRateLimiter defines the distributed rate limiting operation
type RedisRateLimiter interface {
	// Allow reports whether one request under key fits the limit and, if not, how long to wait
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

type realRedisClient struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
}

// NewRedisClient creates a new Redis client
func NewRedisClient(opts RedisOptions) RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &realRedisClient{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
	}
}

func (r *realRedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *realRedisClient) RateLimiter() RedisRateLimiter {
	return r.limiter
}

func (r *realRedisClient) Close() error {
	return r.client.Close()
}
