package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 5 * time.Minute
)

// Config holds limiter tuning parameters. Zero values fall back to
// 5 attempts per 5 minutes.
type Config struct {
	MaxAttempts      int
	Window           time.Duration
	EnableIPThrottle bool
	// IPMaxAttempts defaults to 4*MaxAttempts; one address often fronts
	// several users.
	IPMaxAttempts int
}

// Limiter counts wrong answers per user and, optionally, per client IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.IPMaxAttempts <= 0 {
		cfg.IPMaxAttempts = 4 * cfg.MaxAttempts
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check reports ErrRateLimited when userID or ip has reached its limit.
// It does not consume an attempt.
func (l *Limiter) Check(ctx context.Context, userID, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.checkCounter(ctx, userKey(userID), l.config.MaxAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, ipKey(ip), l.config.IPMaxAttempts); err != nil {
			return err
		}
	}

	return nil
}

// RecordFailure counts one wrong answer. It returns ErrRateLimited when
// this attempt reached the limit.
func (l *Limiter) RecordFailure(ctx context.Context, userID, ip string) error {
	if l == nil {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, userKey(userID), l.config.Window)
	if err != nil {
		return err
	}
	limited := count >= int64(l.config.MaxAttempts)

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, ipKey(ip), l.config.Window)
		if err != nil {
			return err
		}
		limited = limited || count >= int64(l.config.IPMaxAttempts)
	}

	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the user's counter after a correct answer. The IP counter
// is left alone so one good account cannot launder a spraying address.
func (l *Limiter) Reset(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the user's wrong answers in the current window.
// Missing keys return zero.
func (l *Limiter) Attempts(ctx context.Context, userID string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, userKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// TTL only on the first hit keeps the window fixed.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func userKey(userID string) string {
	return "sqa:" + userID
}

func ipKey(ip string) string {
	return "sqai:" + ip
}
