package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSecretQ/internal/rate"
)

// ErrTooManyAttempts is returned by an [AttemptLimiter] once a user or
// address has used up its wrong-answer allowance.
var ErrTooManyAttempts = rate.ErrRateLimited

// AttemptLimiter throttles wrong answers on the challenge form.
type AttemptLimiter interface {
	Check(ctx context.Context, userID, ip string) error
	RecordFailure(ctx context.Context, userID, ip string) error
	Reset(ctx context.Context, userID string) error
}

// AttemptLimitConfig tunes [NewAttemptLimiter]. Zero values mean 5 attempts
// per 5 minutes, with the per-IP limit at four times the per-user limit.
type AttemptLimitConfig struct {
	MaxAttempts      int
	Window           time.Duration
	EnableIPThrottle bool
	IPMaxAttempts    int
}

// NewAttemptLimiter returns a Redis fixed-window [AttemptLimiter].
func NewAttemptLimiter(rdb redis.UniversalClient, cfg AttemptLimitConfig) AttemptLimiter {
	return rate.New(rdb, rate.Config{
		MaxAttempts:      cfg.MaxAttempts,
		Window:           cfg.Window,
		EnableIPThrottle: cfg.EnableIPThrottle,
		IPMaxAttempts:    cfg.IPMaxAttempts,
	})
}

func limiterStatus(err error) int {
	if errors.Is(err, rate.ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	return http.StatusServiceUnavailable
}
