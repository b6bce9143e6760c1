package rate

import "errors"

var (
	// ErrRateLimited is returned once a user or IP reaches its attempt limit.
	ErrRateLimited = errors.New("too many secret question attempts")
	// ErrRedisUnavailable wraps counter backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
