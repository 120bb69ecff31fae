package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the failed-login lockout limiter.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// LockoutLimiter counts consecutive failed logins per email and suppresses
// login for a fixed window once the threshold is reached. Keys are email
// based so the limiter also covers attempts against unknown accounts.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) countKey(email string) string {
	return "lo:cnt:" + email
}

func (l *LockoutLimiter) lockKey(email string) string {
	return "lo:lock:" + email
}

// RecordFailure increments the failure counter for email and places the
// lock once the threshold is reached. It returns the count after the
// increment and whether the account is now locked. SET NX keeps an already
// running lock window from being extended by further attempts.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, email string) (int, bool, error) {
	if !l.config.Enabled || email == "" {
		return 0, false, nil
	}

	count, err := l.redis.Incr(ctx, l.countKey(email)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count == 1 && l.config.Duration > 0 {
		// The counter window matches the lock duration so stale failures
		// age out on their own.
		if err := l.redis.Expire(ctx, l.countKey(email), l.config.Duration).Err(); err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	if count < int64(l.config.Threshold) {
		return int(count), false, nil
	}

	if err := l.redis.SetNX(ctx, l.lockKey(email), 1, l.config.Duration).Err(); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return int(count), true, nil
}

// IsLocked reports whether email is currently inside a lockout window.
func (l *LockoutLimiter) IsLocked(ctx context.Context, email string) (bool, error) {
	if !l.config.Enabled || email == "" {
		return false, nil
	}

	exists, err := l.redis.Exists(ctx, l.lockKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return exists == 1, nil
}

// Reset clears the failure counter and any active lock for email. Called
// after a successful login.
func (l *LockoutLimiter) Reset(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.countKey(email), l.lockKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current consecutive-failure count for email.
func (l *LockoutLimiter) FailureCount(ctx context.Context, email string) (int, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.countKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
