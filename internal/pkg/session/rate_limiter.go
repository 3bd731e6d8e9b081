// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter caps how often an OTP can be sent to one number.
type Limiter interface {
	AllowOTPSend(ctx context.Context, msisdn string) (bool, error)
}

type RateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

func NewRateLimiter(client *redis.Client, maxAttempts int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

// AllowOTPSend counts a send attempt and reports whether it is within the window budget.
func (r *RateLimiter) AllowOTPSend(ctx context.Context, msisdn string) (bool, error) {
	key := fmt.Sprintf("ratelimit:otp_send:%s", msisdn)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment OTP send attempt: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set OTP send window: %w", err)
		}
	}

	return count <= r.maxAttempts, nil
}

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryRateLimiter is the single-process variant used in memory storage mode.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxAttempts int64
	window      time.Duration
	now         func() time.Time
}

func NewMemoryRateLimiter(maxAttempts int64, w time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		windows:     make(map[string]*window),
		maxAttempts: maxAttempts,
		window:      w,
		now:         time.Now,
	}
}

func (r *MemoryRateLimiter) AllowOTPSend(_ context.Context, msisdn string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[msisdn]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(r.window)}
		r.windows[msisdn] = w
	}
	w.count++
	return w.count <= r.maxAttempts, nil
}
