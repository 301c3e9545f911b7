package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	rateLimitPrefix = "ratelimit:"
	rateLimitWindow = time.Minute
)

// RateLimiter counts requests per device in aligned one-minute windows.
// Each window has its own key.
type RateLimiter struct {
	client            *Client
	requestsPerMinute int
	burst             int
	now               func() time.Time
}

func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		now:               time.Now,
	}
}

func (r *RateLimiter) windowKey(key string, windowStart time.Time) string {
	return rateLimitPrefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

// Allow counts a request against key.
// Returns (allowed, remaining, resetTime, error).
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := r.now().UTC()
	windowStart := now.Truncate(rateLimitWindow)
	windowEnd := windowStart.Add(rateLimitWindow)
	fullKey := r.windowKey(key, windowStart)

	pipe := r.client.rdb.TxPipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	// expire one window after it closes
	pipe.Expire(ctx, fullKey, windowEnd.Sub(now)+rateLimitWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	limit := int64(r.requestsPerMinute + r.burst)
	count := incrCmd.Val()
	remaining := max(int(limit-count), 0)

	return count <= limit, remaining, windowEnd, nil
}

// Reset clears the current window's counter for key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	windowStart := r.now().UTC().Truncate(rateLimitWindow)
	return r.client.rdb.Del(ctx, r.windowKey(key, windowStart)).Err()
}
