package slack

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Published per-minute request limits for each tier.
var tierRequestsPerMinute = map[Tier]int{
	Tier1: 1,
	Tier2: 20,
	Tier3: 50,
	Tier4: 100,
}

// TierLimiter throttles requests per tier so the client stays under
// Slack's published limits before the server answers with 429.
type TierLimiter struct {
	buckets map[Tier]*rate.Limiter
}

// NewTierLimiter creates token buckets for every tier.
func NewTierLimiter() *TierLimiter {
	buckets := make(map[Tier]*rate.Limiter, len(tierRequestsPerMinute))
	for tier, perMinute := range tierRequestsPerMinute {
		buckets[tier] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return &TierLimiter{buckets: buckets}
}

// Unlimited returns a TierLimiter that never blocks.
func Unlimited() *TierLimiter {
	return &TierLimiter{buckets: map[Tier]*rate.Limiter{}}
}

// Wait blocks until a request in tier may be sent or ctx is done.
func (l *TierLimiter) Wait(ctx context.Context, tier Tier) error {
	bucket, ok := l.buckets[tier]
	if !ok {
		return ctx.Err()
	}
	return bucket.Wait(ctx)
}
