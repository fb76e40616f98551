package faceit

import (
	"context"

	"golang.org/x/time/rate"
)

// RateGate is the process-wide token bucket in front of every outbound FACEIT
// request. One instance is shared by all concurrent callers; no request path
// may bypass it. Acquire only delays, it never fails on its own. The sole
// error it can return is the caller's context expiring while waiting.
type RateGate struct {
	limiter *rate.Limiter
}

// NewRateGate builds a gate allowing rps requests per second with no burst
// beyond a single token, matching the platform's per-second ceiling.
func NewRateGate(rps float64) *RateGate {
	return &RateGate{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Acquire blocks until a token is available, then consumes it.
func (g *RateGate) Acquire(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
