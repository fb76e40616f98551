package card

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes rendered cards by content key with single-flight semantics:
// concurrent requests for the same key share one underlying render. Stored
// entries expire after the TTL and the oldest entries are evicted once the
// capacity bound is exceeded.
type Cache struct {
	entries *expirable.LRU[string, *RenderedCard]
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewCache creates a card cache bounded by capacity entries and ttl age.
func NewCache(capacity int, ttl time.Duration, logger zerolog.Logger) *Cache {
	c := &Cache{logger: logger}
	c.entries = expirable.NewLRU[string, *RenderedCard](capacity, func(key string, _ *RenderedCard) {
		logger.Debug().Str("key", key).Msg("card evicted")
	}, ttl)
	return c
}

// GetOrRender returns the cached card for key, or runs produce exactly once
// across all concurrent callers for the key and stores a successful result.
// A failed flight is never stored; the in-flight marker clears when produce
// returns, so a later call retries instead of seeing a poisoned slot. The
// second return value reports whether the card came from cache.
//
// The flight runs under a context detached from the initiating caller, so
// one caller cancelling never fails the callers attached to the same flight.
// Produce must bound its own work; the render path does via its capture
// timeout.
func (c *Cache) GetOrRender(ctx context.Context, key string, produce func(ctx context.Context) (*RenderedCard, error)) (*RenderedCard, bool, error) {
	if cached, ok := c.entries.Get(key); ok {
		return cached, true, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		rendered, err := produce(flightCtx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, rendered)
		return rendered, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*RenderedCard), false, nil
	case <-ctx.Done():
		// The caller abandoned the request; the flight keeps running and
		// its result, if any, lands in the cache for later callers.
		return nil, false, ctx.Err()
	}
}

// Len reports the number of cached cards.
func (c *Cache) Len() int {
	return c.entries.Len()
}
