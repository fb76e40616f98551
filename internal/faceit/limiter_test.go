package faceit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateGate_EnforcesCeiling(t *testing.T) {
	// 50 rps, 20 concurrent acquisitions: the gate must spread them out so
	// no sliding one-second window ever holds more than the ceiling.
	const (
		rps      = 50
		requests = 20
	)

	gate := NewRateGate(rps)

	var mu sync.Mutex
	var stamps []time.Time

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, gate.Acquire(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, stamps, requests)

	// Count acquisitions inside every sliding one-second window anchored at
	// each acquisition.
	for _, anchor := range stamps {
		inWindow := 0
		for _, s := range stamps {
			if !s.Before(anchor) && s.Sub(anchor) < time.Second {
				inWindow++
			}
		}
		// Burst is 1, so a window can hold at most rps+1 acquisitions.
		assert.LessOrEqual(t, inWindow, rps+1)
	}
}

func TestRateGate_DelaysBeyondBurst(t *testing.T) {
	gate := NewRateGate(100) // 10ms per token, burst 1

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, gate.Acquire(context.Background()))
	}

	// First token is free; the remaining four cost 10ms each.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateGate_AcquireHonorsCancellation(t *testing.T) {
	gate := NewRateGate(0.1) // one token every ten seconds

	require.NoError(t, gate.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := gate.Acquire(ctx)
	assert.Error(t, err, "a waiting acquire must abort when the context expires")
}
