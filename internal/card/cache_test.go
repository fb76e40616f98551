package card

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SingleFlight(t *testing.T) {
	cache := NewCache(16, time.Minute, zerolog.Nop())

	var renders atomic.Int32
	release := make(chan struct{})

	produce := func(context.Context) (*RenderedCard, error) {
		renders.Add(1)
		<-release
		return &RenderedCard{Image: []byte("card-bytes"), Key: "k"}, nil
	}

	const callers = 10
	results := make([][]byte, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rendered, _, err := cache.GetOrRender(context.Background(), "k", produce)
			require.NoError(t, err)
			results[i] = rendered.Image
		}(i)
	}

	// Give every caller time to attach to the flight before it completes.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), renders.Load(), "concurrent callers must share one render")
	for _, image := range results {
		assert.Equal(t, []byte("card-bytes"), image)
	}
}

func TestCache_HitSkipsProducer(t *testing.T) {
	cache := NewCache(16, time.Minute, zerolog.Nop())

	var renders atomic.Int32
	produce := func(context.Context) (*RenderedCard, error) {
		renders.Add(1)
		return &RenderedCard{Image: []byte("img"), Key: "k"}, nil
	}

	_, hit, err := cache.GetOrRender(context.Background(), "k", produce)
	require.NoError(t, err)
	assert.False(t, hit)

	rendered, hit, err := cache.GetOrRender(context.Background(), "k", produce)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("img"), rendered.Image)
	assert.Equal(t, int32(1), renders.Load())
}

func TestCache_FailedFlightIsNotPoisoned(t *testing.T) {
	cache := NewCache(16, time.Minute, zerolog.Nop())

	boom := errors.New("capture failed")
	_, _, err := cache.GetOrRender(context.Background(), "k", func(context.Context) (*RenderedCard, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, cache.Len(), "failures must not be cached")

	rendered, hit, err := cache.GetOrRender(context.Background(), "k", func(context.Context) (*RenderedCard, error) {
		return &RenderedCard{Image: []byte("img"), Key: "k"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("img"), rendered.Image)
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := NewCache(16, 30*time.Millisecond, zerolog.Nop())

	var renders atomic.Int32
	produce := func(context.Context) (*RenderedCard, error) {
		renders.Add(1)
		return &RenderedCard{Image: []byte("img"), Key: "k"}, nil
	}

	_, _, err := cache.GetOrRender(context.Background(), "k", produce)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, hit, err := cache.GetOrRender(context.Background(), "k", produce)
	require.NoError(t, err)
	assert.False(t, hit, "an expired entry must be re-rendered")
	assert.Equal(t, int32(2), renders.Load())
}

func TestCache_CapacityEviction(t *testing.T) {
	cache := NewCache(2, time.Minute, zerolog.Nop())

	for _, key := range []string{"a", "b", "c"} {
		k := key
		_, _, err := cache.GetOrRender(context.Background(), k, func(context.Context) (*RenderedCard, error) {
			return &RenderedCard{Image: []byte(k), Key: k}, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cache.Len(), "capacity bound must hold")

	// "a" is the least recently used entry and must have been evicted.
	var renders atomic.Int32
	_, hit, err := cache.GetOrRender(context.Background(), "a", func(context.Context) (*RenderedCard, error) {
		renders.Add(1)
		return &RenderedCard{Image: []byte("a")}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(1), renders.Load())
}

func TestCache_FlightSurvivesInitiatorCancel(t *testing.T) {
	cache := NewCache(16, time.Minute, zerolog.Nop())

	// The producer honors its context, like the real render path does. The
	// flight context must stay alive after the initiating caller cancels.
	started := make(chan struct{})
	release := make(chan struct{})
	produce := func(ctx context.Context) (*RenderedCard, error) {
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return &RenderedCard{Image: []byte("img"), Key: "k"}, nil
		}
	}

	initiatorCtx, cancelInitiator := context.WithCancel(context.Background())
	initiatorErr := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrRender(initiatorCtx, "k", produce)
		initiatorErr <- err
	}()
	<-started

	attachedResult := make(chan *RenderedCard, 1)
	attachedErr := make(chan error, 1)
	go func() {
		rendered, _, err := cache.GetOrRender(context.Background(), "k", produce)
		attachedResult <- rendered
		attachedErr <- err
	}()
	time.Sleep(10 * time.Millisecond)

	cancelInitiator()

	select {
	case err := <-initiatorErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("initiating caller did not return after cancel")
	}

	close(release)

	select {
	case err := <-attachedErr:
		require.NoError(t, err, "an attached caller with a live context must not inherit the initiator's cancellation")
		assert.Equal(t, []byte("img"), (<-attachedResult).Image)
	case <-time.After(time.Second):
		t.Fatal("attached caller did not return")
	}
}

func TestCache_AbandonedCallerDoesNotBlockOthers(t *testing.T) {
	cache := NewCache(16, time.Minute, zerolog.Nop())

	release := make(chan struct{})
	produce := func(context.Context) (*RenderedCard, error) {
		<-release
		return &RenderedCard{Image: []byte("img"), Key: "k"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrRender(ctx, "k", produce)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("abandoned caller did not return")
	}

	// The flight finishes in the background and later callers see its result.
	close(release)

	require.Eventually(t, func() bool {
		rendered, hit, err := cache.GetOrRender(context.Background(), "k", func(context.Context) (*RenderedCard, error) {
			return &RenderedCard{Image: []byte("fresh"), Key: "k"}, nil
		})
		return err == nil && rendered != nil && hit
	}, time.Second, 10*time.Millisecond, "the abandoned flight's result must land in the cache")
}
