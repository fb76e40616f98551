package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrCheckoutTimeout is returned when no surface frees up within the
// configured checkout window. Callers should treat it as "try again".
var ErrCheckoutTimeout = errors.New("render: surface checkout timed out")

// Pool bounds the number of surfaces in use at once. Capacity is enforced
// with tokens; surfaces themselves are built lazily and kept on an idle
// stack between checkouts, so a discarded (crashed) surface is replaced by
// a fresh one on the next checkout rather than eagerly.
type Pool struct {
	factory         Factory
	tokens          chan struct{}
	idle            chan Surface
	checkoutTimeout time.Duration
	logger          zerolog.Logger
}

// NewPool creates a pool of at most size concurrent surfaces.
func NewPool(factory Factory, size int, checkoutTimeout time.Duration, logger zerolog.Logger) *Pool {
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}

	return &Pool{
		factory:         factory,
		tokens:          tokens,
		idle:            make(chan Surface, size),
		checkoutTimeout: checkoutTimeout,
		logger:          logger,
	}
}

// Checkout returns a surface for exclusive use, blocking until one is free,
// the timeout elapses, or the context is cancelled. Every successful
// checkout must be balanced by exactly one Release or Discard.
func (p *Pool) Checkout(ctx context.Context) (Surface, error) {
	timer := time.NewTimer(p.checkoutTimeout)
	defer timer.Stop()

	select {
	case <-p.tokens:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrCheckoutTimeout
	}

	select {
	case surface := <-p.idle:
		return surface, nil
	default:
	}

	surface, err := p.factory()
	if err != nil {
		p.tokens <- struct{}{}
		return nil, fmt.Errorf("building surface: %w", err)
	}
	return surface, nil
}

// Release returns a healthy surface to the pool.
func (p *Pool) Release(surface Surface) {
	p.idle <- surface
	p.tokens <- struct{}{}
}

// Discard drops a surface that failed during use. The capacity token is
// returned without the surface, so the next checkout builds a replacement.
func (p *Pool) Discard(surface Surface) {
	surface.Close()
	p.tokens <- struct{}{}
	p.logger.Warn().Msg("render surface discarded, will be rebuilt on next checkout")
}

// Close tears down every idle surface. In-use surfaces are the
// responsibility of their current holders.
func (p *Pool) Close() {
	for {
		select {
		case surface := <-p.idle:
			surface.Close()
		default:
			return
		}
	}
}
