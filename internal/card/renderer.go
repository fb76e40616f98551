package card

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/faceit"
	"github.com/fortuna/statcard/internal/render"
	"github.com/fortuna/statcard/internal/stats"
)

// SurfacePool is the slice of the render pool the renderer needs. The
// concrete implementation is render.Pool; tests substitute fakes.
type SurfacePool interface {
	Checkout(ctx context.Context) (render.Surface, error)
	Release(surface render.Surface)
	Discard(surface render.Surface)
}

// RenderedCard is a finished card image together with the key it was
// produced under.
type RenderedCard struct {
	Image  []byte
	Width  int64
	Height int64
	Key    string
}

// Renderer binds aggregated data into a template and captures the result on
// a pooled surface. Identical inputs produce byte-identical images; no
// timestamped overlays are rendered.
type Renderer struct {
	store  *Store
	pool   SurfacePool
	logger zerolog.Logger
}

// NewRenderer creates a renderer over the given template store and pool.
func NewRenderer(store *Store, pool SurfacePool, logger zerolog.Logger) *Renderer {
	return &Renderer{store: store, pool: pool, logger: logger}
}

// Render produces the card image for (profile, agg, templateID) under the
// given cache key. A failed capture is retried exactly once on a fresh
// surface; the crashed surface is discarded, never returned to the pool.
func (r *Renderer) Render(ctx context.Context, profile *faceit.PlayerProfile, agg stats.Aggregated, templateID, key string) (*RenderedCard, error) {
	tmpl, err := r.store.Get(templateID)
	if err != nil {
		return nil, err
	}

	html, err := tmpl.Bind(bindData(profile, agg))
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		surface, err := r.pool.Checkout(ctx)
		if err != nil {
			return nil, err
		}

		image, err := surface.Capture(ctx, html, tmpl.Width, tmpl.Height)
		if err != nil {
			r.pool.Discard(surface)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn().
				Err(err).
				Str("template", templateID).
				Int("attempt", attempt+1).
				Msg("capture failed")
			lastErr = err
			continue
		}

		r.pool.Release(surface)
		return &RenderedCard{
			Image:  image,
			Width:  tmpl.Width,
			Height: tmpl.Height,
			Key:    key,
		}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrCapture, lastErr)
}

// bindData formats profile and aggregate values for presentation.
func bindData(profile *faceit.PlayerProfile, agg stats.Aggregated) *CardData {
	data := &CardData{
		Nickname:     profile.Nickname,
		Country:      profile.Country,
		CountryFlag:  faceit.CountryFlag(profile.Country),
		Elo:          profile.Elo,
		SkillLevel:   profile.SkillLevel,
		Matches:      agg.Matches,
		Insufficient: agg.InsufficientData,
	}

	if agg.InsufficientData {
		data.WinRate = "—"
		data.KDRatio = "—"
		data.AvgKills = "—"
		data.Streak = "—"
		return data
	}

	data.WinRate = fmt.Sprintf("%.0f%%", agg.WinRate*100)
	data.KDRatio = fmt.Sprintf("%.2f", agg.KDRatio)
	data.AvgKills = fmt.Sprintf("%.1f", agg.AvgKills)

	switch agg.StreakDirection {
	case stats.StreakWin:
		data.Streak = fmt.Sprintf("W%d", agg.StreakLength)
	case stats.StreakLoss:
		data.Streak = fmt.Sprintf("L%d", agg.StreakLength)
	default:
		data.Streak = "—"
	}
	return data
}
