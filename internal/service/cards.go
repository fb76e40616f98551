// Package service orchestrates the card pipeline: fetch, aggregate, cache,
// render.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/card"
	"github.com/fortuna/statcard/internal/events"
	"github.com/fortuna/statcard/internal/faceit"
	"github.com/fortuna/statcard/internal/stats"
)

// StatsSource is the slice of the platform client the service needs.
type StatsSource interface {
	Player(ctx context.Context, nickname string) (*faceit.PlayerProfile, error)
	MatchHistory(ctx context.Context, playerID string, window int) (faceit.MatchHistory, error)
}

// CardProducer renders a card for the given inputs under the given key.
type CardProducer interface {
	Render(ctx context.Context, profile *faceit.PlayerProfile, agg stats.Aggregated, templateID, key string) (*card.RenderedCard, error)
}

// TemplateResolver validates template ids before any upstream work happens.
type TemplateResolver interface {
	Get(id string) (*card.CardTemplate, error)
}

// CardService is the downstream delivery contract: (nickname, templateID) in,
// image bytes or a typed error out.
type CardService struct {
	source     StatsSource
	templates  TemplateResolver
	renderer   CardProducer
	cache      *card.Cache
	hub        *events.Hub
	windowSize int
	logger     zerolog.Logger
}

// NewCardService wires the pipeline together.
func NewCardService(source StatsSource, templates TemplateResolver, renderer CardProducer, cache *card.Cache, hub *events.Hub, windowSize int, logger zerolog.Logger) *CardService {
	return &CardService{
		source:     source,
		templates:  templates,
		renderer:   renderer,
		cache:      cache,
		hub:        hub,
		windowSize: windowSize,
		logger:     logger,
	}
}

// PlayerCard produces the stat card for a nickname. An unknown player or
// template fails before any render resources are touched; a cache hit never
// touches the render pool or the platform API beyond the profile fetch.
func (s *CardService) PlayerCard(ctx context.Context, nickname, templateID string) (*card.RenderedCard, error) {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}

	profile, err := s.source.Player(ctx, nickname)
	if err != nil {
		return nil, err
	}

	history, err := s.source.MatchHistory(ctx, profile.ID, s.windowSize)
	if err != nil {
		return nil, err
	}

	agg := stats.Aggregate(history)
	key := card.Key(profile, agg, tmpl.ID, tmpl.Version)

	rendered, hit, err := s.cache.GetOrRender(ctx, key, func(flightCtx context.Context) (*card.RenderedCard, error) {
		s.publish(events.TypeRenderStarted, profile.Nickname, templateID, key)
		out, renderErr := s.renderer.Render(flightCtx, profile, agg, templateID, key)
		if renderErr != nil {
			s.publish(events.TypeRenderFailed, profile.Nickname, templateID, key)
			return nil, renderErr
		}
		s.publish(events.TypeRenderCompleted, profile.Nickname, templateID, key)
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	if hit {
		s.publish(events.TypeCacheHit, profile.Nickname, templateID, key)
	}

	s.logger.Info().
		Str("nickname", profile.Nickname).
		Str("template", templateID).
		Str("key", key).
		Bool("cache_hit", hit).
		Int("matches", agg.Matches).
		Msg("card served")

	return rendered, nil
}

func (s *CardService) publish(eventType events.Type, nickname, templateID, key string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(events.Event{
		Type:     eventType,
		Nickname: nickname,
		Template: templateID,
		Key:      key,
	})
}
