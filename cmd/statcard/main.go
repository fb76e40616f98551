package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/api/rest"
	apiws "github.com/fortuna/statcard/internal/api/websocket"
	"github.com/fortuna/statcard/internal/cache"
	"github.com/fortuna/statcard/internal/card"
	"github.com/fortuna/statcard/internal/config"
	"github.com/fortuna/statcard/internal/events"
	"github.com/fortuna/statcard/internal/faceit"
	"github.com/fortuna/statcard/internal/render"
	"github.com/fortuna/statcard/internal/service"
)

const (
	serviceName    = "statcard"
	serviceVersion = "1.0.0"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().Str("version", serviceVersion).Msg("starting statcard")

	// Upstream response cache: Redis when configured, in-process otherwise.
	var responses cache.ResponseCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL, logger.With().Str("component", "cache").Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisCache.Close()
		responses = redisCache
		logger.Info().Msg("connected to Redis")
	} else {
		responses = cache.NewMemory()
		logger.Info().Msg("using in-process response cache")
	}

	// One rate gate shared by every outbound FACEIT call.
	gate := faceit.NewRateGate(cfg.RequestsPerSecond)
	client := faceit.NewClient(faceit.ClientConfig{
		BaseURL:        cfg.FaceitBaseURL,
		APIKey:         cfg.FaceitAPIKey,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		ResponseTTL:    cfg.ResponseCacheTTL,
	}, gate, responses, logger.With().Str("component", "faceit").Logger())

	// A rejected key aborts here, not on the first user request.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := client.CheckCredentials(startupCtx); err != nil {
		startupCancel()
		logger.Fatal().Err(err).Msg("FACEIT credential check failed")
	}
	startupCancel()
	logger.Info().Msg("FACEIT credentials verified")

	templates, err := card.NewStore(cfg.TemplateDir, logger.With().Str("component", "templates").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load templates")
	}

	allocator := render.NewAllocator()
	defer allocator.Close()

	pool := render.NewPool(allocator.NewSurface, cfg.PoolSize, cfg.CheckoutTimeout,
		logger.With().Str("component", "render").Logger())
	defer pool.Close()

	renderer := card.NewRenderer(templates, pool, logger.With().Str("component", "renderer").Logger())
	cardCache := card.NewCache(cfg.CacheCapacity, cfg.CacheTTL, logger.With().Str("component", "cardcache").Logger())

	hub := events.NewHub(logger.With().Str("component", "events").Logger())
	go hub.Run()
	defer hub.Stop()

	cards := service.NewCardService(client, templates, renderer, cardCache, hub, cfg.WindowSize,
		logger.With().Str("component", "cards").Logger())

	restServer := rest.NewServer(cfg.RESTPort, cards, templates.IDs(), cfg.DefaultTemplate,
		logger.With().Str("component", "rest").Logger())
	go func() {
		if err := restServer.Start(); err != nil {
			logger.Error().Err(err).Msg("REST server stopped")
		}
	}()
	logger.Info().Str("port", cfg.RESTPort).Msg("REST server listening")

	wsServer := apiws.NewServer(hub, logger.With().Str("component", "ws").Logger())
	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil {
			logger.Error().Err(err).Msg("websocket server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("REST server shutdown error")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("websocket server shutdown error")
	}

	logger.Info().Msg("statcard stopped")
}
