package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldline/backend/internal/config"
	"github.com/fieldline/backend/internal/db"
	"github.com/fieldline/backend/internal/dispatch"
	httpapi "github.com/fieldline/backend/internal/http"
	"github.com/fieldline/backend/internal/insights"
	"github.com/fieldline/backend/internal/match"
	"github.com/fieldline/backend/internal/route"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "fieldline-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	var matcher match.Matcher
	if cfg.MatchURL == "" {
		matcher = match.MockMatcher{Directory: store}
		logger.Info().Msg("using mock matcher")
	} else {
		matcher = match.HTTPMatcher{BaseURL: cfg.MatchURL}
	}

	var optimizer route.Optimizer
	if cfg.RouteURL == "" {
		optimizer = route.MockOptimizer{Source: store, Location: loc}
		logger.Info().Msg("using mock route optimizer")
	} else {
		optimizer = route.NewHTTPOptimizer(cfg.RouteURL, "", cfg.RouteRatePerSec)
	}

	var assistant insights.Assistant
	if cfg.AssistantBaseURL != "" && cfg.AssistantAPIKey != "" {
		assistant = insights.NewOpenAICompat(cfg.AssistantBaseURL, cfg.AssistantModel, cfg.AssistantAPIKey, cfg.AssistantCacheTTL)
	} else {
		logger.Info().Msg("assistant disabled: no base url or api key")
	}

	boards := dispatch.NewRegistry(dispatch.Deps{
		Source:    store,
		Matcher:   matcher,
		Optimizer: optimizer,
		Location:  loc,
		Logger:    logger,
	})

	router := httpapi.Router(cfg, store, boards, assistant, loc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
