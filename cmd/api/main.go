package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dreamboard/internal/adapter/repo"
	"dreamboard/internal/domain"
	"dreamboard/internal/download"
	"dreamboard/internal/generate"
	"dreamboard/internal/http/handlers"
	"dreamboard/internal/http/httpapi"
	"dreamboard/internal/infra"
	"dreamboard/internal/infra/geoip"
	"dreamboard/internal/render"
	"dreamboard/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	var jobRepo domain.JobRepository
	if pool != nil {
		defer pool.Close()
		jobRepo = repo.NewJobRepository(pool)
		logger.Info().Msg("job history enabled")
	} else {
		logger.Info().Msg("DATABASE_URL not set, job history disabled")
	}

	client := render.NewClient(render.Options{
		BaseURL:  cfg.RenderBaseURL,
		APIToken: cfg.RenderAPIToken,
	})

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage init failed")
	}

	bridge, err := download.NewBridge(download.Options{
		BaseURL: client.BaseURL(),
		Store:   store,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("download bridge init failed")
	}

	engine := generate.NewEngine(client, jobRepo, logger, generate.Options{
		PromptMaxChars: cfg.PromptMaxChars,
		PromptStyle:    cfg.PromptStyle,
		PollInterval:   cfg.PollInterval,
		ProgressTick:   cfg.ProgressTick,
		MaxWait:        cfg.MaxWait,
	})

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable, locale falls back to headers")
	}

	app := &handlers.App{
		Cfg:      cfg,
		Logger:   logger,
		Sessions: generate.NewSessions(),
		Engine:   engine,
		Bridge:   bridge,
		Repo:     jobRepo,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, resolver))

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server starting")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
