// cmd/sentinel/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pose-sentinel/internal/alerting"
	"pose-sentinel/internal/api"
	"pose-sentinel/internal/auth"
	"pose-sentinel/internal/config"
	"pose-sentinel/internal/engine"
	"pose-sentinel/internal/gait"
	"pose-sentinel/internal/storage"
	"pose-sentinel/internal/websocket"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := config.LoadConfig(*configPath); err != nil {
		logger.Warn().Err(err).Msg("loading config, continuing with defaults")
	}
	cfg := &config.AppConfig

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	}
	if cfg.Logging.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// --- Initialize Components ---
	var profiles gait.ProfileStore
	if len(cfg.Gait.Profiles) > 0 {
		profiles = gait.StaticProfiles(cfg.Gait.Profiles)
	}

	eng := engine.New(engine.Config{
		SampleRate:     cfg.Analysis.SampleRate,
		BufferCapacity: cfg.Analysis.BufferCapacity,
		Cooldown:       cfg.Cooldown(),
		Rules:          cfg.Rules(),
		Profiles:       profiles,
	}, logger.With().Str("component", "engine").Logger())

	store := storage.NewMemoryStore(cfg.History.Capacity)
	hub := websocket.NewHub(logger.With().Str("component", "hub").Logger())
	alerter := alerting.NewAlerter(hub, logger.With().Str("component", "alerter").Logger())
	authManager := auth.NewManager(cfg.Auth)

	apiHandler := api.NewAPIHandler(eng, store, hub, alerter, authManager,
		logger.With().Str("component", "api").Logger())

	// --- Start WebSocket Hub ---
	go hub.Run()

	// --- Setup HTTP Servers ---
	dataServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.DataPort),
		Handler: api.SetupDataRouter(apiHandler, authManager),
	}
	uiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.UIPort),
		Handler: api.SetupUIRouter(apiHandler, authManager),
	}

	// --- Start Servers in Goroutines ---
	go func() {
		logger.Info().Int("port", cfg.Server.DataPort).Msg("starting ingestion server")
		if err := dataServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ingestion server failed")
		}
	}()

	go func() {
		logger.Info().Int("port", cfg.Server.UIPort).Msg("starting monitoring server")
		if err := uiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("monitoring server failed")
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down servers")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dataServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("ingestion server shutdown")
	}
	if err := uiServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("monitoring server shutdown")
	}

	logger.Info().Msg("servers stopped")
}
