package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/adapters/auth"
	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/adapters/media"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	engine, err := media.NewEngine(media.Config{
		AnnouncedIP: cfg.AnnouncedIP,
		PortMin:     cfg.RTCPortMin,
		PortMax:     cfg.RTCPortMax,
		ICELite:     cfg.ICELite,
		STUNServers: cfg.STUNServers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init media engine")
	}

	rooms := app.NewRoomRegistry(engine)

	orch := &app.Orchestrator{
		Sessions:      app.NewSessionRegistry(),
		Users:         auth.NewMemStore(),
		Tokens:        auth.NewTokenManager(cfg.Secret, cfg.TokenTTL),
		Rooms:         rooms,
		Cleanup:       app.NewCleanupScheduler(rooms, cfg.CleanupDelay),
		EngineTimeout: cfg.EngineTimeout,
	}

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	rooms.CloseAll()
	log.Info().Msg("Server exited gracefully")
}
