package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/oauth"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/rest"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/config"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/logger"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters
	var closers closeStack
	defer closers.closeAll(log)

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := openStorage(startCtx, cfg, &closers)
	if err != nil {
		return err
	}
	rc := &redisConn{cfg: cfg, closers: &closers}
	sessions, err := openSessions(startCtx, cfg, rc)
	if err != nil {
		return err
	}
	events, err := openEvents(startCtx, cfg, log, rc, &closers)
	if err != nil {
		return err
	}
	media, err := openMedia(startCtx, cfg)
	if err != nil {
		return err
	}
	log.Info("adapters ready",
		"storage", cfg.StorageDriver,
		"sessions", cfg.SessionDriver,
		"events", cfg.EventsDriver,
		"media", cfg.MediaDriver,
	)

	// 3. Core
	pool := worker.NewPool(media, worker.Config{Workers: cfg.WorkerCount, QueueSize: cfg.WorkerQueue}, log)
	deps := services.Deps{
		Users:      store.users,
		Songs:      store.songs,
		Playlists:  store.playlists,
		Sessions:   sessions,
		Media:      media,
		Events:     events,
		Analysis:   pool,
		Log:        log,
		AdminEmail: cfg.AdminEmail,
	}
	songs := services.NewSongService(deps)
	pool.Start(songs)
	defer pool.Stop()

	var identity ports.IdentityProvider
	if cfg.GoogleEnabled() {
		identity = oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Log:          log,
		})
	}

	// 4. Driving adapter
	handler := rest.NewHandler(rest.Deps{
		Users:     services.NewUserService(deps),
		Songs:     songs,
		Playlists: services.NewPlaylistService(deps),
		Admin:     services.NewAdminService(deps),
		Sessions:  sessions,
		Identity:  identity,
		Log:       log,
	}, rest.Config{
		SessionSecret: []byte(cfg.SessionSecret),
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: !cfg.IsDevelopment(),
		MaxUploadSize: cfg.MaxUploadSize,
	})

	// 5. Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("TuneForge API listening", "addr", srv.Addr, "env", cfg.Environment)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}
	return nil
}
