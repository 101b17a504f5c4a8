// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the handbook admin API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
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

	"golang.org/x/sync/errgroup"

	"handbook/internal/cache"
	"handbook/internal/config"
	"handbook/internal/database"
	"handbook/internal/editor"
	"handbook/internal/email"
	"handbook/internal/gitrepo"
	"handbook/internal/handlers"
	"handbook/internal/middleware"
	"handbook/internal/router"
	"handbook/internal/session"
	"handbook/internal/store"
)

// Credential endpoints accept this many attempts per client and window.
const (
	authRateLimit  = 10
	authRateWindow = 15 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"session_backend", cfg.SessionBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// Seed the development admin (no-op if users already exist).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return err
		}
	}

	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	repo := gitrepo.New(cfg.RepoDir)
	if err := repo.Init(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Session backend. The Postgres table needs a periodic sweep; Valkey
	// expires keys on its own.
	var backend session.Backend
	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		pg := session.NewPostgresBackend(db)
		backend = pg
		sweeper := session.NewSweeper(pg, cfg.SessionSweepInterval, slog.Default())
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	default:
		backend = session.NewValkeyBackend(valkeyClient)
	}
	sessions := session.NewStore(backend, cfg.SessionTTL, !cfg.IsDev())

	// Reviewer notifications stay off until SMTP is configured.
	var notifier editor.Notifier
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if mailer.IsConfigured() {
		notifier = mailer
	} else {
		slog.Warn("smtp not configured, reviewer notifications disabled")
	}

	repoStore := store.NewRepo(db)
	svc := editor.New(editor.Deps{
		Store:     repoStore,
		Repo:      repo,
		Locker:    cache.NewLocker(valkeyClient, cache.DefaultLockTTL),
		Notifier:  notifier,
		PRBaseURL: cfg.PRBaseURL,
	})

	limiter := middleware.NewRateLimiter(authRateLimit, authRateWindow)
	defer limiter.Stop()

	r := router.New(
		sessions,
		handlers.NewAuth(sessions, repoStore.UserStore),
		handlers.NewEditor(svc),
		limiter,
		cfg.CORSOrigin,
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown: wait for a signal or a failed goroutine, then
	// give active requests up to 30 seconds to complete.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
