package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"zchat/internal/config"
	"zchat/internal/httpserver"
	"zchat/internal/logging"
	"zchat/internal/security"
	"zchat/internal/service"
	"zchat/internal/telemetry"
	"zchat/internal/ws"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			repos, err := openStore(cfg)
			if err != nil {
				return err
			}
			logging.New(cfg.LogLevel, cfg.LogFormat).Info("migrations applied", "driver", cfg.DBDriver)
			return repos.db.Close()
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.AppName, cfg.OTELEndpoint, cfg.OTELEnabled)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	repos, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer repos.db.Close()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	passwordHasher := security.NewPasswordHasher(0)

	readState := service.NewReadStateEngine(repos.messages, repos.receipts, repos.chats)
	hub := ws.NewHub(ws.NewRegistry(cfg.MaxConnections), readState, repos.chats, logger)

	router := httpserver.NewRouter(cfg, httpserver.Services{
		Auth:     service.NewAuthService(repos.users, tokenSvc, passwordHasher),
		Users:    service.NewUserService(repos.users),
		Chats:    service.NewChatService(repos.chats, repos.users),
		Messages: service.NewMessageService(repos.chats, repos.messages, hub, logger),
	}, hub, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(hub.CloseAll)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr(), "driver", cfg.DBDriver, "max_connections", cfg.MaxConnections)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	if err := hub.Shutdown(sctx); err != nil {
		logger.Error("ws sessions did not stop", "err", err)
	}
	return nil
}
