// Package main is the entry point for the CodeLinker admin server,
// the HTTP/JSON backend for single-tenant user administration.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/auth"
	"github.com/prn-tf/codelinker-admin/internal/bootstrap"
	"github.com/prn-tf/codelinker-admin/internal/clock"
	"github.com/prn-tf/codelinker-admin/internal/config"
	"github.com/prn-tf/codelinker-admin/internal/handler"
	"github.com/prn-tf/codelinker-admin/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env configuration file")
	flag.Parse()

	cfg := config.MustLoad(*envFile)

	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to initialize logger")
	}

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting CodeLinker admin server")

	clk, err := clock.New(cfg.Security.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer storage.Database.Close()

	if err := storage.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret:    cfg.JWT.Secret,
		Algorithm: cfg.JWT.Algorithm,
		AccessTTL: cfg.JWT.AccessTTL,
		VerifyExp: cfg.JWT.VerifyExpiry,
	}, clk)
	hasher := auth.NewHasher(cfg.Security.HashRounds)

	authService := service.NewAuthService(storage.Users, tokens, hasher, clk, logger)
	userService := service.NewUserService(storage.Users, hasher, authService, logger)

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:    handler.NewAuthHandler(authService, logger),
		UserHandler:    handler.NewUserHandler(userService, clk.Location(), logger),
		HealthHandler:  handler.NewHealthHandler(storage.Database, clk, logger),
		AuthMiddleware: auth.Middleware(tokens),
		StaticDir:      cfg.Server.StaticDir,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
