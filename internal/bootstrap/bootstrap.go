// Package bootstrap wires configuration to concrete infrastructure.
// It sits above the repository backends so a binary can select its
// database driver from configuration alone.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/config"
	"github.com/prn-tf/codelinker-admin/internal/repository"
	"github.com/prn-tf/codelinker-admin/internal/repository/postgres"
	"github.com/prn-tf/codelinker-admin/internal/repository/sqlite"
)

// Storage bundles the opened database and the repositories built on it.
type Storage struct {
	Users    repository.UserRepository
	Database repository.DatabaseHealth

	// Migrate applies pending schema migrations. Only the embedded
	// backend migrates itself; PostgreSQL schemas are managed by the
	// migrate tool.
	Migrate func(ctx context.Context) error
}

// OpenStorage connects to the configured database backend and builds
// the repositories.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Storage, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Storage{
			Users:    postgres.NewUserRepository(db),
			Database: db,
			Migrate:  func(context.Context) error { return nil },
		}, nil

	case "sqlite":
		sqliteCfg := sqlite.DefaultConfig(cfg.Path)
		sqliteCfg.QueryTimeout = cfg.QueryTimeout
		if cfg.Recycle > 0 {
			sqliteCfg.ConnMaxLifetime = cfg.Recycle
		}
		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Storage{
			Users:    sqlite.NewUserRepository(db),
			Database: db,
			Migrate:  db.Migrate,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// NewLogger builds the process logger from the logging configuration.
// With LOG_FILE set, output is JSON lines to that file; otherwise a
// console writer on stderr.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log file: %w", err)
		}
		logger = zerolog.New(f)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger.Level(level).With().Timestamp().Logger(), nil
}
