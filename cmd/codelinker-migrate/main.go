// Package main is the entry point for the CodeLinker database
// migration tool. It manages the PostgreSQL schema for the user
// administration backend; the embedded SQLite backend migrates itself
// at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prn-tf/codelinker-admin/internal/bootstrap"
	"github.com/prn-tf/codelinker-admin/internal/config"
	"github.com/prn-tf/codelinker-admin/internal/repository/postgres"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// migrations are applied in order; each entry is one version.
var migrations = []string{
	`
	CREATE SCHEMA IF NOT EXISTS cl_system_settings;

	CREATE TABLE IF NOT EXISTS cl_system_settings.system_user (
		id             UUID PRIMARY KEY,
		username       VARCHAR(50) NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		role           TEXT NOT NULL,
		is_admin       BOOLEAN NOT NULL DEFAULT FALSE,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		login_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until   TIMESTAMP,
		last_login     TIMESTAMP,
		created_at     TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_system_user_role
		ON cl_system_settings.system_user (role);
	`,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("CodeLinker Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := withDB(os.Args[2:], migrateUp); err != nil {
			fmt.Fprintf(os.Stderr, "migrate up failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		if err := withDB(os.Args[2:], migrateStatus); err != nil {
			fmt.Fprintf(os.Stderr, "migrate status failed: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// withDB opens the configured PostgreSQL database and runs fn on it.
func withDB(args []string, fn func(ctx context.Context, db *postgres.DB) error) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	envFile := fs.String("env", ".env", "path to an optional .env configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.MustLoad(*envFile)
	if cfg.Database.IsEmbedded() {
		return fmt.Errorf("the sqlite backend migrates itself at startup; nothing to do")
	}

	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}

func ensureVersionTable(ctx context.Context, db *postgres.DB) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS public.cl_schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func currentVersion(ctx context.Context, db *postgres.DB) (int, error) {
	var version int
	err := db.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM public.cl_schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func migrateUp(ctx context.Context, db *postgres.DB) error {
	if err := ensureVersionTable(ctx, db); err != nil {
		return err
	}
	version, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := db.Pool.Exec(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := db.Pool.Exec(ctx,
			`INSERT INTO public.cl_schema_migrations (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		fmt.Printf("applied migration %d\n", i+1)
	}

	if version >= len(migrations) {
		fmt.Println("database is up to date")
	}
	return nil
}

func migrateStatus(ctx context.Context, db *postgres.DB) error {
	if err := ensureVersionTable(ctx, db); err != nil {
		return err
	}
	version, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	fmt.Printf("current version: %d of %d\n", version, len(migrations))
	return nil
}

func printUsage() {
	fmt.Println(`CodeLinker Migration Tool

Usage:
  codelinker-migrate <command> [arguments]

Commands:
  up          Apply all pending migrations
  status      Show current migration status
  version     Print version information
  help        Show this help message

Examples:
  codelinker-migrate up
  codelinker-migrate status -env ./deploy/.env`)
}
