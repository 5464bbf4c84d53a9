// Package main is the entry point for the CodeLinker admin CLI.
// It seeds the first super admin account and inspects existing users
// directly against the database, bypassing the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prn-tf/codelinker-admin/internal/auth"
	"github.com/prn-tf/codelinker-admin/internal/bootstrap"
	"github.com/prn-tf/codelinker-admin/internal/config"
	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/pkg/crypto"
	"github.com/prn-tf/codelinker-admin/internal/repository"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("CodeLinker Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "seed":
		if err := runSeed(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}

	case "list":
		if err := runList(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
			os.Exit(1)
		}

	case "gen-secret":
		secret, err := crypto.GenerateSigningSecret()
		if err != nil {
			fmt.Fprintf(os.Stderr, "gen-secret failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("JWT_SECRET=%s\n", secret)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runSeed creates the initial super admin account. The HTTP surface
// can never create one, so a fresh deployment starts here.
func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	envFile := fs.String("env", ".env", "path to an optional .env configuration file")
	username := fs.String("username", "", "super admin username (required)")
	password := fs.String("password", "", "super admin password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("both -username and -password are required")
	}
	if !domain.ValidUsername(*username) {
		return fmt.Errorf("username must be 1-50 characters")
	}

	cfg := config.MustLoad(*envFile)
	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer storage.Database.Close()

	if err := storage.Migrate(ctx); err != nil {
		return err
	}

	count, err := storage.Users.CountUsername(ctx, *username)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("username %q already exists", *username)
	}

	hasher := auth.NewHasher(cfg.Security.HashRounds)
	hash, err := hasher.Hash(*password)
	if err != nil {
		return err
	}

	user := domain.NewUser(*username, hash, domain.RoleSuperAdmin, true)
	affected, err := storage.Users.Insert(ctx, user)
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("insert affected %d rows", affected)
	}

	fmt.Printf("super admin created: %s (%s)\n", user.Username, user.ID)
	return nil
}

// runList prints every user row in creation order.
func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	envFile := fs.String("env", ".env", "path to an optional .env configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.MustLoad(*envFile)
	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer storage.Database.Close()

	users, err := storage.Users.FindScoped(ctx, repository.ScopedQuery{
		Roles: domain.RoleSuperAdmin.AtOrBelow(),
	})
	if err != nil {
		return err
	}

	for _, u := range users {
		fmt.Printf("%s\t%s\t%s\tactive=%t\tattempts=%d\n",
			u.ID, u.Username, u.Role, u.IsActive, u.LoginAttempts)
	}
	fmt.Printf("%d user(s)\n", len(users))
	return nil
}

func printUsage() {
	fmt.Println(`CodeLinker Admin CLI

Usage:
  codelinker-admin <command> [arguments]

Commands:
  seed        Create the initial super admin account
  list        List all user accounts
  gen-secret  Generate a fresh JWT signing secret
  version     Print version information
  help        Show this help message

Examples:
  codelinker-admin seed -username root -password 'change-me'
  codelinker-admin list -env ./deploy/.env
  codelinker-admin gen-secret

Use "codelinker-admin <command> -h" for command flags.`)
}
