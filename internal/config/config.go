// Package config provides configuration management for the CodeLinker admin server.
// Configuration is loaded from the process environment and an optional
// .env-style file; unknown keys are ignored.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string
	Port      int
	Workers   int
	Reload    bool
	StaticDir string
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection settings.
// Supports both PostgreSQL and SQLite backends.
type DatabaseConfig struct {
	// Driver selects the backend: "postgres" or "sqlite".
	Driver string

	// PostgreSQL settings (used when Driver is "postgres").
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Pool sizing. Recycle bounds connection lifetime.
	PoolMin    int
	PoolMax    int
	Recycle    time.Duration
	Autocommit bool

	// QueryTimeout is the per-statement deadline.
	QueryTimeout time.Duration

	// SQLite settings (used when Driver is "sqlite").
	Path string
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	// Secret signs every token. Must be non-empty in production.
	Secret string

	// Algorithm is the signing algorithm, HS256 by default.
	Algorithm string

	// AccessTTL is the token lifetime.
	AccessTTL time.Duration

	// VerifyExpiry controls whether parsers reject expired tokens.
	// Disabled only in throwaway test setups.
	VerifyExpiry bool
}

// SecurityConfig holds password hashing settings.
type SecurityConfig struct {
	// HashRounds is the bcrypt cost parameter.
	HashRounds int

	// Timezone is the IANA zone every instant is rendered in.
	Timezone string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string
	File  string
}

// Load reads configuration from the given .env-style file (optional)
// and the process environment. Environment variables take precedence.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:      v.GetString("HOST"),
			Port:      v.GetInt("PORT"),
			Workers:   v.GetInt("WORKERS"),
			Reload:    v.GetBool("RELOAD"),
			StaticDir: v.GetString("STATIC_DIR"),
		},
		Database: DatabaseConfig{
			Driver:       v.GetString("DB_DRIVER"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Database:     v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			PoolMin:      v.GetInt("DB_POOL_MIN"),
			PoolMax:      v.GetInt("DB_POOL_MAX"),
			Recycle:      time.Duration(v.GetInt("DB_POOL_RECYCLE")) * time.Second,
			Autocommit:   v.GetBool("DB_AUTOCOMMIT"),
			QueryTimeout: time.Duration(v.GetInt("QUERY_TIMEOUT")) * time.Second,
			Path:         v.GetString("DB_PATH"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			Algorithm:    v.GetString("JWT_ALGORITHM"),
			AccessTTL:    time.Duration(v.GetInt("JWT_ACCESS_EXPIRE_MINUTES")) * time.Minute,
			VerifyExpiry: v.GetBool("JWT_VERIFY_EXP"),
		},
		Security: SecurityConfig{
			HashRounds: v.GetInt("PASSWORD_HASH_ROUNDS"),
			Timezone:   v.GetString("TIMEZONE"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8000)
	v.SetDefault("WORKERS", 1)
	v.SetDefault("RELOAD", false)
	v.SetDefault("STATIC_DIR", "")

	// Database defaults
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "codelinker")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "cl_system_settings")
	v.SetDefault("DB_SSL_MODE", "prefer")
	v.SetDefault("DB_POOL_MIN", 1)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("DB_POOL_RECYCLE", 300)
	v.SetDefault("DB_AUTOCOMMIT", true)
	v.SetDefault("QUERY_TIMEOUT", 30)
	v.SetDefault("DB_PATH", "./data/codelinker.db")

	// JWT defaults
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("JWT_ACCESS_EXPIRE_MINUTES", 1440)
	v.SetDefault("JWT_VERIFY_EXP", true)

	// Security defaults
	v.SetDefault("PASSWORD_HASH_ROUNDS", 12)
	v.SetDefault("TIMEZONE", "Asia/Shanghai")

	// Logging defaults
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	validDrivers := map[string]bool{"postgres": true, "sqlite": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite'")
	}

	if c.Database.Driver == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres driver")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required for the postgres driver")
		}
	} else if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required for the sqlite driver")
	}

	if c.Database.PoolMin < 1 || c.Database.PoolMax < c.Database.PoolMin {
		return fmt.Errorf("DB_POOL_MIN/DB_POOL_MAX must satisfy 1 <= min <= max")
	}

	if c.JWT.Algorithm != "HS256" && c.JWT.Algorithm != "HS384" && c.JWT.Algorithm != "HS512" {
		return fmt.Errorf("JWT_ALGORITHM must be one of HS256, HS384, HS512")
	}

	if c.Security.HashRounds < 4 || c.Security.HashRounds > 31 {
		return fmt.Errorf("PASSWORD_HASH_ROUNDS must be between 4 and 31")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(envFile string) *Config {
	cfg, err := Load(envFile)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
