package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "cl_system_settings", cfg.Database.Database)
	require.Equal(t, 30*time.Second, cfg.Database.QueryTimeout)
	require.Equal(t, "HS256", cfg.JWT.Algorithm)
	require.Equal(t, 1440*time.Minute, cfg.JWT.AccessTTL)
	require.True(t, cfg.JWT.VerifyExpiry)
	require.Equal(t, 12, cfg.Security.HashRounds)
	require.Equal(t, "Asia/Shanghai", cfg.Security.Timezone)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "PORT=9090\nDB_DRIVER=sqlite\nDB_PATH=/tmp/users.db\nJWT_SECRET=file-secret\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.True(t, cfg.Database.IsEmbedded())
	require.Equal(t, "/tmp/users.db", cfg.Database.Path)
	require.Equal(t, "file-secret", cfg.JWT.Secret)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingEnvFileUsesDefaults(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	// a named but absent file is not an error: deployments often rely
	// on the process environment alone
	require.NoError(t, err)
}

func TestDSNFormat(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "svc",
		Password: "pw", Database: "users", SSLMode: "require",
	}
	require.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=users sslmode=require",
		cfg.DSN())
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite"; c.Database.Path = "" }},
		{"inverted pool bounds", func(c *Config) { c.Database.PoolMin = 8; c.Database.PoolMax = 2 }},
		{"non-hmac algorithm", func(c *Config) { c.JWT.Algorithm = "RS256" }},
		{"hash rounds too low", func(c *Config) { c.Security.HashRounds = 2 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
