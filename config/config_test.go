package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, "escrow-custody", cfg.Engine.CustodyAccount)
	require.Equal(t, 24*time.Hour, cfg.Engine.ClaimTimeout)
	require.Equal(t, 8080, cfg.API.Port)
	require.Equal(t, 100, cfg.API.RateLimit)
	require.True(t, cfg.API.EnableWebSocket)
	require.False(t, cfg.Redis.Enabled)
	require.False(t, cfg.Postgres.Enabled)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  custody_account: vault
  claim_timeout: 48h
api:
  port: 9000
journal:
  enabled: true
  path: /tmp/journal
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "vault", cfg.Engine.CustodyAccount)
	require.Equal(t, 48*time.Hour, cfg.Engine.ClaimTimeout)
	require.Equal(t, 9000, cfg.API.Port)
	require.True(t, cfg.Journal.Enabled)
	require.Equal(t, "/tmp/journal", cfg.Journal.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGORA_API_PORT", "7777")
	t.Setenv("AGORA_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, 7777, cfg.API.Port)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Engine.CustodyAccount = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Engine.ClaimTimeout = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.API.Port = 70000
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Postgres.Enabled = true
	cfg.Postgres.DSN = ""
	require.Error(t, cfg.Validate())
}

func TestDump_RoundTrips(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	out, err := cfg.Dump()
	require.NoError(t, err)
	require.Contains(t, out, "custody_account: escrow-custody")
	require.Contains(t, out, "port: 8080")
}
