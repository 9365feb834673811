package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mainframehq/paymo-go/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
  log_level: warn
chain:
  rpc_url: https://ropsten.example.org
  required_network: ropsten
  confirm_timeout: 2m
  token_contracts:
    "3": "0xA46f1563984209fe47f8236f8B01a03f03F957E4"
store:
  backend: redis
  redis_addr: redis.internal:6379
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "https://ropsten.example.org", cfg.Chain.RPCURL)
	assert.Equal(t, 2*time.Minute, cfg.Chain.ConfirmTimeout)
	assert.Equal(t, "0xA46f1563984209fe47f8236f8B01a03f03F957E4", cfg.Chain.TokenContracts["3"])
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Store.RedisAddr)
	assert.False(t, cfg.Metrics.Enabled)

	policy := cfg.NetworkPolicy()
	assert.True(t, policy.Allows("ropsten"))
	assert.False(t, policy.Allows("mainnet"))
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpc_url: http://localhost:8545
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, time.Duration(0), cfg.Chain.ConfirmTimeout)
	assert.True(t, cfg.NetworkPolicy().Allows("anything"))
}

func TestLoadRejectsMissingRPCURL(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
`)

	_, err := Load(path)
	require.Error(t, err)

	var perr *types.PaymoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrConfigError, perr.Code)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Chain: ChainConfig{RPCURL: "http://localhost:8545"},
			Store: StoreConfig{Backend: "memory"},
		}
	}

	t.Run("postgres requires dsn", func(t *testing.T) {
		cfg := base()
		cfg.Store.Backend = "postgres"
		require.Error(t, cfg.Validate())

		cfg.Store.PostgresDSN = "host=localhost user=paymo dbname=paymo"
		require.NoError(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.Store.Backend = "mongo"
		require.Error(t, cfg.Validate())
	})

	t.Run("negative timeout", func(t *testing.T) {
		cfg := base()
		cfg.Chain.ConfirmTimeout = -time.Second
		require.Error(t, cfg.Validate())
	})
}
