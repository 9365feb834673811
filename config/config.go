// Package config loads library configuration from a YAML file and the
// environment. Environment variables override file values, with dots in
// keys replaced by underscores (store.redis_addr -> STORE_REDIS_ADDR).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mainframehq/paymo-go/types"
)

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Chain ChainConfig `mapstructure:"chain"`
	Store StoreConfig `mapstructure:"store"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type ChainConfig struct {
	// RPCURL is the JSON-RPC endpoint of the node the wallet talks to.
	RPCURL string `mapstructure:"rpc_url"`

	// SignerKey is the hex-encoded private key of the paying account.
	// Usually injected via the CHAIN_SIGNER_KEY environment variable
	// rather than written to the config file.
	SignerKey string `mapstructure:"signer_key"`

	// RequiredNetwork restricts submission to one network, by chain ID
	// or name. Empty allows any network.
	RequiredNetwork string `mapstructure:"required_network"`

	// ConfirmTimeout bounds the wait for a confirmation. Zero waits
	// indefinitely.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`

	// TokenContracts overrides the built-in token contract per chain ID.
	TokenContracts map[string]string `mapstructure:"token_contracts"`
}

type StoreConfig struct {
	// Backend selects the record store: "redis", "postgres", or "memory".
	Backend string `mapstructure:"backend"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from the named file, falling back to defaults
// and environment variables when the file is absent. Pass "" to search the
// working directory for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, types.Errorf(types.ErrConfigError, "reading config: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.Errorf(types.ErrConfigError, "decoding config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields no default can supply.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return types.Errorf(types.ErrConfigError, "chain.rpc_url is required")
	}

	switch c.Store.Backend {
	case "memory", "redis":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return types.Errorf(types.ErrConfigError, "store.postgres_dsn is required for the postgres backend")
		}
	default:
		return types.Errorf(types.ErrConfigError, "unknown store backend %q", c.Store.Backend)
	}

	if c.Chain.ConfirmTimeout < 0 {
		return types.Errorf(types.ErrConfigError, "chain.confirm_timeout must not be negative")
	}
	return nil
}

// NetworkPolicy converts the configured restriction into a policy value.
func (c *Config) NetworkPolicy() types.NetworkPolicy {
	return types.NetworkPolicy{RequiredNetwork: c.Chain.RequiredNetwork}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.required_network", "")
	v.SetDefault("chain.confirm_timeout", time.Duration(0))

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("metrics.enabled", false)
}
