package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".macaron"
	envPrefix  = "MACARON"

	BackendTOML   = "toml"
	BackendSQLite = "sqlite"
)

// Config is the resolved runtime configuration.
type Config struct {
	Store  StoreConfig
	Policy domain.Policy
	Ledger LedgerConfig
	Server ServerConfig
	Log    LogConfig
}

type StoreConfig struct {
	Backend   string
	Namespace string
}

type LedgerConfig struct {
	TTL time.Duration
}

type ServerConfig struct {
	Listen    string
	RateLimit float64
	RateBurst int
}

type LogConfig struct {
	Verbose bool
}

// Load reads ~/.macaron/config.toml when present and applies MACARON_* overrides.
// cfg is left populated so store adapters can read their own keys from it.
func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	setDefaults(cfg)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if homeDir, err := os.UserHomeDir(); err == nil {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		cfg.AddConfigPath(filepath.Join(homeDir, configDir))

		if err := cfg.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	out := Config{
		Store: StoreConfig{
			Backend:   strings.ToLower(strings.TrimSpace(cfg.GetString("store.backend"))),
			Namespace: cfg.GetString("store.namespace"),
		},
		Policy: domain.Policy{
			Capacity:        cfg.GetInt("pool.capacity"),
			RecoveryWindow:  cfg.GetDuration("pool.recovery_window"),
			MessageCooldown: cfg.GetDuration("pool.message_cooldown"),
		},
		Ledger: LedgerConfig{TTL: cfg.GetDuration("ledger.ttl")},
		Server: ServerConfig{
			Listen:    cfg.GetString("server.listen"),
			RateLimit: cfg.GetFloat64("server.rate_limit"),
			RateBurst: cfg.GetInt("server.rate_burst"),
		},
		Log: LogConfig{Verbose: cfg.GetBool("log.verbose")},
	}

	if err := out.validate(); err != nil {
		return Config{}, err
	}

	return out, nil
}

func setDefaults(cfg *viper.Viper) {
	policy := domain.DefaultPolicy()

	cfg.SetDefault("store.backend", BackendTOML)
	cfg.SetDefault("store.namespace", "macaron_prefs")
	cfg.SetDefault("pool.capacity", policy.Capacity)
	cfg.SetDefault("pool.recovery_window", policy.RecoveryWindow)
	cfg.SetDefault("pool.message_cooldown", policy.MessageCooldown)
	cfg.SetDefault("ledger.ttl", 24*time.Hour)
	cfg.SetDefault("server.listen", "127.0.0.1:8787")
	cfg.SetDefault("server.rate_limit", 10.0)
	cfg.SetDefault("server.rate_burst", 5)
	cfg.SetDefault("log.verbose", false)
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendTOML, BackendSQLite:
	default:
		return fmt.Errorf("%w %q", domain.ErrUnsupportedBackend, c.Store.Backend)
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}

	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		return fmt.Errorf("server rate limit and burst must be positive")
	}

	return nil
}
