// Package daemon holds the server process configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration, loaded from a TOML file with
// sane defaults for every field.
type Config struct {
	API      APIConfig      `toml:"api"`
	Storage  StorageConfig  `toml:"storage"`
	Auth     AuthConfig     `toml:"auth"`
	Shipping ShippingConfig `toml:"shipping"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig configures the sqlite data directory.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	SigningKey string `toml:"signing_key"`
	Issuer     string `toml:"issuer"`
	TokenTTL   string `toml:"token_ttl"`
}

// TokenTTLDuration parses TokenTTL, falling back to 24h on bad input.
func (c AuthConfig) TokenTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ShippingConfig configures the courier quote fallbacks used when a
// member has no address on file.
type ShippingConfig struct {
	DefaultRequesterCity string `toml:"default_requester_city"`
	DefaultOwnerCity     string `toml:"default_owner_city"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Storage: StorageConfig{
			DataDir: filepath.Join(home, ".rewear"),
		},
		Auth: AuthConfig{
			SigningKey: "",
			Issuer:     "rewear",
			TokenTTL:   "24h",
		},
		Shipping: ShippingConfig{
			DefaultRequesterCity: "Bhubaneswar",
			DefaultOwnerCity:     "Cuttack",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadConfig reads the TOML file at path, layered over defaults. A missing
// file is not an error: the defaults are returned as-is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key must not be empty")
	}
	return nil
}
