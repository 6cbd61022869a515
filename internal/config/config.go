package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all cadence configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Sweep    SweepConfig    `toml:"sweep"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	Secret        string `toml:"secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

type SweepConfig struct {
	Enabled bool `toml:"enabled"`
	Hour    int  `toml:"hour"` // UTC hour of the daily pass
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38080,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Auth: AuthConfig{
			Secret:        "",
			TokenTTLHours: 24,
		},
		Sweep: SweepConfig{
			Enabled: true,
			Hour:    1,
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is fine;
// the defaults apply. CADENCE_AUTH_SECRET overrides the configured secret.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if secret := os.Getenv("CADENCE_AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
