// Package config loads application configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment names with special behavior.
const (
	// EnvProduction disables debug export dumps and verbose logging defaults.
	EnvProduction = "production"
)

// Config is the full application configuration.
type Config struct {
	Environment string `yaml:"environment"` // production, staging, development.

	Server struct {
		Addr string `yaml:"addr"` // Listen address, host:port.
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"dsn"` // Postgres or SQLite DSN.
	} `yaml:"database"`

	JWT struct {
		Secret      string `yaml:"secret"`       // HS256 signing secret.
		ExpiryHours int    `yaml:"expiry_hours"` // Token lifetime.
	} `yaml:"jwt"`

	Redis struct {
		Addr       string `yaml:"addr"`        // Empty disables the lookup cache.
		Password   string `yaml:"password"`    // Optional password.
		DB         int    `yaml:"db"`          // Redis database index.
		TTLMinutes int    `yaml:"ttl_minutes"` // Lookup cache TTL.
	} `yaml:"redis"`

	Log struct {
		Level      string `yaml:"level"`       // logrus level name.
		File       string `yaml:"file"`        // Empty logs to stdout.
		MaxSizeMB  int    `yaml:"max_size_mb"` // Rotation size.
		MaxBackups int    `yaml:"max_backups"` // Rotated files kept.
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	Export struct {
		DebugDir string `yaml:"debug_dir"` // Non-production export dump directory.
	} `yaml:"export"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults. A missing file is not an error when overrides supply the DSN.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errDecode := yaml.Unmarshal(data, &cfg); errDecode != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errDecode)
			}
		case !os.IsNotExist(errRead):
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, fmt.Errorf("config: database dsn is required")
	}
	return cfg, nil
}

// IsProduction reports whether the production environment flag is set.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"FLEET_ENV", &cfg.Environment},
		{"SERVER_ADDR", &cfg.Server.Addr},
		{"DATABASE_DSN", &cfg.Database.DSN},
		{"JWT_SECRET", &cfg.JWT.Secret},
		{"REDIS_ADDR", &cfg.Redis.Addr},
		{"REDIS_PASSWORD", &cfg.Redis.Password},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FILE", &cfg.Log.File},
		{"EXPORT_DEBUG_DIR", &cfg.Export.DebugDir},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.JWT.ExpiryHours <= 0 {
		cfg.JWT.ExpiryHours = 24
	}
	if cfg.Redis.TTLMinutes <= 0 {
		cfg.Redis.TTLMinutes = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.Export.DebugDir == "" && !cfg.IsProduction() {
		cfg.Export.DebugDir = "exports-debug"
	}
}
