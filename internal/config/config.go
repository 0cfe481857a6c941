package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port            int    `envconfig:"PORT" default:"8080"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL     string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL        string `envconfig:"REDIS_URL" default:"redis://127.0.0.1:6379/0"`
	Version         string `envconfig:"VERSION" default:"dev"`
	BcryptCost      int    `envconfig:"BCRYPT_COST" default:"12"`
	MaxContentMB    int    `envconfig:"MAX_CONTENT_MB" default:"16"`
	AllowedExt      string `envconfig:"ALLOWED_EXT" default:"xls,xlsx"`
	StagingTTLHours int    `envconfig:"STAGING_TTL_HOURS" default:"24"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllowedExtensions returns the set of accepted upload file extensions,
// lowercased and without leading dots.
func (c *Config) AllowedExtensions() map[string]bool {
	exts := make(map[string]bool)
	for _, e := range strings.Split(c.AllowedExt, ",") {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e != "" {
			exts[e] = true
		}
	}
	return exts
}
