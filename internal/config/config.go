package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string        `mapstructure:"ENV"`
	APIBaseURL  string        `mapstructure:"API_BASE_URL"`
	AuthToken   string        `mapstructure:"AUTH_TOKEN"`
	AuthSecret  string        `mapstructure:"AUTH_SECRET"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
	CacheTTL    time.Duration `mapstructure:"CACHE_TTL"`
	SandboxPort string        `mapstructure:"SANDBOX_PORT"`
	SandboxSeed int64         `mapstructure:"SANDBOX_SEED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("AUTH_SECRET", "dev-secret")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("SANDBOX_PORT", "8000")
	v.SetDefault("SANDBOX_SEED", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("AUTH_TOKEN")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("HTTP_TIMEOUT")
	v.BindEnv("CACHE_TTL")
	v.BindEnv("SANDBOX_PORT")
	v.BindEnv("SANDBOX_SEED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// the console refuses to start without a real access token, since every API
// call would otherwise be anonymous.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if !c.IsDev() && c.AuthToken == "" {
		return fmt.Errorf("AUTH_TOKEN is required when ENV is not development")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	return nil
}
