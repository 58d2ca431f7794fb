package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	RxNavBaseURL    string `mapstructure:"RXNAV_BASE_URL"`
	RxNavTimeoutSec int    `mapstructure:"RXNAV_TIMEOUT_SECONDS"`

	SyncDefaultLimit   int    `mapstructure:"SYNC_DEFAULT_LIMIT"`
	SyncConcurrency    int    `mapstructure:"SYNC_CONCURRENCY"`
	CacheRetentionDays int    `mapstructure:"CACHE_RETENTION_DAYS"`
	SchedulerEnabled   bool   `mapstructure:"SCHEDULER_ENABLED"`
	SchedulerTimes     string `mapstructure:"SCHEDULER_TIMES"`

	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("RXNAV_BASE_URL", "https://rxnav.nlm.nih.gov/REST")
	v.SetDefault("RXNAV_TIMEOUT_SECONDS", 10)
	v.SetDefault("SYNC_DEFAULT_LIMIT", 100)
	v.SetDefault("SYNC_CONCURRENCY", 4)
	v.SetDefault("CACHE_RETENTION_DAYS", 7)
	v.SetDefault("SCHEDULER_ENABLED", false)
	v.SetDefault("SCHEDULER_TIMES", "03:00")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("RXNAV_BASE_URL")
	v.BindEnv("RXNAV_TIMEOUT_SECONDS")
	v.BindEnv("SYNC_DEFAULT_LIMIT")
	v.BindEnv("SYNC_CONCURRENCY")
	v.BindEnv("CACHE_RETENTION_DAYS")
	v.BindEnv("SCHEDULER_ENABLED")
	v.BindEnv("SCHEDULER_TIMES")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RxNavTimeout returns the upstream HTTP client timeout.
func (c *Config) RxNavTimeout() time.Duration {
	if c.RxNavTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RxNavTimeoutSec) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// an AUTH_ISSUER must be set so that real JWT authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" {
		return fmt.Errorf(
			"AUTH_ISSUER must be set when ENV=%q; refusing to start without authentication configuration", c.Env)
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be at least 1, got %d", c.SyncConcurrency)
	}
	if c.CacheRetentionDays < 1 {
		return fmt.Errorf("CACHE_RETENTION_DAYS must be at least 1, got %d", c.CacheRetentionDays)
	}
	return nil
}
