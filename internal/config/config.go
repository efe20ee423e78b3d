// Package config loads service settings from environment variables and
// an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the service. Bounds are enforced by
// Validate; defaults match a small single-warehouse deployment.
type Config struct {
	AppEnv string `mapstructure:"app_env"`
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`

	DatabasePath string `mapstructure:"database_path"`

	JWTSecretKey          string `mapstructure:"jwt_secret_key"`
	AccessTokenTTLMinutes int    `mapstructure:"access_token_ttl_minutes"`
	RefreshTokenTTLDays   int    `mapstructure:"refresh_token_ttl_days"`

	DefaultAdminUsername string `mapstructure:"default_admin_username"`
	DefaultAdminPassword string `mapstructure:"default_admin_password"`

	PickTimeoutMinutes     int  `mapstructure:"pick_timeout_minutes"`
	AutoCleanupEnabled     bool `mapstructure:"auto_cleanup_enabled"`
	AutoCleanupHours       int  `mapstructure:"auto_cleanup_hours"`
	CleanupIntervalMinutes int  `mapstructure:"cleanup_interval_minutes"`
	AutoModeThreshold      int  `mapstructure:"auto_mode_threshold"`

	LogDirectory  string `mapstructure:"log_directory"`
	ProductsFile  string `mapstructure:"products_file"`
	ServerLogFile string `mapstructure:"server_log_file"`

	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Load reads configuration from the given file (optional) and from
// WAREPICK_* environment variables, then validates bounds.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app_env", "development")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("database_path", "storage/db/warehouse.db")
	v.SetDefault("jwt_secret_key", "change-this-in-production")
	v.SetDefault("access_token_ttl_minutes", 30)
	v.SetDefault("refresh_token_ttl_days", 7)
	v.SetDefault("default_admin_username", "admin")
	v.SetDefault("default_admin_password", "admin123")
	v.SetDefault("pick_timeout_minutes", 30)
	v.SetDefault("auto_cleanup_enabled", true)
	v.SetDefault("auto_cleanup_hours", 24)
	v.SetDefault("cleanup_interval_minutes", 60)
	v.SetDefault("auto_mode_threshold", 10)
	v.SetDefault("log_directory", "storage/logs")
	v.SetDefault("products_file", "data/products.json")
	v.SetDefault("server_log_file", "")
	v.SetDefault("cors_origins", []string{"*"})

	v.SetEnvPrefix("WAREPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value bounds
func (c *Config) Validate() error {
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"port", c.Port, 1, 65535},
		{"access_token_ttl_minutes", c.AccessTokenTTLMinutes, 1, 1440},
		{"refresh_token_ttl_days", c.RefreshTokenTTLDays, 1, 90},
		{"pick_timeout_minutes", c.PickTimeoutMinutes, 5, 480},
		{"auto_cleanup_hours", c.AutoCleanupHours, 1, 720},
		{"cleanup_interval_minutes", c.CleanupIntervalMinutes, 5, 1440},
		{"auto_mode_threshold", c.AutoModeThreshold, 1, 100},
	}
	for _, ck := range checks {
		if ck.value < ck.min || ck.value > ck.max {
			return fmt.Errorf("%s must be between %d and %d, got %d",
				ck.name, ck.min, ck.max, ck.value)
		}
	}
	if len(c.JWTSecretKey) < 16 {
		return fmt.Errorf("jwt_secret_key must be at least 16 characters")
	}
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	switch env {
	case "development", "staging", "production":
		c.AppEnv = env
	default:
		c.AppEnv = "development"
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ListenAddr returns the host:port bind address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AccessTokenTTL returns the access token lifetime
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// PickTimeout is the idle threshold for stale claim release
func (c *Config) PickTimeout() time.Duration {
	return time.Duration(c.PickTimeoutMinutes) * time.Minute
}

// CleanupInterval is the reaper tick interval
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// CleanupRetention is how long completed requests are kept
func (c *Config) CleanupRetention() time.Duration {
	return time.Duration(c.AutoCleanupHours) * time.Hour
}
