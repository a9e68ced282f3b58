// Package config loads evtrends settings with Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the typed application settings.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Model     ModelConfig     `mapstructure:"model"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address as host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DataConfig struct {
	Path string `mapstructure:"path"`
}

type ModelConfig struct {
	Source  string        `mapstructure:"source"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig locates the run history database. An empty path disables it.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Size int `mapstructure:"size"`
}

type DashboardConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// RateLimitConfig bounds requests per client. TrustedProxies lists CIDRs
// or addresses whose X-Forwarded-For header identifies the client.
type RateLimitConfig struct {
	RPS            float64  `mapstructure:"rps"`
	Burst          int      `mapstructure:"burst"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Load reads configuration from file and environment variables.
// Environment variables use the EVTRENDS_ prefix (server.port -> EVTRENDS_SERVER_PORT).
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8501)
	v.SetDefault("data.path", "preprocessed_ev_data.csv")
	v.SetDefault("model.source", "forecasting_ev_model.json")
	v.SetDefault("model.timeout", "10s")
	v.SetDefault("database.path", "")
	v.SetDefault("cache.size", 256)
	v.SetDefault("dashboard.timezone", "Asia/Kolkata")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("ratelimit.rps", 20)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("ratelimit.trusted_proxies", []string{})

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("evtrends")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/evtrends")
	}

	v.SetEnvPrefix("EVTRENDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

// Decode unmarshals v into a typed Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Cache.Size < 1 {
		cfg.Cache.Size = 1
	}
	return &cfg, nil
}
