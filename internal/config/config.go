package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                   string `mapstructure:"port"`
	AllowedOrigin          string `mapstructure:"allowed_origin"`
	DatabaseURL            string `mapstructure:"database_url"`
	RedisAddr              string `mapstructure:"redis_addr"`
	RedisPassword          string `mapstructure:"redis_password"`
	RedisDB                int    `mapstructure:"redis_db"`
	CatalogCacheTTLSeconds int    `mapstructure:"catalog_cache_ttl_seconds"`
	AuthSecret             string `mapstructure:"auth_secret"`
	AccessTokenTTLMinutes  int    `mapstructure:"access_token_ttl_minutes"`
	ReportTimezone         string `mapstructure:"report_timezone"`
	ReportLocale           string `mapstructure:"report_locale"`
	LogLevel               string `mapstructure:"log_level"`
	LogFormat              string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"port":                      "8080",
	"allowed_origin":            "http://127.0.0.1:3000",
	"database_url":              "",
	"redis_addr":                "",
	"redis_password":            "",
	"redis_db":                  0,
	"catalog_cache_ttl_seconds": 60,
	"auth_secret":               "",
	"access_token_ttl_minutes":  480,
	"report_timezone":           "UTC",
	"report_locale":             "en",
	"log_level":                 "info",
	"log_format":                "json",
}

// Load reads configuration from the environment (PORT, DATABASE_URL, ...)
// and, when path is set, from a config file whose keys are the lower-case
// variable names. Environment values win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.CatalogCacheTTLSeconds < 1 {
		cfg.CatalogCacheTTLSeconds = 60
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.ReportTimezone)
}

func (c Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}
