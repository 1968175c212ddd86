package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	BaseURL string `mapstructure:"BASE_URL"`

	FetchMode          string   `mapstructure:"FETCH_MODE"` // "http" or "browser"
	FetchTimeout       int      `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	FetchRatePerSecond float64  `mapstructure:"FETCH_RATE_PER_SECOND"`
	MaxRetries         int      `mapstructure:"MAX_RETRIES"`
	UserAgent          string   `mapstructure:"USER_AGENT"`
	ProxyURLs          []string `mapstructure:"PROXY_URLS"` // comma-separated in the environment

	OutputFormat string `mapstructure:"OUTPUT_FORMAT"` // "csv" or "xlsx"

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`
}

// DefaultBaseURL is the base that relative detail links on the index page resolve against.
const DefaultBaseURL = "https://www.volby.cz/pls/ps2017nss/"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("BASE_URL", DefaultBaseURL)
	v.SetDefault("FETCH_MODE", "http")
	v.SetDefault("FETCH_TIMEOUT_SECONDS", 20)
	v.SetDefault("FETCH_RATE_PER_SECOND", 2.0)
	v.SetDefault("MAX_RETRIES", 0)
	v.SetDefault("USER_AGENT", "")
	v.SetDefault("PROXY_URLS", []string{})
	v.SetDefault("OUTPUT_FORMAT", "csv")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads configuration from a .env file and environment variables into v.
// Pass viper.GetViper() to share the instance with command-line flag bindings.
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	_ = v.ReadInConfig()

	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FetchTimeoutDuration returns the per-request fetch timeout.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}
