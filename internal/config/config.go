package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	Version  string         `mapstructure:"version"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Links    LinksConfig    `mapstructure:"links"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"` // Public base URL for short links; empty reflects the request host
	GinMode         string        `mapstructure:"gin_mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the link store. The URL scheme picks the driver
// (mongodb, postgres, sqlite).
type DatabaseConfig struct {
	URL                string        `mapstructure:"url"`
	LocalURL           string        `mapstructure:"local_url"`
	AllowLocalFallback bool          `mapstructure:"allow_local_fallback"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

// CacheConfig enables the Redis cache for redirect lookups when RedisURL is set.
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LinksConfig holds the retry budgets of link creation.
type LinksConfig struct {
	GenerateAttempts   int `mapstructure:"generate_attempts"`
	RegenerateAttempts int `mapstructure:"regenerate_attempts"`
	MaxSaveAttempts    int `mapstructure:"max_save_attempts"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	File       string `mapstructure:"file"`   // optional, rotated with lumberjack
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// envAliases binds keys to the environment variable names the service has
// always used, on top of the automatic SECTION_KEY names.
var envAliases = map[string][]string{
	"server.port":                   {"PORT"},
	"server.base_url":               {"BASE_URL"},
	"server.gin_mode":               {"GIN_MODE"},
	"database.url":                  {"DATABASE_URL", "MONGO_URL"},
	"database.local_url":            {"LOCAL_MONGO_URL"},
	"database.allow_local_fallback": {"ALLOW_LOCAL_FALLBACK"},
	"cache.redis_url":               {"REDIS_URL"},
	"log.level":                     {"LOG_LEVEL"},
	"log.format":                    {"LOG_FORMAT"},
	"log.file":                      {"LOG_FILE"},
}

// setDefaults registers the default values. They apply when neither the
// config file nor the environment sets a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")

	v.SetDefault("server.port", 4000)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.local_url", "mongodb://localhost:27017/tinylink")
	v.SetDefault("database.allow_local_fallback", false)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("links.generate_attempts", 8)
	v.SetDefault("links.regenerate_attempts", 4)
	v.SetDefault("links.max_save_attempts", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("metrics.enabled", true)
}

// LoadConfig loads the application configuration using Viper.
// configFile may be empty, in which case ./configs/config.yaml is used if present.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(configFile string) (*Config, error) {
	// Ignore error if .env not found (e.g. prod)
	_ = godotenv.Load()

	v := viper.New()

	// "server.port" becomes "SERVER_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		// The automatic name keeps precedence over the aliases.
		args := append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit file, a missing config is not an error.
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, customerrors.ErrConfigLoad{Path: configPath(v, configFile), Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, customerrors.ErrConfigLoad{Path: configPath(v, configFile), Reason: err.Error()}
	}
	return &cfg, nil
}

func configPath(v *viper.Viper, configFile string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	if configFile != "" {
		return configFile
	}
	return "./configs/config.yaml"
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database.url (DATABASE_URL or MONGO_URL) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Links.GenerateAttempts < 1 || c.Links.RegenerateAttempts < 1 || c.Links.MaxSaveAttempts < 1 {
		return errors.New("links retry budgets must be at least 1")
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	return nil
}
