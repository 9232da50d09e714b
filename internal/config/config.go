package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level questwatch configuration.
type Config struct {
	DBPath        string        `mapstructure:"db_path"`
	DefaultWindow string        `mapstructure:"default_window"`
	LogMode       string        `mapstructure:"log_mode"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	Limits        Limits        `mapstructure:"limits"`
	Cache         Cache         `mapstructure:"cache"`
	Output        Output        `mapstructure:"output"`
	Watch         Watch         `mapstructure:"watch"`
}

// Limits sets how many rows the recency and ranking lists keep.
type Limits struct {
	LatestReviews  int `mapstructure:"latest_reviews"`
	CompactReviews int `mapstructure:"compact_reviews"`
	RecentFeedback int `mapstructure:"recent_feedback"`
	HardestSpots   int `mapstructure:"hardest_spots"`
}

// Cache configures optional snapshot memoization in Redis.
type Cache struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Watch defines the watch loop interval and alert thresholds.
type Watch struct {
	Interval       time.Duration `mapstructure:"interval"`
	ClearRateDrop  int           `mapstructure:"clear_rate_drop"`
	HardSpotRate   float64       `mapstructure:"hard_spot_rate"`
	LowRatingLimit int           `mapstructure:"low_rating_limit"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location),
// applies QUESTWATCH_* environment overrides, and returns a Config with all
// defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", filepath.Join(DefaultConfigDir, DefaultDBName))
	v.SetDefault("default_window", DefaultWindow)
	v.SetDefault("log_mode", DefaultLogMode)
	v.SetDefault("fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("limits.latest_reviews", DefaultLimits.LatestReviews)
	v.SetDefault("limits.compact_reviews", DefaultLimits.CompactReviews)
	v.SetDefault("limits.recent_feedback", DefaultLimits.RecentFeedback)
	v.SetDefault("limits.hardest_spots", DefaultLimits.HardestSpots)
	v.SetDefault("cache.enabled", DefaultCache.Enabled)
	v.SetDefault("cache.redis_url", DefaultCache.RedisURL)
	v.SetDefault("cache.ttl", DefaultCache.TTL)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("watch.interval", DefaultWatch.Interval)
	v.SetDefault("watch.clear_rate_drop", DefaultWatch.ClearRateDrop)
	v.SetDefault("watch.hard_spot_rate", DefaultWatch.HardSpotRate)
	v.SetDefault("watch.low_rating_limit", DefaultWatch.LowRatingLimit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Missing config file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	return &cfg, nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
