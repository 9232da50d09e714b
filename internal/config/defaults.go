// Package config provides configuration loading and defaults for questwatch.
package config

import "time"

// DefaultConfigDir is the default location for questwatch configuration.
const DefaultConfigDir = "~/.config/questwatch"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "questwatch.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. QUESTWATCH_DB_PATH.
const EnvPrefix = "QUESTWATCH"

// DefaultWindow is used when no --window flag is given.
const DefaultWindow = "all"

// DefaultLogMode selects the console logger.
const DefaultLogMode = "dev"

// DefaultFetchTimeout bounds each collaborator fetch.
const DefaultFetchTimeout = 10 * time.Second

// DefaultLimits holds the sample sizes of the list surfaces.
var DefaultLimits = Limits{
	LatestReviews:  10,
	CompactReviews: 3,
	RecentFeedback: 5,
	HardestSpots:   5,
}

// DefaultCache leaves snapshot memoization off.
var DefaultCache = Cache{
	Enabled:  false,
	RedisURL: "redis://localhost:6379/0",
	TTL:      10 * time.Minute,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultWatch holds the default watch loop settings.
var DefaultWatch = Watch{
	Interval:       time.Minute,
	ClearRateDrop:  10,
	HardSpotRate:   0.5,
	LowRatingLimit: 2,
}
