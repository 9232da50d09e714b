package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/blackwell-systems/questwatch/internal/analytics"
	"github.com/blackwell-systems/questwatch/internal/cache"
	"github.com/blackwell-systems/questwatch/internal/config"
	"github.com/blackwell-systems/questwatch/internal/logger"
	"github.com/blackwell-systems/questwatch/internal/quest"
	"github.com/blackwell-systems/questwatch/internal/store"
)

// env is what every data command needs: config, logger, database, facade.
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *store.DB
	facade *analytics.Facade
	redis  *cache.Redis
}

// openEnv loads config and opens the database. Callers must Close the env.
// logPaths redirects logging away from stderr, as the watch daemon does.
func openEnv(ctx context.Context, logPaths ...string) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}

	log, err := logger.New(cfg.LogMode, flagVerbose, logPaths...)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
	}

	e := &env{cfg: cfg, log: log, db: db}

	opts := []analytics.Option{
		analytics.WithLogger(log),
		analytics.WithFetchTimeout(cfg.FetchTimeout),
		analytics.WithLimits(analytics.Limits{
			LatestReviews:  cfg.Limits.LatestReviews,
			CompactReviews: cfg.Limits.CompactReviews,
			RecentFeedback: cfg.Limits.RecentFeedback,
			HardestSpots:   cfg.Limits.HardestSpots,
		}),
	}
	if cfg.Cache.Enabled {
		r, err := cache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Warn("snapshot cache disabled", "err", err)
		} else if err := r.Ping(ctx); err != nil {
			log.Warn("snapshot cache disabled", "err", err)
			_ = r.Close()
		} else {
			e.redis = r
			opts = append(opts, analytics.WithCache(r))
		}
	}

	e.facade = analytics.NewFacade(analytics.StoresFrom(db), opts...)
	log.Debug("environment ready", "db", cfg.DBPath, "cache", e.redis != nil)
	return e, nil
}

// Close releases the database, cache client and logger.
func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	_ = e.db.Close()
	e.log.Sync()
}

// window resolves --window against the configured default.
func (e *env) window() (quest.Window, error) {
	raw := flagWindow
	if raw == "" {
		raw = e.cfg.DefaultWindow
	}
	return quest.ParseWindow(raw)
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
