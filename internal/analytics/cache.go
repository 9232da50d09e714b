package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// Cache stores encoded detail snapshots. Implementations must treat a missing
// key as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, []byte) error         { return nil }

// CacheKey names the cached snapshot of a quest. storeID identifies the
// database, version its data for the quest, and the limits fingerprint the
// list sizes the snapshot was built with.
func CacheKey(storeID, questID string, window quest.Window, version string, l Limits) string {
	return fmt.Sprintf("questwatch:detail:%s:%s:%s:%s:%s", storeID, l.fingerprint(), questID, window, version)
}

func (l Limits) fingerprint() string {
	return fmt.Sprintf("r%d.c%d.f%d.h%d", l.LatestReviews, l.CompactReviews, l.RecentFeedback, l.HardestSpots)
}

// cacheKey returns the snapshot key and whether this request may use the
// cache at all. Only the all-time window is memoized: trailing windows depend
// on the clock, so their content changes without any write. Stores that
// cannot name their database and data version are never cached.
func (f *Facade) cacheKey(ctx context.Context, questID string, window quest.Window) (string, bool) {
	if window != quest.WindowAll {
		return "", false
	}
	if _, nop := f.cache.(NopCache); nop || f.cache == nil || isNil(f.stores.Quests) {
		return "", false
	}
	v, ok := f.stores.Quests.(Versioner)
	if !ok {
		return "", false
	}
	id, ok := f.stores.Quests.(Identifier)
	if !ok {
		return "", false
	}
	storeID, err := id.InstanceID(ctx)
	if err != nil || storeID == "" {
		f.log.Warn("store identity lookup failed, bypassing cache", "quest_id", questID, "err", err)
		return "", false
	}
	version, err := v.DataVersion(ctx, questID)
	if err != nil {
		f.log.Warn("data version lookup failed, bypassing cache", "quest_id", questID, "err", err)
		return "", false
	}
	return CacheKey(storeID, questID, window, version, f.limits), true
}

func (f *Facade) cacheGet(ctx context.Context, key string) (QuestDetailAnalytics, bool) {
	raw, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.log.Warn("cache read failed", "key", key, "err", err)
		return QuestDetailAnalytics{}, false
	}
	if !ok {
		return QuestDetailAnalytics{}, false
	}
	var snap QuestDetailAnalytics
	if err := json.Unmarshal(raw, &snap); err != nil {
		f.log.Warn("discarding undecodable cache entry", "key", key, "err", err)
		return QuestDetailAnalytics{}, false
	}
	return snap, true
}

func (f *Facade) cacheSet(ctx context.Context, key string, snap QuestDetailAnalytics) {
	raw, err := json.Marshal(snap)
	if err != nil {
		f.log.Warn("encoding snapshot for cache", "key", key, "err", err)
		return
	}
	if err := f.cache.Set(ctx, key, raw); err != nil {
		f.log.Warn("cache write failed", "key", key, "err", err)
	}
}
