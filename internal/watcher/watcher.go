// Package watcher periodically recomputes quest analytics and emits alerts
// when a quest's numbers move in a way worth a look.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/blackwell-systems/questwatch/internal/analytics"
	"github.com/blackwell-systems/questwatch/internal/logger"
	"github.com/blackwell-systems/questwatch/internal/quest"
	"github.com/blackwell-systems/questwatch/internal/store"
)

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert represents a notable change detected by the watcher.
type Alert struct {
	QuestID string    `json:"quest_id"`
	Level   string    `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`

	// Delta is the change in percentage points for rate alerts, zero otherwise.
	Delta float64 `json:"delta,omitempty"`
}

// Source computes a quest's detail snapshot.
type Source interface {
	Detail(ctx context.Context, questID string, window quest.Window) (analytics.QuestDetailAnalytics, error)
}

// SnapshotStore persists snapshots so a restarted watcher compares against
// what it last saw instead of starting fresh.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, questID, window string, takenAt time.Time, payload []byte) (int64, error)
	LatestSnapshot(ctx context.Context, questID, window string) (*store.Snapshot, error)
	PruneSnapshots(ctx context.Context, questID, window string, keep int) error
}

// Thresholds tune when Compare raises alerts.
type Thresholds struct {
	// ClearRateDrop is the fall in clear-rate percentage points that alerts.
	ClearRateDrop int
	// HardSpotRate is the puzzle error rate at which a spot counts as hard.
	HardSpotRate float64
	// LowRating is the highest rating counted as a low review.
	LowRating int
}

// DefaultThresholds mirror the watch config defaults.
var DefaultThresholds = Thresholds{ClearRateDrop: 10, HardSpotRate: 0.5, LowRating: 2}

// keepSnapshots is how many persisted snapshots are retained per quest.
const keepSnapshots = 20

// Watcher monitors a set of quests at a regular interval.
type Watcher struct {
	source     Source
	questIDs   []string
	window     quest.Window
	interval   time.Duration
	thresholds Thresholds
	alertFn    func(Alert)
	snapshots  SnapshotStore
	log        *logger.Logger
	now        func() time.Time
	latest     *analytics.Latest

	mu            sync.Mutex
	previous      map[string]*analytics.QuestDetailAnalytics
	lastAlertKeys map[string]map[string]bool // per quest: suppress repeated identical alerts
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithThresholds overrides the alert thresholds.
func WithThresholds(t Thresholds) Option { return func(w *Watcher) { w.thresholds = t } }

// WithSnapshotStore enables snapshot persistence.
func WithSnapshotStore(s SnapshotStore) Option { return func(w *Watcher) { w.snapshots = s } }

// WithLogger sets the watcher's logger.
func WithLogger(l *logger.Logger) Option { return func(w *Watcher) { w.log = l } }

// WithClock sets the time source for alert timestamps.
func WithClock(now func() time.Time) Option { return func(w *Watcher) { w.now = now } }

// WithWindow sets the analytics window watched.
func WithWindow(win quest.Window) Option { return func(w *Watcher) { w.window = win } }

// New creates a Watcher over questIDs.
func New(source Source, questIDs []string, interval time.Duration, alertFn func(Alert), opts ...Option) *Watcher {
	w := &Watcher{
		source:        source,
		questIDs:      questIDs,
		window:        quest.WindowAll,
		interval:      interval,
		thresholds:    DefaultThresholds,
		alertFn:       alertFn,
		log:           logger.Nop(),
		now:           time.Now,
		latest:        analytics.NewLatest(),
		previous:      make(map[string]*analytics.QuestDetailAnalytics),
		lastAlertKeys: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run takes an initial snapshot of every quest, then rechecks at each tick.
// A check still running when the next tick fires is superseded: its result is
// discarded. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, a := range w.Check(ctx) {
		w.emit(a)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, id := range w.questIDs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for _, a := range w.checkQuest(ctx, id) {
						w.emit(a)
					}
				}()
			}
		}
	}
}

func (w *Watcher) emit(a Alert) {
	if w.alertFn != nil {
		w.alertFn(a)
	}
}

// Check runs one cycle over every quest sequentially and returns the alerts.
func (w *Watcher) Check(ctx context.Context) []Alert {
	var alerts []Alert
	for _, id := range w.questIDs {
		alerts = append(alerts, w.checkQuest(ctx, id)...)
	}
	return alerts
}

// checkQuest recomputes one quest, compares it with the previous snapshot,
// and returns the alerts that were not already raised last cycle.
func (w *Watcher) checkQuest(ctx context.Context, questID string) []Alert {
	ticket, reqCtx := w.latest.Begin(ctx, questID)
	defer w.latest.Done(ticket)

	curr, err := w.source.Detail(reqCtx, questID, w.window)
	if !w.latest.Current(ticket) {
		w.log.Debug("discarding superseded check", "quest_id", questID)
		return nil
	}
	if err != nil {
		return []Alert{{
			QuestID: questID,
			Level:   LevelWarning,
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not compute analytics for %s: %v", questID, err),
			Time:    w.now(),
		}}
	}

	prev := w.loadPrevious(ctx, questID)

	var raw []Alert
	if prev != nil {
		raw = Compare(prev, &curr, w.thresholds)
	}
	now := w.now()
	for i := range raw {
		raw[i].QuestID = questID
		raw[i].Time = now
	}

	w.mu.Lock()
	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[questID][key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys[questID] = currentKeys
	w.previous[questID] = &curr
	w.mu.Unlock()

	w.persist(ctx, questID, curr)
	return alerts
}

// loadPrevious returns the last snapshot seen for questID, falling back to
// the persisted one on the first check after a restart.
func (w *Watcher) loadPrevious(ctx context.Context, questID string) *analytics.QuestDetailAnalytics {
	w.mu.Lock()
	prev, ok := w.previous[questID]
	w.mu.Unlock()
	if ok || w.snapshots == nil {
		return prev
	}

	rec, err := w.snapshots.LatestSnapshot(ctx, questID, w.window.String())
	if err != nil {
		w.log.Warn("loading persisted snapshot", "quest_id", questID, "err", err)
		return nil
	}
	if rec == nil {
		return nil
	}
	var snap analytics.QuestDetailAnalytics
	if err := json.Unmarshal(rec.Payload, &snap); err != nil {
		w.log.Warn("ignoring undecodable snapshot", "quest_id", questID, "err", err)
		return nil
	}
	return &snap
}

func (w *Watcher) persist(ctx context.Context, questID string, snap analytics.QuestDetailAnalytics) {
	if w.snapshots == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		w.log.Warn("encoding snapshot", "quest_id", questID, "err", err)
		return
	}
	if _, err := w.snapshots.SaveSnapshot(ctx, questID, w.window.String(), snap.AsOf, payload); err != nil {
		w.log.Warn("saving snapshot", "quest_id", questID, "err", err)
		return
	}
	if err := w.snapshots.PruneSnapshots(ctx, questID, w.window.String(), keepSnapshots); err != nil {
		w.log.Warn("pruning snapshots", "quest_id", questID, "err", err)
	}
}
