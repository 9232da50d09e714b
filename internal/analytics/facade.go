// Package analytics assembles per-quest analytics snapshots from the record
// stores, running the analyzer package over windowed rows.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/questwatch/internal/analyzer"
	"github.com/blackwell-systems/questwatch/internal/logger"
	"github.com/blackwell-systems/questwatch/internal/quest"
)

// ErrNoQuestIDs is returned when a request names no quest.
var ErrNoQuestIDs = errors.New("no quest IDs given")

// errStoreMissing marks a section whose store was never configured.
var errStoreMissing = errors.New("store not configured")

// Limits sets the sizes of the recency samples and rankings.
type Limits struct {
	LatestReviews  int
	CompactReviews int
	RecentFeedback int
	HardestSpots   int
}

// DefaultLimits matches the list and detail surfaces.
var DefaultLimits = Limits{
	LatestReviews:  10,
	CompactReviews: 3,
	RecentFeedback: 5,
	HardestSpots:   5,
}

// defaultBatchSize keeps IN (...) lists well under SQLite's variable limit.
const defaultBatchSize = 200

// QuestSummary is one row of the quest overview table.
type QuestSummary struct {
	QuestID string `json:"quest_id"`
	Title   string `json:"title"`
	analyzer.QuestMetrics
	AvgRating     *float64                `json:"avg_rating"`
	ReviewCount   int                     `json:"review_count"`
	LatestReviews []analyzer.ReviewSample `json:"latest_reviews,omitempty"`
	Sources       SummarySources          `json:"sources"`
}

// SummarySources records which inputs of a summary row were readable.
type SummarySources struct {
	Quest    Status `json:"quest"`
	Sessions Status `json:"sessions"`
	Reviews  Status `json:"reviews"`
}

// Complete reports whether every input of the row was readable.
func (s SummarySources) Complete() bool {
	return s.Quest == StatusOK && s.Sessions == StatusOK && s.Reviews == StatusOK
}

// QuestDetailAnalytics is the full analytics snapshot of one quest.
type QuestDetailAnalytics struct {
	QuestID string       `json:"quest_id"`
	Title   string       `json:"title"`
	Window  quest.Window `json:"window"`
	AsOf    time.Time    `json:"as_of"`

	Summary        Section[analyzer.QuestMetrics]  `json:"summary"`
	Steps          Section[[]analyzer.FunnelStep]  `json:"steps"`
	Reviews        Section[analyzer.ReviewStats]   `json:"reviews"`
	GameplayEvents Section[analyzer.EventStats]    `json:"gameplay_events"`
	FeedbackStats  Section[analyzer.FeedbackStats] `json:"feedback_stats"`
}

// Complete reports whether every section was computed from a successful fetch.
func (d QuestDetailAnalytics) Complete() bool {
	return d.Summary.OK() && d.Steps.OK() && d.Reviews.OK() && d.GameplayEvents.OK() && d.FeedbackStats.OK()
}

// Facade computes quest analytics on demand. It holds no per-request state;
// every call fetches and aggregates from scratch (apart from the optional
// snapshot cache).
type Facade struct {
	stores       Stores
	now          func() time.Time
	log          *logger.Logger
	limits       Limits
	fetchTimeout time.Duration
	batchSize    int
	concurrency  int
	cache        Cache
}

// Option configures a Facade.
type Option func(*Facade)

// WithClock sets the source of "now" for window filtering.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) { f.now = now }
}

// WithLogger sets the logger used for degraded sections and timings.
func WithLogger(l *logger.Logger) Option {
	return func(f *Facade) { f.log = l }
}

// WithLimits overrides the recency and ranking sizes.
func WithLimits(l Limits) Option {
	return func(f *Facade) { f.limits = l }
}

// WithFetchTimeout bounds each store call. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Facade) { f.fetchTimeout = d }
}

// WithBatchSize sets how many quest IDs go into one store call.
func WithBatchSize(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithConcurrency caps concurrent batch fetches during Summarize.
func WithConcurrency(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithCache enables snapshot memoization for the all-time window.
func WithCache(c Cache) Option {
	return func(f *Facade) { f.cache = c }
}

// NewFacade builds a Facade over the given stores.
func NewFacade(stores Stores, opts ...Option) *Facade {
	f := &Facade{
		stores:      stores,
		now:         time.Now,
		log:         logger.Nop(),
		limits:      DefaultLimits,
		batchSize:   defaultBatchSize,
		concurrency: 4,
		cache:       NopCache{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Summarize returns one overview row per distinct quest ID, in input order.
// A failed store call degrades the affected columns and is reported in the
// row's Sources instead of failing the request.
func (f *Facade) Summarize(ctx context.Context, questIDs []string, window quest.Window) ([]QuestSummary, error) {
	ids := uniqueIDs(questIDs)
	if len(ids) == 0 {
		return nil, ErrNoQuestIDs
	}
	window, err := quest.ParseWindow(string(window))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	now := f.now()

	var (
		quests    []quest.Quest
		sessions  []quest.PlaySession
		reviews   []quest.Review
		questErr  error
		sessErr   error
		reviewErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quests, questErr = fetchBatched(gctx, f, ids, storeCall(f.stores.Quests, func(s QuestStore) batchFetch[quest.Quest] {
			return s.FetchQuests
		}))
		return nil
	})
	g.Go(func() error {
		sessions, sessErr = fetchBatched(gctx, f, ids, storeCall(f.stores.Sessions, func(s SessionStore) batchFetch[quest.PlaySession] {
			return s.FetchSessions
		}))
		return nil
	})
	g.Go(func() error {
		reviews, reviewErr = fetchBatched(gctx, f, ids, storeCall(f.stores.Reviews, func(s ReviewStore) batchFetch[quest.Review] {
			return s.FetchReviews
		}))
		return nil
	})
	_ = g.Wait()

	f.logDegraded("summary", strings.Join(ids, ","), map[string]error{
		"quests":   questErr,
		"sessions": sessErr,
		"reviews":  reviewErr,
	})

	titles := make(map[string]string, len(quests))
	for _, q := range quests {
		titles[q.ID] = q.Title
	}
	sessionsByQuest := groupBy(sessions, func(s quest.PlaySession) string { return s.QuestID })
	reviewsByQuest := groupBy(reviews, func(r quest.Review) string { return r.QuestID })

	rows := make([]QuestSummary, 0, len(ids))
	for _, id := range ids {
		qs := analyzer.FilterWindow(sessionsByQuest[id], window, now)
		qr := analyzer.FilterWindow(reviewsByQuest[id], window, now)
		rs := analyzer.AnalyzeReviews(qr, 0)

		rows = append(rows, QuestSummary{
			QuestID:       id,
			Title:         titles[id],
			QuestMetrics:  analyzer.AnalyzeMetrics(qs),
			AvgRating:     rs.AvgRating,
			ReviewCount:   rs.Count,
			LatestReviews: analyzer.LatestReviews(qr, f.limits.CompactReviews),
			Sources: SummarySources{
				Quest:    statusOf(questErr),
				Sessions: statusOf(sessErr),
				Reviews:  statusOf(reviewErr),
			},
		})
	}

	f.log.Debug("summarized quests", "count", len(rows), "window", window, "elapsed", time.Since(start))
	return rows, nil
}

// Detail returns the full analytics snapshot of one quest. Each section is
// tagged unavailable when one of its sources failed; the others are still
// computed.
func (f *Facade) Detail(ctx context.Context, questID string, window quest.Window) (QuestDetailAnalytics, error) {
	questID = strings.TrimSpace(questID)
	if questID == "" {
		return QuestDetailAnalytics{}, ErrNoQuestIDs
	}
	window, err := quest.ParseWindow(string(window))
	if err != nil {
		return QuestDetailAnalytics{}, err
	}

	start := time.Now()
	now := f.now()

	key, cacheable := f.cacheKey(ctx, questID, window)
	if cacheable {
		if snap, ok := f.cacheGet(ctx, key); ok {
			snap.AsOf = now
			f.log.Debug("detail cache hit", "quest_id", questID, "key", key)
			return snap, nil
		}
	}

	var (
		quests     []quest.Quest
		sessions   []quest.PlaySession
		reviews    []quest.Review
		abandons   []quest.GameplayEvent
		submits    []quest.GameplayEvent
		feedback   []quest.Feedback
		questErr   error
		sessErr    error
		reviewErr  error
		abandonErr error
		submitErr  error
		fbErr      error
	)

	ids := []string{questID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quests, questErr = fetchOne(gctx, f, f.stores.Quests, func(c context.Context, s QuestStore) ([]quest.Quest, error) {
			return s.FetchQuests(c, ids)
		})
		return nil
	})
	g.Go(func() error {
		sessions, sessErr = fetchOne(gctx, f, f.stores.Sessions, func(c context.Context, s SessionStore) ([]quest.PlaySession, error) {
			return s.FetchSessions(c, ids)
		})
		return nil
	})
	g.Go(func() error {
		reviews, reviewErr = fetchOne(gctx, f, f.stores.Reviews, func(c context.Context, s ReviewStore) ([]quest.Review, error) {
			return s.FetchReviews(c, ids)
		})
		return nil
	})
	g.Go(func() error {
		abandons, abandonErr = fetchOne(gctx, f, f.stores.Events, func(c context.Context, s EventStore) ([]quest.GameplayEvent, error) {
			return s.FetchEvents(c, questID, quest.EventSessionAbandon)
		})
		return nil
	})
	g.Go(func() error {
		submits, submitErr = fetchOne(gctx, f, f.stores.Events, func(c context.Context, s EventStore) ([]quest.GameplayEvent, error) {
			return s.FetchEvents(c, questID, quest.EventPuzzleSubmit)
		})
		return nil
	})
	g.Go(func() error {
		feedback, fbErr = fetchOne(gctx, f, f.stores.Feedback, func(c context.Context, s FeedbackStore) ([]quest.Feedback, error) {
			return s.FetchFeedback(c, questID)
		})
		return nil
	})
	_ = g.Wait()

	f.logDegraded("detail", questID, map[string]error{
		"quests":   questErr,
		"sessions": sessErr,
		"reviews":  reviewErr,
		"abandons": abandonErr,
		"submits":  submitErr,
		"feedback": fbErr,
	})

	var meta quest.Quest
	for _, q := range quests {
		if q.ID == questID {
			meta = q
			break
		}
	}

	sessions = analyzer.FilterWindow(onlyQuest(sessions, questID, func(s quest.PlaySession) string { return s.QuestID }), window, now)
	reviews = analyzer.FilterWindow(onlyQuest(reviews, questID, func(r quest.Review) string { return r.QuestID }), window, now)
	events := analyzer.FilterWindow(append(append([]quest.GameplayEvent{}, abandons...), submits...), window, now)
	feedback = analyzer.FilterWindow(feedback, window, now)

	snap := QuestDetailAnalytics{
		QuestID: questID,
		Title:   meta.Title,
		Window:  window,
		AsOf:    now,
	}

	if sessErr != nil {
		snap.Summary = Unavailable(sessErr, analyzer.AnalyzeMetrics(nil))
	} else {
		snap.Summary = Available(analyzer.AnalyzeMetrics(sessions))
	}

	if err := errors.Join(sessErr, questErr); err != nil {
		snap.Steps = Unavailable(err, []analyzer.FunnelStep{})
	} else {
		steps := analyzer.ReconstructFunnel(sessions, meta.Steps)
		if steps == nil {
			steps = []analyzer.FunnelStep{}
		}
		snap.Steps = Available(steps)
	}

	if reviewErr != nil {
		snap.Reviews = Unavailable(reviewErr, analyzer.AnalyzeReviews(nil, 0))
	} else {
		snap.Reviews = Available(analyzer.AnalyzeReviews(reviews, f.limits.LatestReviews))
	}

	switch {
	case abandonErr != nil || submitErr != nil:
		snap.GameplayEvents = Unavailable(errors.Join(abandonErr, submitErr), analyzer.AnalyzeEvents(nil, nil, 0))
	case sessErr != nil:
		// Drop-off and puzzle rates come from events alone.
		snap.GameplayEvents = Partial(fmt.Errorf("hint usage: %w", sessErr), analyzer.AnalyzeEvents(events, nil, f.limits.HardestSpots))
	default:
		snap.GameplayEvents = Available(analyzer.AnalyzeEvents(events, sessions, f.limits.HardestSpots))
	}

	if fbErr != nil {
		snap.FeedbackStats = Unavailable(fbErr, analyzer.AnalyzeFeedback(nil, 0))
	} else {
		snap.FeedbackStats = Available(analyzer.AnalyzeFeedback(feedback, f.limits.RecentFeedback))
	}

	if cacheable && snap.Complete() {
		f.cacheSet(ctx, key, snap)
	}

	f.log.Debug("built quest detail", "quest_id", questID, "window", window, "complete", snap.Complete(), "elapsed", time.Since(start))
	return snap, nil
}

// fetchContext derives the per-call context for one store call.
func (f *Facade) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.fetchTimeout)
}

func (f *Facade) logDegraded(op, questIDs string, errs map[string]error) {
	for source, err := range errs {
		if err != nil {
			f.log.Warn("store fetch failed, section degraded",
				"op", op, "source", source, "quest_ids", questIDs, "err", err)
		}
	}
}

// fetchOne runs a single store call under the facade's fetch timeout.
func fetchOne[S any, T any](ctx context.Context, f *Facade, store S, call func(context.Context, S) ([]T, error)) ([]T, error) {
	if isNil(store) {
		return nil, errStoreMissing
	}
	fctx, cancel := f.fetchContext(ctx)
	defer cancel()
	rows, err := call(fctx, store)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// batchFetch is a store method taking a list of quest IDs.
type batchFetch[T any] func(context.Context, []string) ([]T, error)

// storeCall adapts a possibly-nil store to a batchFetch.
func storeCall[S any, T any](store S, method func(S) batchFetch[T]) batchFetch[T] {
	if isNil(store) {
		return nil
	}
	return method(store)
}

// fetchBatched splits ids into batches and fetches them concurrently, capped
// at the facade's concurrency. Any failed batch fails the whole source so a
// row is never reported from partial data.
func fetchBatched[T any](ctx context.Context, f *Facade, ids []string, call batchFetch[T]) ([]T, error) {
	if call == nil {
		return nil, errStoreMissing
	}

	var (
		mu  sync.Mutex
		out []T
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for start := 0; start < len(ids); start += f.batchSize {
		end := min(start+f.batchSize, len(ids))
		batch := ids[start:end]
		g.Go(func() error {
			fctx, cancel := f.fetchContext(gctx)
			defer cancel()
			rows, err := call(fctx, batch)
			if err != nil {
				return fmt.Errorf("batch of %d quests: %w", len(batch), err)
			}
			mu.Lock()
			out = append(out, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func statusOf(err error) Status {
	if err != nil {
		return StatusUnavailable
	}
	return StatusOK
}

// uniqueIDs trims, drops empty entries, and removes duplicates, keeping the
// first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func groupBy[T any](rows []T, keyOf func(T) string) map[string][]T {
	m := make(map[string][]T)
	for _, r := range rows {
		k := keyOf(r)
		m[k] = append(m[k], r)
	}
	return m
}

// onlyQuest drops rows a store returned for other quests.
func onlyQuest[T any](rows []T, questID string, keyOf func(T) string) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keyOf(r) == questID {
			out = append(out, r)
		}
	}
	return out
}

// isNil reports whether an interface-typed store is unset, including a typed
// nil pointer stored in the interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
