package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

var testNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func daysAgo(d int) time.Time { return testNow.Add(-time.Duration(d) * 24 * time.Hour) }

func intPtr(v int) *int { return &v }

// fakeBackend serves fixed rows and can fail any stream on demand.
type fakeBackend struct {
	quests   []quest.Quest
	sessions []quest.PlaySession
	reviews  []quest.Review
	events   []quest.GameplayEvent
	feedback []quest.Feedback
	version  string
	instance string

	failQuests, failSessions, failReviews, failEvents, failFeedback error

	sessionCalls atomic.Int32
	mu           sync.Mutex
	batches      [][]string
}

func (b *fakeBackend) FetchQuests(_ context.Context, ids []string) ([]quest.Quest, error) {
	if b.failQuests != nil {
		return nil, b.failQuests
	}
	var out []quest.Quest
	for _, q := range b.quests {
		if contains(ids, q.ID) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (b *fakeBackend) FetchSessions(_ context.Context, ids []string) ([]quest.PlaySession, error) {
	b.sessionCalls.Add(1)
	b.mu.Lock()
	b.batches = append(b.batches, ids)
	b.mu.Unlock()
	if b.failSessions != nil {
		return nil, b.failSessions
	}
	var out []quest.PlaySession
	for _, s := range b.sessions {
		if contains(ids, s.QuestID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *fakeBackend) FetchReviews(_ context.Context, ids []string) ([]quest.Review, error) {
	if b.failReviews != nil {
		return nil, b.failReviews
	}
	var out []quest.Review
	for _, r := range b.reviews {
		if contains(ids, r.QuestID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *fakeBackend) FetchEvents(_ context.Context, questID, eventType string) ([]quest.GameplayEvent, error) {
	if b.failEvents != nil {
		return nil, b.failEvents
	}
	var out []quest.GameplayEvent
	for _, e := range b.events {
		if e.QuestID == questID && e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (b *fakeBackend) FetchFeedback(_ context.Context, questID string) ([]quest.Feedback, error) {
	if b.failFeedback != nil {
		return nil, b.failFeedback
	}
	var out []quest.Feedback
	for _, f := range b.feedback {
		if f.QuestID == questID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (b *fakeBackend) DataVersion(context.Context, string) (string, error) {
	return b.version, nil
}

func (b *fakeBackend) InstanceID(context.Context) (string, error) {
	return b.instance, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func cleared(id, questID, user string, ago, durationSec, solved int) quest.PlaySession {
	end := daysAgo(ago)
	return quest.PlaySession{
		ID:          id,
		QuestID:     questID,
		UserID:      user,
		StartedAt:   end.Add(-time.Duration(durationSec) * time.Second),
		EndedAt:     &end,
		DurationSec: intPtr(durationSec),
		HintsUsed:   intPtr(1),
		SolvedSpots: solved,
	}
}

func open(id, questID, user string, ago, solved int) quest.PlaySession {
	return quest.PlaySession{ID: id, QuestID: questID, UserID: user, StartedAt: daysAgo(ago), SolvedSpots: solved}
}

func event(questID, spot, typ, data string, ago int) quest.GameplayEvent {
	return quest.GameplayEvent{QuestID: questID, SpotID: spot, EventType: typ, EventData: json.RawMessage(data), CreatedAt: daysAgo(ago)}
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		version:  "v1",
		instance: "db-a",
		quests: []quest.Quest{
			{ID: "q1", Title: "Harbor Mysteries", Steps: []quest.StepDefinition{
				{Ordinal: 1, Name: "Lighthouse"}, {Ordinal: 2, Name: "Fish market"}, {Ordinal: 3, Name: "Old dock"},
			}},
			{ID: "q2", Title: "Castle Run"},
		},
		sessions: []quest.PlaySession{
			cleared("s1", "q1", "alice", 1, 1800, 3),
			cleared("s2", "q1", "bob", 2, 2400, 3),
			open("s3", "q1", "alice", 3, 1),
			open("s4", "q1", "carol", 40, 0),
			cleared("s5", "q2", "dave", 10, 600, 0),
		},
		reviews: []quest.Review{
			{ID: "r1", QuestID: "q1", Rating: intPtr(5), Comment: "great", CreatedAt: daysAgo(1)},
			{ID: "r2", QuestID: "q1", Rating: intPtr(3), Comment: "ok", CreatedAt: daysAgo(20)},
			{ID: "r3", QuestID: "q2", Rating: intPtr(4), CreatedAt: daysAgo(2)},
		},
		events: []quest.GameplayEvent{
			event("q1", "", quest.EventSessionAbandon, `{"mode":"ar"}`, 3),
			event("q1", "spot-a", quest.EventPuzzleSubmit, `{"correct":false}`, 2),
			event("q1", "spot-a", quest.EventPuzzleSubmit, `{"correct":true}`, 2),
		},
		feedback: []quest.Feedback{
			{ID: "f1", QuestID: "q1", Category: quest.CategoryGPSError, Message: "no signal", CreatedAt: daysAgo(5)},
		},
	}
}

func TestSummarize_NoIDs(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	_, err := f.Summarize(context.Background(), []string{"", "  "}, quest.WindowAll)
	assert.ErrorIs(t, err, ErrNoQuestIDs)
}

func TestSummarize_UnknownWindow(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	_, err := f.Summarize(context.Background(), []string{"q1"}, quest.Window("90d"))
	assert.ErrorIs(t, err, quest.ErrUnknownWindow)
}

func TestSummarize_RowsInInputOrder(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	rows, err := f.Summarize(context.Background(), []string{"q2", "q1", "q2", "missing"}, quest.WindowAll)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "q2", rows[0].QuestID)
	assert.Equal(t, "Castle Run", rows[0].Title)
	assert.Equal(t, "q1", rows[1].QuestID)
	assert.Equal(t, "missing", rows[2].QuestID)
	assert.Equal(t, 0, rows[2].PlayCount)
	assert.Nil(t, rows[2].AvgRating)

	q1 := rows[1]
	assert.Equal(t, 4, q1.PlayCount)
	assert.Equal(t, 3, q1.UniquePlayers)
	assert.Equal(t, 2, q1.ClearCount)
	assert.Equal(t, 50, q1.ClearRate)
	require.NotNil(t, q1.AvgDurationMin)
	assert.Equal(t, 35, *q1.AvgDurationMin)
	require.NotNil(t, q1.AvgRating)
	assert.InDelta(t, 4.0, *q1.AvgRating, 1e-9)
	assert.Equal(t, 2, q1.ReviewCount)
	assert.Len(t, q1.LatestReviews, 2)
	assert.True(t, q1.Sources.Complete())
}

func TestSummarize_Window(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	rows, err := f.Summarize(context.Background(), []string{"q1"}, quest.Window7Days)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].PlayCount)
	assert.Equal(t, 1, rows[0].ReviewCount)
}

func TestSummarize_ReviewFailureDegradesRow(t *testing.T) {
	b := newBackend()
	b.failReviews = errors.New("connection reset")
	f := NewFacade(StoresFrom(b), WithClock(fixedClock))

	rows, err := f.Summarize(context.Background(), []string{"q1"}, quest.WindowAll)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].PlayCount)
	assert.Nil(t, rows[0].AvgRating)
	assert.Equal(t, StatusOK, rows[0].Sources.Sessions)
	assert.Equal(t, StatusUnavailable, rows[0].Sources.Reviews)
	assert.False(t, rows[0].Sources.Complete())
}

func TestSummarize_Batches(t *testing.T) {
	b := newBackend()
	f := NewFacade(StoresFrom(b), WithClock(fixedClock), WithBatchSize(2), WithConcurrency(2))

	rows, err := f.Summarize(context.Background(), []string{"a", "b", "c", "d", "q1"}, quest.WindowAll)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, int32(3), b.sessionCalls.Load())
	for _, batch := range b.batches {
		assert.LessOrEqual(t, len(batch), 2)
	}
	assert.Equal(t, 4, rows[4].PlayCount)
}

func TestDetail_Full(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	d, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)

	assert.True(t, d.Complete())
	assert.Equal(t, "Harbor Mysteries", d.Title)
	assert.Equal(t, testNow, d.AsOf)
	assert.Equal(t, 4, d.Summary.Data.PlayCount)

	require.Len(t, d.Steps.Data, 3)
	assert.Equal(t, "Lighthouse", d.Steps.Data[0].Name)
	assert.Equal(t, 4, d.Steps.Data[0].Reached)
	assert.Equal(t, 3, d.Steps.Data[0].Completed)

	assert.Equal(t, 2, d.Reviews.Data.Count)
	require.Len(t, d.GameplayEvents.Data.DropOffByMode, 1)
	assert.Equal(t, "ar", d.GameplayEvents.Data.DropOffByMode[0].Mode)
	require.Len(t, d.GameplayEvents.Data.PuzzleErrorRate, 1)
	assert.InDelta(t, 0.5, d.GameplayEvents.Data.PuzzleErrorRate[0].Rate, 1e-9)
	assert.Equal(t, 1, d.FeedbackStats.Data.Total)
}

func TestDetail_EmptyQuestID(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	_, err := f.Detail(context.Background(), " ", quest.WindowAll)
	assert.ErrorIs(t, err, ErrNoQuestIDs)
}

func TestDetail_SessionFailureKeepsEventData(t *testing.T) {
	b := newBackend()
	b.failSessions = errors.New("sessions down")
	f := NewFacade(StoresFrom(b), WithClock(fixedClock))

	d, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.False(t, d.Complete())
	assert.False(t, d.Summary.OK())
	assert.False(t, d.Steps.OK())

	ev := d.GameplayEvents
	assert.Equal(t, StatusPartial, ev.Status)
	assert.True(t, ev.Usable())
	assert.Contains(t, ev.Error, "sessions down")
	require.Len(t, ev.Data.DropOffByMode, 1)
	assert.Equal(t, "ar", ev.Data.DropOffByMode[0].Mode)
	assert.Equal(t, 1, ev.Data.DropOffByMode[0].Count)
	require.Len(t, ev.Data.PuzzleErrorRate, 1)
	assert.InDelta(t, 0.5, ev.Data.PuzzleErrorRate[0].Rate, 1e-9)
}

func TestDetail_PartialFailure(t *testing.T) {
	b := newBackend()
	b.failFeedback = errors.New("feedback table locked")
	b.failEvents = errors.New("timeout")
	f := NewFacade(StoresFrom(b), WithClock(fixedClock))

	d, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.False(t, d.Complete())

	assert.True(t, d.Summary.OK())
	assert.True(t, d.Steps.OK())
	assert.True(t, d.Reviews.OK())

	assert.Equal(t, StatusUnavailable, d.FeedbackStats.Status)
	assert.Contains(t, d.FeedbackStats.Error, "feedback table locked")
	assert.Equal(t, 0, d.FeedbackStats.Data.Total)
	assert.Equal(t, StatusUnavailable, d.GameplayEvents.Status)
	assert.Empty(t, d.GameplayEvents.Data.DropOffByMode)
}

func TestDetail_QuestMetaFailureOnlyAffectsSteps(t *testing.T) {
	b := newBackend()
	b.failQuests = errors.New("boom")
	f := NewFacade(StoresFrom(b), WithClock(fixedClock))

	d, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Empty(t, d.Title)
	assert.False(t, d.Steps.OK())
	assert.NotNil(t, d.Steps.Data)
	assert.True(t, d.Summary.OK())
}

func TestDetail_MissingStore(t *testing.T) {
	b := newBackend()
	stores := StoresFrom(b)
	stores.Feedback = nil
	f := NewFacade(stores, WithClock(fixedClock))

	d, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.False(t, d.FeedbackStats.OK())
	assert.True(t, d.Reviews.OK())
}

func TestDetail_TypedNilStoreDegrades(t *testing.T) {
	stores := StoresFrom(newBackend())
	stores.Sessions = (*fakeBackend)(nil)
	f := NewFacade(stores, WithClock(fixedClock))

	d, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, d.Summary.Status)
	assert.Contains(t, d.Summary.Error, errStoreMissing.Error())
	assert.True(t, d.Reviews.OK())

	rows, err := f.Summarize(context.Background(), []string{"q1"}, quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, rows[0].Sources.Sessions)
}

func TestSummarize_Idempotent(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	ids := []string{"q1", "q2"}
	first, err := f.Summarize(context.Background(), ids, quest.Window30Days)
	require.NoError(t, err)
	second, err := f.Summarize(context.Background(), ids, quest.Window30Days)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDetail_Idempotent(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	first, err := f.Detail(context.Background(), "q1", quest.Window30Days)
	require.NoError(t, err)
	second, err := f.Detail(context.Background(), "q1", quest.Window30Days)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDetail_WindowNarrowsEveryStream(t *testing.T) {
	f := NewFacade(StoresFrom(newBackend()), WithClock(fixedClock))
	all, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	week, err := f.Detail(context.Background(), "q1", quest.Window7Days)
	require.NoError(t, err)

	assert.LessOrEqual(t, week.Summary.Data.PlayCount, all.Summary.Data.PlayCount)
	assert.Equal(t, 3, week.Summary.Data.PlayCount)
	assert.Equal(t, 1, week.Reviews.Data.Count)
	assert.Equal(t, 1, week.FeedbackStats.Data.Total)
}

// memCache is an in-process Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func TestDetail_CacheAllWindowOnly(t *testing.T) {
	b := newBackend()
	c := newMemCache()
	f := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c))

	first, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets)
	_, ok := c.data[CacheKey("db-a", "q1", quest.WindowAll, "v1", DefaultLimits)]
	assert.True(t, ok)

	second, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.sessionCalls.Load(), "second call is served from cache")
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.GameplayEvents, second.GameplayEvents)

	_, err = f.Detail(context.Background(), "q1", quest.Window7Days)
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets)
	assert.Equal(t, int32(2), b.sessionCalls.Load())
}

func TestDetail_CacheSkipsDegradedSnapshots(t *testing.T) {
	b := newBackend()
	b.failFeedback = errors.New("down")
	c := newMemCache()
	f := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c))

	_, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 0, c.sets)
}

func TestDetail_NewVersionMissesCache(t *testing.T) {
	b := newBackend()
	c := newMemCache()
	f := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c))

	_, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	b.version = "v2"
	_, err = f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 2, c.sets)
	assert.Equal(t, int32(2), b.sessionCalls.Load())
}

func TestDetail_CacheIsolatesDatabases(t *testing.T) {
	c := newMemCache()
	a := newBackend()
	b := newBackend()
	b.instance = "db-b"
	b.sessions = nil
	b.reviews = nil

	fa := NewFacade(StoresFrom(a), WithClock(fixedClock), WithCache(c))
	fb := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c))

	da, err := fa.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	require.Equal(t, 4, da.Summary.Data.PlayCount)

	db, err := fb.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 0, db.Summary.Data.PlayCount)
	assert.Equal(t, 0, db.Reviews.Data.Count)
	assert.Equal(t, 2, c.sets)
}

func TestDetail_CacheKeyedByLimits(t *testing.T) {
	c := newMemCache()
	b := newBackend()

	wide := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c))
	_, err := wide.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)

	limits := DefaultLimits
	limits.LatestReviews = 1
	narrow := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c), WithLimits(limits))
	d, err := narrow.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Len(t, d.Reviews.Data.Latest, 1)
	assert.Equal(t, 2, c.sets)
}

func TestDetail_CacheBypassedWithoutStoreIdentity(t *testing.T) {
	b := newBackend()
	b.instance = ""
	c := newMemCache()
	f := NewFacade(StoresFrom(b), WithClock(fixedClock), WithCache(c))

	_, err := f.Detail(context.Background(), "q1", quest.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 0, c.sets)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, uniqueIDs([]string{" b", "a", "", "b"}))
}
