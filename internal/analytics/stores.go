package analytics

import (
	"context"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// SessionStore returns play sessions for a set of quests.
type SessionStore interface {
	FetchSessions(ctx context.Context, questIDs []string) ([]quest.PlaySession, error)
}

// ReviewStore returns reviews for a set of quests.
type ReviewStore interface {
	FetchReviews(ctx context.Context, questIDs []string) ([]quest.Review, error)
}

// EventStore returns gameplay events of one type for a quest.
type EventStore interface {
	FetchEvents(ctx context.Context, questID, eventType string) ([]quest.GameplayEvent, error)
}

// FeedbackStore returns player feedback for a quest.
type FeedbackStore interface {
	FetchFeedback(ctx context.Context, questID string) ([]quest.Feedback, error)
}

// QuestStore returns titles and step definitions for a set of quests.
type QuestStore interface {
	FetchQuests(ctx context.Context, questIDs []string) ([]quest.Quest, error)
}

// Versioner reports a token that changes whenever a quest's underlying rows
// change. Stores that implement it make detail snapshots cacheable.
type Versioner interface {
	DataVersion(ctx context.Context, questID string) (string, error)
}

// Identifier reports a token unique to one underlying database. Snapshot
// cache keys carry it so databases sharing a cache never see each other's
// entries.
type Identifier interface {
	InstanceID(ctx context.Context) (string, error)
}

// Stores bundles the collaborators the facade reads from.
type Stores struct {
	Sessions SessionStore
	Reviews  ReviewStore
	Events   EventStore
	Feedback FeedbackStore
	Quests   QuestStore
}

// Backend is a single collaborator that serves every record stream, such as
// the SQLite store.
type Backend interface {
	SessionStore
	ReviewStore
	EventStore
	FeedbackStore
	QuestStore
}

// StoresFrom uses one backend for every record stream.
func StoresFrom(b Backend) Stores {
	return Stores{
		Sessions: b,
		Reviews:  b,
		Events:   b,
		Feedback: b,
		Quests:   b,
	}
}
