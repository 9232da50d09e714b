package analyzer

import (
	"time"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// Timestamped is implemented by every record kind that can be windowed.
type Timestamped interface {
	Timestamp() time.Time
}

// FilterWindow returns the records whose timestamp lies within the trailing
// window ending at now. WindowAll returns records unchanged. Records with a
// zero timestamp are kept in every window. Retained records keep their order.
func FilterWindow[T Timestamped](records []T, window quest.Window, now time.Time) []T {
	return FilterWindowBy(records, window, now, func(r T) time.Time { return r.Timestamp() })
}

// FilterWindowBy is FilterWindow with an explicit timestamp extractor.
func FilterWindowBy[T any](records []T, window quest.Window, now time.Time, timestampOf func(T) time.Time) []T {
	span, ok := window.Duration()
	if !ok {
		return records
	}

	filtered := make([]T, 0, len(records))
	for _, r := range records {
		ts := timestampOf(r)
		if ts.IsZero() || now.Sub(ts) <= span {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
