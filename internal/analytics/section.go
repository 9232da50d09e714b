package analytics

// Status tags whether a snapshot section could be computed.
type Status string

const (
	// StatusOK means the section's source was read successfully. The data may
	// still be empty when there genuinely were no rows.
	StatusOK Status = "ok"

	// StatusUnavailable means the source fetch failed and the section is empty
	// for that reason only.
	StatusUnavailable Status = "unavailable"

	// StatusPartial means the section's own source was read but a secondary
	// input failed. Error names the values that could not be computed.
	StatusPartial Status = "partial"
)

// Section is one part of a snapshot together with its availability.
type Section[T any] struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   T      `json:"data"`
}

// Available wraps data from a successful fetch.
func Available[T any](data T) Section[T] {
	return Section[T]{Status: StatusOK, Data: data}
}

// Unavailable marks a section whose source fetch failed. Data holds the
// zero-input aggregate so renderers need no nil checks.
func Unavailable[T any](err error, empty T) Section[T] {
	s := Section[T]{Status: StatusUnavailable, Data: empty}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// Partial wraps data computed without one of its inputs.
func Partial[T any](err error, data T) Section[T] {
	s := Section[T]{Status: StatusPartial, Data: data}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// OK reports whether the section was computed from a successful fetch.
func (s Section[T]) OK() bool {
	return s.Status == StatusOK
}

// Usable reports whether Data holds real values, possibly with some
// fields missing.
func (s Section[T]) Usable() bool {
	return s.Status == StatusOK || s.Status == StatusPartial
}
