package analytics

import (
	"context"
	"sync"
)

// Latest enforces last-request-wins per key. Starting a request for a key
// cancels the one before it, and Current tells a finishing request whether
// its result is still the one to show.
type Latest struct {
	mu      sync.Mutex
	seq     uint64
	current map[string]*Ticket
}

// Ticket identifies one in-flight request.
type Ticket struct {
	key    string
	seq    uint64
	cancel context.CancelFunc
}

// NewLatest returns an empty sequencer.
func NewLatest() *Latest {
	return &Latest{current: make(map[string]*Ticket)}
}

// Begin registers a new request for key and cancels the previous one. The
// returned context is canceled when a newer request for key begins or when
// Done is called.
func (l *Latest) Begin(ctx context.Context, key string) (*Ticket, context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	t := &Ticket{key: key, seq: l.seq, cancel: cancel}
	if prev, ok := l.current[key]; ok {
		prev.cancel()
	}
	l.current[key] = t
	return t, ctx
}

// Current reports whether t is still the newest request for its key.
func (l *Latest) Current(t *Ticket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current[t.key] == t
}

// Done releases t. It is safe to call after a newer request has replaced it.
func (l *Latest) Done(t *Ticket) {
	t.cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current[t.key] == t {
		delete(l.current, t.key)
	}
}
