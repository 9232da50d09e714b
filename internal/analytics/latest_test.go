package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatest_NewerRequestWins(t *testing.T) {
	l := NewLatest()
	first, firstCtx := l.Begin(context.Background(), "q1")
	second, secondCtx := l.Begin(context.Background(), "q1")

	assert.False(t, l.Current(first))
	assert.True(t, l.Current(second))
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)
	assert.NoError(t, secondCtx.Err())

	l.Done(first)
	assert.True(t, l.Current(second), "releasing a stale ticket keeps the newer one")
	l.Done(second)
	assert.ErrorIs(t, secondCtx.Err(), context.Canceled)
}

func TestLatest_KeysAreIndependent(t *testing.T) {
	l := NewLatest()
	a, actx := l.Begin(context.Background(), "q1")
	b, _ := l.Begin(context.Background(), "q2")

	assert.True(t, l.Current(a))
	assert.True(t, l.Current(b))
	assert.NoError(t, actx.Err())
}
