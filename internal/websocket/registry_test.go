package websocket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	a := &Session{Username: "alice"}
	b := &Session{Username: "bob"}
	idA := r.Register(a)
	idB := r.Register(b)

	assert.NotEmpty(t, idA)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, idA, a.ID)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(idB)
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestRegistry_DeregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&Session{})

	assert.True(t, r.Deregister(id))
	assert.False(t, r.Deregister(id))
	assert.False(t, r.Deregister("never-registered"))
	assert.Zero(t, r.Len())
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	first := r.Register(&Session{})
	r.Register(&Session{})

	snap := r.Snapshot()
	r.Deregister(first)
	r.Register(&Session{})

	assert.Len(t, snap, 2)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Register(&Session{})
			_ = r.Snapshot()
			r.Deregister(id)
			r.Deregister(id)
		}()
	}
	wg.Wait()

	assert.Zero(t, r.Len())
	assert.Empty(t, r.Snapshot())
}
