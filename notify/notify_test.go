package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowThenExpire(t *testing.T) {
	b := NewWithTTL(80 * time.Millisecond)
	id := b.Show("加入購物車成功", Success)
	require.NotEmpty(t, id)

	// Present before the TTL elapses.
	time.Sleep(20 * time.Millisecond)
	active := b.Active()
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)
	assert.Equal(t, "加入購物車成功", active[0].Message)
	assert.Equal(t, Success, active[0].Kind)

	// Gone after.
	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, b.Active())
}

func TestInsertionOrderAndIndependentRemoval(t *testing.T) {
	b := NewWithTTL(time.Minute)
	first := b.Show("first", Success)
	second := b.Show("second", Error)
	third := b.Show("third", Warning)

	ids := func() []string {
		var out []string
		for _, n := range b.Active() {
			out = append(out, n.ID)
		}
		return out
	}
	assert.Equal(t, []string{first, second, third}, ids())

	b.Dismiss(second)
	assert.Equal(t, []string{first, third}, ids())

	// Dismissing an unknown id is a no-op.
	b.Dismiss("nope")
	assert.Equal(t, []string{first, third}, ids())
}

func TestUniqueIDs(t *testing.T) {
	b := NewWithTTL(time.Minute)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := b.Show("x", Success)
		assert.False(t, seen[id], "duplicate notification id %s", id)
		seen[id] = true
	}
}
