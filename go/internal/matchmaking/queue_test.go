package matchmaking

import (
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string) Entry {
	return Entry{ConnID: id, Name: id, EnqueuedAt: time.Now()}
}

func TestQueue_JoinDeduplicates(t *testing.T) {
	q := NewQueue()
	q.Join(entry("a"))
	q.Join(entry("b"))
	q.Join(entry("a"))

	require.Equal(t, 2, q.Len())
	got := q.Entries()
	assert.Equal(t, "b", got[0].ConnID)
	assert.Equal(t, "a", got[1].ConnID, "re-joining moves the entry to the tail")
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	q.Join(entry("a"))
	q.Join(entry("b"))

	assert.True(t, q.Remove("a"))
	assert.False(t, q.Remove("a"))
	assert.False(t, q.Contains("a"))
	assert.True(t, q.Contains("b"))
	assert.Equal(t, 3, q.Needed())
}

func TestQueue_PopBatchIsFIFO(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.Join(entry(id))
	}
	_, ok := q.PopBatch(MatchSize)
	assert.False(t, ok)
	assert.Equal(t, 3, q.Len())

	q.Join(entry("d"))
	q.Join(entry("e"))
	batch, ok := q.PopBatch(MatchSize)
	require.True(t, ok)

	ids := make([]string, 0, len(batch))
	for _, e := range batch {
		ids = append(ids, e.ConnID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "e", q.Entries()[0].ConnID)

	for _, id := range []string{"f", "g", "h", "i"} {
		q.Join(entry(id))
	}
	assert.Equal(t, 0, q.Needed(), "needed never goes negative")
}

func TestSeatOrder_IsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 50; i++ {
		order := SeatOrder(rng, MatchSize)
		sorted := append([]int(nil), order...)
		sort.Ints(sorted)
		require.Equal(t, []int{0, 1, 2, 3}, sorted)
	}
}
