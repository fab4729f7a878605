package matchmaking

import (
	"math/rand/v2"
	"time"
)

// MatchSize is the number of queued players that form one table.
const MatchSize = 4

type Entry struct {
	ConnID     string
	Name       string
	EnqueuedAt time.Time
}

// Queue is a FIFO of players waiting for an automatic match. Owned by a single goroutine.
type Queue struct {
	entries []Entry
}

func NewQueue() *Queue {
	return &Queue{}
}

// Join appends e, replacing any earlier entry for the same connection.
func (q *Queue) Join(e Entry) {
	q.Remove(e.ConnID)
	q.entries = append(q.entries, e)
}

// Remove drops connID from the queue and reports whether it was present.
func (q *Queue) Remove(connID string) bool {
	for i, e := range q.entries {
		if e.ConnID == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Contains(connID string) bool {
	for _, e := range q.entries {
		if e.ConnID == connID {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Needed is how many more players would complete a match, never negative.
func (q *Queue) Needed() int {
	if n := MatchSize - len(q.entries); n > 0 {
		return n
	}
	return 0
}

// PopBatch removes the n oldest entries, or returns false if fewer are queued.
func (q *Queue) PopBatch(n int) ([]Entry, bool) {
	if n <= 0 || len(q.entries) < n {
		return nil, false
	}
	batch := make([]Entry, n)
	copy(batch, q.entries[:n])
	q.entries = append(q.entries[:0], q.entries[n:]...)
	return batch, true
}

// Entries returns a copy in queue order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// SeatOrder returns a random assignment of n players to seats: the i'th matched
// player sits at SeatOrder[i].
func SeatOrder(rng *rand.Rand, n int) []int {
	seats := make([]int, n)
	for i := range seats {
		seats[i] = i
	}
	rng.Shuffle(n, func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })
	return seats
}
