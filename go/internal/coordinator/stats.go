package coordinator

import (
	"context"
	"time"

	"github.com/thaasbai/tables/go/internal/room"
)

type RoomStats struct {
	Total      int `json:"total"`
	Waiting    int `json:"waiting"`
	Confirming int `json:"confirming"`
	Playing    int `json:"playing"`
}

// Stats is served publicly. ConnectionsPerIP holds client addresses and is
// never serialized.
type Stats struct {
	Connections          int                        `json:"connections"`
	UniqueIPs            int                        `json:"uniqueIps"`
	ConnectionsPerIP     map[string]int             `json:"-"`
	Rooms                map[room.Variant]RoomStats `json:"rooms"`
	Queues               map[room.Variant]int       `json:"queues"`
	PendingConfirmations int                        `json:"pendingConfirmations"`
	Timestamp            time.Time                  `json:"timestamp"`
}

// Stats returns a consistent snapshot of coordinator state.
func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.call(ctx, func() { s = c.snapshot() })
	return s, err
}

func (c *Coordinator) snapshot() Stats {
	s := Stats{
		Connections:          len(c.sessions),
		UniqueIPs:            c.connLimiter.UniqueIPs(),
		ConnectionsPerIP:     c.connLimiter.Snapshot(),
		Rooms:                make(map[room.Variant]RoomStats, len(c.rooms)),
		Queues:               make(map[room.Variant]int, len(c.queues)),
		PendingConfirmations: len(c.timers),
		Timestamp:            c.clock.Now(),
	}
	for v, store := range c.rooms {
		counts := store.CountByStatus()
		s.Rooms[v] = RoomStats{
			Total:      store.Len(),
			Waiting:    counts[room.StatusWaiting],
			Confirming: counts[room.StatusConfirming],
			Playing:    counts[room.StatusPlaying],
		}
	}
	for v, q := range c.queues {
		s.Queues[v] = q.Len()
	}
	return s
}
