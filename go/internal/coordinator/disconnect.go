package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/eventlog"
)

// handleDisconnect drops every trace of connID: admission counters, rate
// tracking, queue entries and its seat.
func (c *Coordinator) handleDisconnect(connID string) {
	sess, ok := c.sessions[connID]
	if !ok {
		return
	}
	delete(c.sessions, connID)

	c.connLimiter.Release(sess.IP)
	c.evLimiter.Forget(connID)
	c.dequeue(connID)

	if sess.Seated() {
		if r, err := c.rooms[sess.Variant].Get(sess.RoomCode); err == nil {
			c.vacate(sess, r, "disconnected")
		} else {
			sess.unseat()
		}
	}

	log.Info().
		Str("connection_id", connID).
		Str("ip", sess.IP).
		Dur("session_duration", c.clock.Since(sess.ConnectedAt)).
		Msg("client disconnected")
	c.record(eventlog.LevelInfo, eventlog.CategoryConnection, "Client disconnected", sess.IP, map[string]any{
		"connection_id": connID,
	})
}
