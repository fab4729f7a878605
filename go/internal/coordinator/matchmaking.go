package coordinator

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/eventlog"
	"github.com/thaasbai/tables/go/internal/events"
	"github.com/thaasbai/tables/go/internal/matchmaking"
	"github.com/thaasbai/tables/go/internal/room"
)

var ErrNotInRummyMatch = errors.New("Not in a Digu match")

const (
	timeoutMessage   = "You did not confirm in time"
	cancelledMessage = "Match cancelled - some players did not confirm"
)

func otherVariant(v room.Variant) room.Variant {
	if v == room.VariantRummy {
		return room.VariantTrick
	}
	return room.VariantRummy
}

// dequeue removes connID from every queue, updating the remaining waiters.
func (c *Coordinator) dequeue(connID string) {
	for _, v := range []room.Variant{room.VariantTrick, room.VariantRummy} {
		if c.queues[v].Remove(connID) {
			c.broadcastQueue(v)
		}
	}
}

func (c *Coordinator) joinQueue(sess *Session, v room.Variant, req events.JoinQueueRequest) error {
	q := c.queues[v]
	q.Remove(sess.ConnID)
	if sess.Seated() {
		return ErrAlreadySeated
	}
	if other := otherVariant(v); c.queues[other].Remove(sess.ConnID) {
		c.broadcastQueue(other)
	}

	name := room.CleanName(req.PlayerName)
	q.Join(matchmaking.Entry{ConnID: sess.ConnID, Name: name, EnqueuedAt: c.clock.Now()})

	log.Info().
		Str("connection_id", sess.ConnID).
		Str("variant", string(v)).
		Int("queue_depth", q.Len()).
		Msg("player joined queue")
	c.record(eventlog.LevelInfo, eventlog.CategoryMatchmaking, "Player joined queue", sess.IP, map[string]any{
		"player_name": name,
		"game":        string(v),
		"queue_depth": q.Len(),
	})

	c.send(sess.ConnID, events.For(v).QueueJoined, events.QueuePayload{
		PlayersInQueue: q.Len(),
		PlayersNeeded:  q.Needed(),
	})
	c.broadcastQueue(v)
	c.formMatches(v)
	return nil
}

func (c *Coordinator) leaveQueue(sess *Session, v room.Variant) error {
	if !c.queues[v].Remove(sess.ConnID) {
		return nil
	}
	c.send(sess.ConnID, events.For(v).QueueLeft, struct{}{})
	c.broadcastQueue(v)
	return nil
}

// formMatches seats every complete batch of waiters at a new confirming table.
func (c *Coordinator) formMatches(v room.Variant) {
	q := c.queues[v]
	formed := false
	for {
		batch, ok := q.PopBatch(matchmaking.MatchSize)
		if !ok {
			break
		}
		c.openMatch(v, batch)
		formed = true
	}
	if formed {
		c.broadcastQueue(v)
	}
}

func (c *Coordinator) openMatch(v room.Variant, batch []matchmaking.Entry) {
	now := c.clock.Now()
	capacity, minSeats := c.capacityFor(v, room.TableSize)
	r := c.rooms[v].Create(capacity, minSeats, now)
	r.AwaitConfirmation(now.Add(c.config.ConfirmTimeout))

	order := matchmaking.SeatOrder(c.rng, len(batch))
	for i, e := range batch {
		sess, ok := c.sessions[e.ConnID]
		if !ok {
			continue
		}
		r.Sit(order[i], e.ConnID, e.Name)
		sess.sit(v, r.Code, order[i])
	}
	c.scheduleConfirm(r)

	log.Info().
		Str("room_id", r.Code).
		Str("variant", string(v)).
		Time("deadline", r.ConfirmDeadline).
		Msg("match formed")
	c.record(eventlog.LevelInfo, eventlog.CategoryMatchmaking, "Match formed: "+r.Code, "", map[string]any{
		"room_id": r.Code,
		"game":    string(v),
		"players": r.Len(),
	})

	names := events.For(v)
	players := r.Snapshot()
	timeout := int(c.config.ConfirmTimeout.Seconds())
	for _, i := range r.Indices() {
		c.send(r.Seats[i].ConnID, names.MatchFound, events.MatchFoundPayload{
			RoomID:               r.Code,
			Position:             i,
			Players:              players,
			ConfirmTimeout:       timeout,
			RequiresConfirmation: true,
		})
	}
}

func (c *Coordinator) confirmMatch(sess *Session, v room.Variant) error {
	if !sess.Seated() {
		return ErrNotInMatch
	}
	if sess.Variant != v {
		if v == room.VariantRummy {
			return ErrNotInRummyMatch
		}
		return ErrNotInMatch
	}
	r, err := c.rooms[v].Get(sess.RoomCode)
	if err != nil {
		return ErrMatchNotFound
	}

	all, err := r.Confirm(sess.Seat)
	if err != nil {
		return err
	}

	names := events.For(v)
	players := r.Snapshot()
	c.broadcast(r, "", names.PlayerConfirmed, events.PlayerConfirmedPayload{
		Position: sess.Seat,
		Players:  players,
	})
	if !all {
		return nil
	}

	c.cancelTimer(timerKey{variant: v, code: r.Code})
	log.Info().Str("room_id", r.Code).Msg("all players confirmed")
	c.record(eventlog.LevelInfo, eventlog.CategoryMatchmaking, "Match confirmed: "+r.Code, "", map[string]any{
		"room_id": r.Code,
		"game":    string(v),
	})
	c.broadcast(r, "", names.AllConfirmed, events.AllConfirmedPayload{
		RoomID:  r.Code,
		Players: players,
	})
	return nil
}

// handleConfirmExpired dissolves a match whose confirmation window closed.
// Confirmed players go back to the tail of the queue; the rest are dropped.
func (c *Coordinator) handleConfirmExpired(msg confirmExpiredMsg) {
	ct, ok := c.timers[msg.key]
	if !ok || ct.id != msg.id {
		log.Debug().Str("room_id", msg.key.code).Msg("stale confirmation timeout ignored")
		return
	}
	delete(c.timers, msg.key)

	v := msg.key.variant
	r, err := c.rooms[v].Get(msg.key.code)
	if err != nil || r.Status != room.StatusConfirming {
		return
	}

	names := events.For(v)
	q := c.queues[v]
	now := c.clock.Now()
	confirmed, unconfirmed := r.PartitionConfirmed()

	for _, s := range unconfirmed {
		c.releaseSeat(s.Seat.ConnID, r.Code)
		c.send(s.Seat.ConnID, names.MatchTimeout, events.MatchEndedPayload{Message: timeoutMessage})
	}
	for _, s := range confirmed {
		if !c.releaseSeat(s.Seat.ConnID, r.Code) {
			continue
		}
		q.Join(matchmaking.Entry{ConnID: s.Seat.ConnID, Name: s.Seat.Name, EnqueuedAt: now})
		c.send(s.Seat.ConnID, names.MatchCancelled, events.MatchEndedPayload{
			Message:  cancelledMessage,
			Requeued: true,
		})
	}

	log.Info().
		Str("room_id", r.Code).
		Int("confirmed", len(confirmed)).
		Int("unconfirmed", len(unconfirmed)).
		Msg("match confirmation timed out")
	c.record(eventlog.LevelWarn, eventlog.CategoryMatchmaking, "Match timed out: "+r.Code, "", map[string]any{
		"room_id":     r.Code,
		"game":        string(v),
		"confirmed":   len(confirmed),
		"unconfirmed": len(unconfirmed),
	})

	c.deleteRoom(r, "confirmation timeout")
	c.broadcastQueue(v)
	c.formMatches(v)
}

// releaseSeat clears the seat held by connID in room code. It reports whether
// the connection is still live.
func (c *Coordinator) releaseSeat(connID, code string) bool {
	sess, ok := c.sessions[connID]
	if !ok {
		return false
	}
	if sess.RoomCode == code {
		sess.unseat()
	}
	return true
}
