package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/events"
	"github.com/thaasbai/tables/go/internal/room"
)

func (c *Coordinator) send(connID, name string, payload any) {
	frame, err := events.Encode(name, payload)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("failed to encode outbound event")
		return
	}
	c.notifier.Deliver(connID, frame)
}

func (c *Coordinator) sendError(connID string, err error) {
	c.send(connID, events.Error, events.ErrorPayload{Message: err.Error()})
}

// broadcast sends to every connected occupant of r except exclude.
func (c *Coordinator) broadcast(r *room.Room, exclude, name string, payload any) {
	recipients := r.Recipients(exclude)
	if len(recipients) == 0 {
		return
	}
	frame, err := events.Encode(name, payload)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("failed to encode outbound event")
		return
	}
	for _, id := range recipients {
		c.notifier.Deliver(id, frame)
	}
}

// broadcastQueue tells everyone waiting in v's queue the current depth.
func (c *Coordinator) broadcastQueue(v room.Variant) {
	q := c.queues[v]
	entries := q.Entries()
	if len(entries) == 0 {
		return
	}
	frame, err := events.Encode(events.For(v).QueueUpdate, events.QueuePayload{
		PlayersInQueue: q.Len(),
		PlayersNeeded:  q.Needed(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode queue update")
		return
	}
	for _, e := range entries {
		c.notifier.Deliver(e.ConnID, frame)
	}
}
