package coordinator

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/room"
)

type timerKey struct {
	variant room.Variant
	code    string
}

type confirmTimer struct {
	id    uint64
	timer clockwork.Timer
	stop  chan struct{}
}

// scheduleConfirm arms the confirmation deadline for r. When it fires the
// expiry is routed back through the inbox; the id guards against a timer
// that was cancelled after it had already fired.
func (c *Coordinator) scheduleConfirm(r *room.Room) {
	key := timerKey{variant: r.Variant, code: r.Code}
	c.cancelTimer(key)

	c.timerSeq++
	ct := &confirmTimer{
		id:    c.timerSeq,
		timer: c.clock.NewTimer(c.config.ConfirmTimeout),
		stop:  make(chan struct{}),
	}
	c.timers[key] = ct

	go func(t *confirmTimer) {
		select {
		case <-t.timer.Chan():
			select {
			case c.inbox <- confirmExpiredMsg{key: key, id: t.id}:
			case <-t.stop:
			case <-c.done:
			}
		case <-t.stop:
		case <-c.done:
		}
	}(ct)

	log.Debug().
		Str("room_id", r.Code).
		Dur("duration", c.config.ConfirmTimeout).
		Msg("scheduled confirmation timer")
}

// cancelTimer cancels and removes the confirmation timer for key, if any.
func (c *Coordinator) cancelTimer(key timerKey) {
	ct, ok := c.timers[key]
	if !ok {
		return
	}
	stopAndDrainTimer(ct.timer)
	close(ct.stop)
	delete(c.timers, key)
	log.Debug().Str("room_id", key.code).Msg("cancelled confirmation timer")
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
