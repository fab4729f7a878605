package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/eventlog"
	"github.com/thaasbai/tables/go/internal/events"
	"github.com/thaasbai/tables/go/internal/relay"
	"github.com/thaasbai/tables/go/internal/room"
)

// playingRoom returns the running game sess is seated in.
func (c *Coordinator) playingRoom(sess *Session, v room.Variant) (*room.Room, error) {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return nil, err
	}
	if r.Status != room.StatusPlaying {
		return nil, room.ErrNotPlaying
	}
	return r, nil
}

func (c *Coordinator) cardPlayed(sess *Session, req events.CardRequest) error {
	r, err := c.playingRoom(sess, room.VariantTrick)
	if err != nil {
		return err
	}

	res := relay.PlayCard(r, sess.Seat)
	if res.OutOfTurn() {
		log.Warn().
			Str("room_id", r.Code).
			Int("position", res.Seat).
			Int("expected", res.Expected).
			Msg("card played out of turn, following client")
	}

	names := events.For(room.VariantTrick)
	c.broadcast(r, sess.ConnID, names.RemoteCardPlayed, events.RemoteCardPayload{
		Card:               req.Card,
		Position:           res.Seat,
		CurrentPlayerIndex: res.NextSeat,
	})
	c.send(sess.ConnID, names.TurnChanged, events.TurnChangedPayload{CurrentPlayerIndex: res.NextSeat})
	return nil
}

func (c *Coordinator) trickCompleted(sess *Session, req events.TrickCompletedRequest) error {
	r, err := c.playingRoom(sess, room.VariantTrick)
	if err != nil {
		return err
	}
	if req.Winner == nil {
		log.Warn().Str("room_id", r.Code).Msg("trick completed without a winner")
		return nil
	}
	if err := relay.CompleteTrick(r, *req.Winner); err != nil {
		return err
	}

	c.broadcast(r, "", events.For(room.VariantTrick).TrickWinnerSet, events.TrickWinnerPayload{
		Winner:             *req.Winner,
		CurrentPlayerIndex: r.CurrentSeat,
	})
	return nil
}

func (c *Coordinator) readyForRound(sess *Session) error {
	r, err := c.seatedRoom(sess, room.VariantTrick)
	if err != nil {
		return err
	}
	if r.MarkReadyForRound(sess.Seat) {
		c.broadcast(r, "", events.For(room.VariantTrick).AllReadyForRound, struct{}{})
	}
	return nil
}

func (c *Coordinator) drawCard(sess *Session, req events.DrawRequest) error {
	r, err := c.playingRoom(sess, room.VariantRummy)
	if err != nil {
		return err
	}
	if r.Phase != room.PhaseDraw {
		log.Warn().Str("room_id", r.Code).Str("phase", string(r.Phase)).Msg("draw outside draw phase, following client")
	}

	res, err := relay.Draw(r, sess.Seat, relay.Source(req.Source), c.rng)
	if err != nil {
		log.Warn().Err(err).Str("room_id", r.Code).Str("source", req.Source).Msg("draw rejected")
		return err
	}
	if res.OutOfTurn() {
		log.Warn().
			Str("room_id", r.Code).
			Int("position", res.Seat).
			Int("expected", res.Expected).
			Msg("draw out of turn, syncing to client")
	}

	names := events.For(room.VariantRummy)
	if res.Reshuffled {
		c.announceReshuffle(r)
	}
	c.broadcast(r, "", names.CardDrawn, events.CardDrawnPayload{
		Source:             string(res.Source),
		Card:               res.Card,
		Position:           res.Seat,
		CurrentPlayerIndex: r.CurrentSeat,
		GamePhase:          r.Phase,
		StockCount:         res.StockCount,
		DiscardCount:       res.DiscardCount,
	})
	return nil
}

func (c *Coordinator) discardCard(sess *Session, req events.CardRequest) error {
	r, err := c.playingRoom(sess, room.VariantRummy)
	if err != nil {
		return err
	}
	if r.Phase != room.PhaseDiscard {
		log.Warn().Str("room_id", r.Code).Str("phase", string(r.Phase)).Msg("discard outside discard phase, following client")
	}

	res := relay.Discard(r, sess.Seat, req.Card, c.rng)
	if res.OutOfTurn() {
		log.Warn().
			Str("room_id", r.Code).
			Int("position", res.Seat).
			Int("expected", res.Expected).
			Msg("discard out of turn, following client")
	}

	names := events.For(room.VariantRummy)
	if res.Reshuffled {
		c.announceReshuffle(r)
	}
	c.broadcast(r, sess.ConnID, names.RemoteCardDiscarded, events.RemoteCardPayload{
		Card:               req.Card,
		Position:           res.Seat,
		CurrentPlayerIndex: res.NextSeat,
		GamePhase:          r.Phase,
	})
	c.send(sess.ConnID, names.TurnChanged, events.TurnChangedPayload{
		CurrentPlayerIndex: res.NextSeat,
		GamePhase:          r.Phase,
	})
	return nil
}

func (c *Coordinator) announceReshuffle(r *room.Room) {
	log.Info().Str("room_id", r.Code).Int("stock", len(r.Stock)).Msg("stock reshuffled from discard pile")
	c.broadcast(r, "", events.For(room.VariantRummy).StockReshuffled, events.StockReshuffledPayload{
		StockCount: len(r.Stock),
	})
}

func (c *Coordinator) declare(sess *Session, req events.DeclareRequest) error {
	r, err := c.seatedRoom(sess, room.VariantRummy)
	if err != nil {
		return err
	}
	log.Info().Str("room_id", r.Code).Int("position", sess.Seat).Bool("valid", req.IsValid).Msg("declaration")
	c.record(eventlog.LevelInfo, eventlog.CategoryGame, "Declaration: "+r.Code, sess.IP, map[string]any{
		"room_id":  r.Code,
		"position": sess.Seat,
		"valid":    req.IsValid,
	})

	c.broadcast(r, sess.ConnID, events.For(room.VariantRummy).RemoteDeclare, events.DeclarePayload{
		Position: sess.Seat,
		Melds:    req.Melds,
		IsValid:  req.IsValid,
	})
	return nil
}

func (c *Coordinator) gameOver(sess *Session, req events.GameOverRequest) error {
	r, err := c.seatedRoom(sess, room.VariantRummy)
	if err != nil {
		return err
	}
	log.Info().Str("room_id", r.Code).Int("declared_by", sess.Seat).Msg("game over")
	c.record(eventlog.LevelInfo, eventlog.CategoryGame, "Game over: "+r.Code, sess.IP, map[string]any{
		"room_id":     r.Code,
		"declared_by": sess.Seat,
	})

	c.broadcast(r, sess.ConnID, events.For(room.VariantRummy).RemoteGameOver, events.GameOverPayload{
		Results:    req.Results,
		DeclaredBy: sess.Seat,
	})
	return nil
}
