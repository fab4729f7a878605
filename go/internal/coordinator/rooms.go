package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/eventlog"
	"github.com/thaasbai/tables/go/internal/events"
	"github.com/thaasbai/tables/go/internal/room"
)

// silentError marks failures that are logged but never reported to the client.
type silentError string

func (e silentError) Error() string { return string(e) }

// ErrNotInRoom is returned for room actions from connections without a seat in that variant.
var ErrNotInRoom error = silentError("not in room")

// seatedRoom returns the room sess occupies in variant v.
func (c *Coordinator) seatedRoom(sess *Session, v room.Variant) (*room.Room, error) {
	if !sess.SeatedIn(v) {
		return nil, ErrNotInRoom
	}
	r, err := c.rooms[v].Get(sess.RoomCode)
	if err != nil {
		sess.unseat()
		return nil, ErrNotInRoom
	}
	return r, nil
}

func (c *Coordinator) capacityFor(v room.Variant, requested int) (capacity, minSeats int) {
	if v != room.VariantRummy {
		return room.TableSize, room.TableSize
	}
	capacity = requested
	if capacity < room.MinCapacity || capacity > room.TableSize {
		capacity = room.TableSize
	}
	return capacity, c.config.RummyMinPlayers
}

func (c *Coordinator) createRoom(sess *Session, v room.Variant, req events.CreateRoomRequest) error {
	if sess.Seated() {
		return ErrAlreadySeated
	}
	c.dequeue(sess.ConnID)

	name := room.CleanName(req.PlayerName)
	capacity, minSeats := c.capacityFor(v, req.MaxPlayers)
	r := c.rooms[v].Create(capacity, minSeats, c.clock.Now())
	r.Sit(0, sess.ConnID, name)
	sess.sit(v, r.Code, 0)

	log.Info().
		Str("room_id", r.Code).
		Str("variant", string(v)).
		Str("connection_id", sess.ConnID).
		Int("capacity", r.Capacity).
		Msg("room created")
	c.record(eventlog.LevelInfo, eventlog.CategoryRoom, "Room created: "+r.Code, sess.IP, map[string]any{
		"room_id":     r.Code,
		"player_name": name,
		"game":        string(v),
		"max_players": r.Capacity,
	})

	c.send(sess.ConnID, events.For(v).RoomCreated, events.RoomJoinedPayload{
		RoomID:     r.Code,
		Position:   0,
		Players:    r.Snapshot(),
		MaxPlayers: maxPlayersField(r),
	})
	return nil
}

func (c *Coordinator) joinRoom(sess *Session, v room.Variant, req events.JoinRoomRequest) error {
	if sess.Seated() {
		return ErrAlreadySeated
	}
	r, err := c.rooms[v].Get(req.RoomID)
	if err != nil {
		return err
	}

	name := room.CleanName(req.PlayerName)
	pos, err := r.Join(sess.ConnID, name)
	if err != nil {
		return err
	}
	c.dequeue(sess.ConnID)
	sess.sit(v, r.Code, pos)

	log.Info().
		Str("room_id", r.Code).
		Str("connection_id", sess.ConnID).
		Int("position", pos).
		Msg("player joined room")
	c.record(eventlog.LevelInfo, eventlog.CategoryRoom, "Player joined: "+r.Code, sess.IP, map[string]any{
		"room_id":     r.Code,
		"player_name": name,
		"position":    pos,
		"game":        string(v),
	})

	names := events.For(v)
	players := r.Snapshot()
	c.send(sess.ConnID, names.RoomJoined, events.RoomJoinedPayload{
		RoomID:     r.Code,
		Position:   pos,
		Players:    players,
		MaxPlayers: maxPlayersField(r),
	})
	c.broadcast(r, sess.ConnID, names.PlayersChanged, events.PlayersPayload{Players: players})
	return nil
}

func (c *Coordinator) leaveRoom(sess *Session, v room.Variant) error {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return err
	}
	code := r.Code
	c.vacate(sess, r, "left")
	c.send(sess.ConnID, events.For(v).LeftRoom, events.LeftRoomPayload{RoomID: code})
	return nil
}

// vacate removes sess from r and notifies whoever is left. The session is unseated.
func (c *Coordinator) vacate(sess *Session, r *room.Room, reason string) {
	seat := sess.Seat
	var name string
	if s, ok := r.Seats[seat]; ok {
		name = s.Name
	}
	sess.unseat()

	names := events.For(r.Variant)
	switch r.Leave(seat) {
	case room.LeaveAbandoned:
		c.deleteRoom(r, "empty")
	case room.LeaveRetained:
		log.Info().
			Str("room_id", r.Code).
			Int("position", seat).
			Str("reason", reason).
			Msg("player left running game")
		c.record(eventlog.LevelInfo, eventlog.CategoryGame, "Player left game: "+r.Code, "", map[string]any{
			"room_id":  r.Code,
			"position": seat,
			"reason":   reason,
		})
		c.broadcast(r, "", names.PlayerLeft, events.PlayerLeftPayload{
			Position:   seat,
			PlayerName: name,
			Reason:     reason,
			Players:    r.Snapshot(),
		})
	case room.LeaveRemoved:
		c.broadcast(r, "", names.PlayersChanged, events.PlayersPayload{Players: r.Snapshot()})
	}
}

func (c *Coordinator) deleteRoom(r *room.Room, reason string) {
	c.cancelTimer(timerKey{variant: r.Variant, code: r.Code})
	c.rooms[r.Variant].Delete(r.Code)
	log.Info().Str("room_id", r.Code).Str("variant", string(r.Variant)).Str("reason", reason).Msg("room deleted")
	c.record(eventlog.LevelInfo, eventlog.CategoryRoom, "Room deleted: "+r.Code, "", map[string]any{
		"room_id": r.Code,
		"game":    string(r.Variant),
		"reason":  reason,
	})
}

func (c *Coordinator) setReady(sess *Session, v room.Variant, req events.SetReadyRequest) error {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return err
	}
	if err := r.SetReady(sess.Seat, req.Ready); err != nil {
		return err
	}
	c.broadcast(r, "", events.For(v).PlayersChanged, events.PlayersPayload{Players: r.Snapshot()})
	return nil
}

func (c *Coordinator) swapSeat(sess *Session, v room.Variant, req events.SwapRequest) error {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return err
	}
	if req.FromPosition == nil {
		return room.ErrSeatEmpty
	}

	res, err := r.Swap(sess.Seat, *req.FromPosition)
	if err != nil {
		return err
	}
	if moved, ok := c.sessions[res.Moved]; ok {
		moved.Seat = res.To
	}
	if res.Displaced != "" {
		if displaced, ok := c.sessions[res.Displaced]; ok {
			displaced.Seat = res.From
		}
	}

	log.Debug().Str("room_id", r.Code).Int("from", res.From).Int("to", res.To).Msg("seat swapped")

	names := events.For(v)
	players := r.Snapshot()
	c.broadcast(r, "", names.PlayersChanged, events.PlayersPayload{Players: players})
	c.broadcast(r, "", names.PositionChanged, events.PositionChangedPayload{
		FromPosition: res.From,
		ToPosition:   res.To,
		Players:      players,
	})
	return nil
}

func (c *Coordinator) startGame(sess *Session, v room.Variant, req events.StartRequest) error {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return err
	}
	if err := r.Start(sess.Seat, req.Deal()); err != nil {
		return err
	}

	log.Info().
		Str("room_id", r.Code).
		Str("variant", string(v)).
		Int("players", r.Len()).
		Int("stock", len(r.Stock)).
		Int("starting_seat", r.CurrentSeat).
		Msg("game started")
	c.record(eventlog.LevelInfo, eventlog.CategoryGame, "Game started: "+r.Code, sess.IP, map[string]any{
		"room_id": r.Code,
		"game":    string(v),
		"players": r.Len(),
	})

	c.broadcast(r, "", events.For(v).GameStarted, startedPayload(r, true))
	return nil
}

func (c *Coordinator) newRound(sess *Session, v room.Variant, req events.StartRequest) error {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return err
	}
	lobby, err := r.NewRound(sess.Seat, req.Deal())
	if err != nil {
		return err
	}

	names := events.For(v)
	if lobby {
		log.Info().Str("room_id", r.Code).Msg("room returned to lobby")
		c.broadcast(r, "", names.RoomReset, events.RoomResetPayload{
			RoomID:  r.Code,
			Status:  r.Status,
			Players: r.Snapshot(),
		})
		return nil
	}

	log.Info().Str("room_id", r.Code).Int("starting_seat", r.CurrentSeat).Msg("new round started")
	c.broadcast(r, "", names.RoundStarted, startedPayload(r, false))
	return nil
}

func (c *Coordinator) updateState(sess *Session, v room.Variant, req events.UpdateStateRequest) error {
	r, err := c.seatedRoom(sess, v)
	if err != nil {
		return err
	}
	r.GameState = req.GameState
	c.broadcast(r, sess.ConnID, events.For(v).StateUpdated, events.StateUpdatedPayload{GameState: req.GameState})
	return nil
}

func startedPayload(r *room.Room, withPlayers bool) events.GameStartedPayload {
	p := events.GameStartedPayload{
		GameState:          r.GameState,
		Hands:              r.Hands,
		CurrentPlayerIndex: r.CurrentSeat,
	}
	if withPlayers {
		p.Players = r.Snapshot()
	}
	if r.Variant == room.VariantRummy {
		stock, discard := len(r.Stock), len(r.Discard)
		p.GamePhase = r.Phase
		p.StockCount = &stock
		p.DiscardCount = &discard
	}
	return p
}

func maxPlayersField(r *room.Room) int {
	if r.Variant == room.VariantRummy {
		return r.Capacity
	}
	return 0
}
