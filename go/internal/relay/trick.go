package relay

import (
	"github.com/thaasbai/tables/go/internal/room"
)

// PlayResult is the turn bookkeeping after a card is played.
type PlayResult struct {
	Seat         int
	NextSeat     int
	Expected     int
	CardsInTrick int
}

// OutOfTurn reports whether the play came from a seat the server did not expect.
func (p PlayResult) OutOfTurn() bool {
	return p.Seat != p.Expected
}

// PlayCard advances the turn pointer past seat. The play is always accepted;
// the caller decides whether to log a divergence.
func PlayCard(r *room.Room, seat int) PlayResult {
	res := PlayResult{Seat: seat, Expected: r.CurrentSeat}
	r.CurrentSeat = r.NextSeat(seat)
	r.CardsInTrick++
	res.NextSeat = r.CurrentSeat
	res.CardsInTrick = r.CardsInTrick
	return res
}

// CompleteTrick hands the lead to winner and clears the trick counter.
func CompleteTrick(r *room.Room, winner int) error {
	if !r.ValidSeat(winner) {
		return room.ErrInvalidSeat
	}
	r.CurrentSeat = winner
	r.CardsInTrick = 0
	return nil
}
