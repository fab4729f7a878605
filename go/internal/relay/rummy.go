package relay

import (
	"encoding/json"
	"errors"
	"math/rand/v2"

	"github.com/thaasbai/tables/go/internal/room"
)

var (
	ErrPilesExhausted = errors.New("No cards left to draw")
	ErrDiscardEmpty   = errors.New("Discard pile is empty")
	ErrUnknownSource  = errors.New("Unknown draw source")
)

type Source string

const (
	SourceStock   Source = "stock"
	SourceDiscard Source = "discard"
)

type DrawResult struct {
	Source       Source
	Card         json.RawMessage
	Seat         int
	Expected     int
	Reshuffled   bool
	StockCount   int
	DiscardCount int
}

func (d DrawResult) OutOfTurn() bool {
	return d.Seat != d.Expected
}

type DiscardResult struct {
	Seat         int
	Expected     int
	NextSeat     int
	Reshuffled   bool
	StockCount   int
	DiscardCount int
}

func (d DiscardResult) OutOfTurn() bool {
	return d.Seat != d.Expected
}

// Draw takes a card for seat. Stock draws pop the front of the stock, refilling
// it from a shuffled discard pile when empty; discard draws pop the top card.
// On success the turn is synced to seat and the phase becomes discard. On error
// the room is untouched.
func Draw(r *room.Room, seat int, src Source, rng *rand.Rand) (DrawResult, error) {
	res := DrawResult{Source: src, Seat: seat, Expected: r.CurrentSeat}

	switch src {
	case SourceStock:
		if len(r.Stock) == 0 {
			if len(r.Discard) == 0 {
				return DrawResult{}, ErrPilesExhausted
			}
			reshuffle(r, rng)
			res.Reshuffled = true
		}
		res.Card = r.Stock[0]
		r.Stock = r.Stock[1:]
	case SourceDiscard:
		if len(r.Discard) == 0 {
			return DrawResult{}, ErrDiscardEmpty
		}
		last := len(r.Discard) - 1
		res.Card = r.Discard[last]
		r.Discard = r.Discard[:last]
	default:
		return DrawResult{}, ErrUnknownSource
	}

	r.CurrentSeat = seat
	r.Phase = room.PhaseDiscard
	res.StockCount = len(r.Stock)
	res.DiscardCount = len(r.Discard)
	return res, nil
}

// Discard tops the discard pile with card and passes the turn. An emptied
// stock is refilled immediately from the discard pile.
func Discard(r *room.Room, seat int, card json.RawMessage, rng *rand.Rand) DiscardResult {
	res := DiscardResult{Seat: seat, Expected: r.CurrentSeat}

	if card != nil {
		r.Discard = append(r.Discard, card)
	}
	r.CurrentSeat = r.NextSeat(seat)
	r.Phase = room.PhaseDraw

	if len(r.Stock) == 0 && len(r.Discard) > 0 {
		reshuffle(r, rng)
		res.Reshuffled = true
	}

	res.NextSeat = r.CurrentSeat
	res.StockCount = len(r.Stock)
	res.DiscardCount = len(r.Discard)
	return res
}

// reshuffle moves the whole discard pile into the stock in random order.
func reshuffle(r *room.Room, rng *rand.Rand) {
	stock := append(r.Stock, r.Discard...)
	rng.Shuffle(len(stock), func(i, j int) { stock[i], stock[j] = stock[j], stock[i] })
	r.Stock = stock
	r.Discard = nil
}
