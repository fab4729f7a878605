package room

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

type Variant string

const (
	// VariantTrick is the four-seat partnership trick game.
	VariantTrick Variant = "dhihaei"
	// VariantRummy is the draw/discard rummy game.
	VariantRummy Variant = "digu"
)

func (v Variant) Valid() bool {
	return v == VariantTrick || v == VariantRummy
}

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConfirming Status = "confirming"
	StatusPlaying    Status = "playing"
)

type Phase string

const (
	PhaseDraw    Phase = "draw"
	PhaseDiscard Phase = "discard"
)

const (
	TableSize   = 4
	MinCapacity = 2
)

// Seat is one occupied position at a table.
type Seat struct {
	// ConnID keeps the historical "oderId" key that deployed clients read.
	ConnID    string `json:"oderId"`
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	Confirmed bool   `json:"confirmed"`
}

// Seats maps a seat index to its occupant. It marshals as an object keyed "0".."3".
type Seats map[int]*Seat

// Indexed pairs a seat index with a copy of its occupant.
type Indexed struct {
	Index int
	Seat  Seat
}

// Deal is the opaque initial state a host supplies when a game or round starts.
type Deal struct {
	GameState json.RawMessage
	Hands     json.RawMessage
	Stock     []json.RawMessage
	Discard   []json.RawMessage
}

// Empty reports whether the deal carries no game state at all.
func (d Deal) Empty() bool {
	return isNull(d.GameState) && isNull(d.Hands) && len(d.Stock) == 0 && len(d.Discard) == 0
}

type LeaveOutcome int

const (
	// LeaveRemoved means the seat was freed and other occupants remain.
	LeaveRemoved LeaveOutcome = iota
	// LeaveRetained means the game is running, so the seat is kept and marked disconnected.
	LeaveRetained
	// LeaveAbandoned means nobody connected is left and the room should be deleted.
	LeaveAbandoned
)

// SwapResult describes a host-initiated team move.
type SwapResult struct {
	From      int
	To        int
	Moved     string
	Displaced string
}

type Room struct {
	Code       string
	Variant    Variant
	Status     Status
	Capacity   int
	MinSeats   int
	QuickMatch bool
	CreatedAt  time.Time

	ConfirmDeadline time.Time

	Seats Seats

	GameState json.RawMessage
	Hands     json.RawMessage

	CurrentSeat  int
	CardsInTrick int
	Phase        Phase
	Stock        []json.RawMessage
	Discard      []json.RawMessage

	roundReady map[int]bool
}

func New(code string, variant Variant, capacity, minSeats int, now time.Time) *Room {
	if capacity < MinCapacity || capacity > TableSize {
		capacity = TableSize
	}
	if minSeats <= 0 || minSeats > capacity {
		minSeats = capacity
	}
	return &Room{
		Code:       code,
		Variant:    variant,
		Status:     StatusWaiting,
		Capacity:   capacity,
		MinSeats:   minSeats,
		CreatedAt:  now,
		Seats:      make(Seats, capacity),
		Phase:      PhaseDraw,
		roundReady: make(map[int]bool),
	}
}

func (r *Room) Occupied(seat int) bool {
	_, ok := r.Seats[seat]
	return ok
}

func (r *Room) Len() int {
	return len(r.Seats)
}

func (r *Room) ConnectedCount() int {
	n := 0
	for _, s := range r.Seats {
		if s.Connected {
			n++
		}
	}
	return n
}

// Host returns the occupant of seat 0.
func (r *Room) Host() (*Seat, bool) {
	s, ok := r.Seats[0]
	return s, ok
}

func (r *Room) IsHost(seat int) bool {
	return seat == 0 && r.Occupied(0)
}

// Indices returns occupied seat indices in ascending order.
func (r *Room) Indices() []int {
	out := make([]int, 0, len(r.Seats))
	for i := range r.Seats {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Recipients returns the connection IDs of connected occupants, in seat order,
// skipping exclude.
func (r *Room) Recipients(exclude string) []string {
	out := make([]string, 0, len(r.Seats))
	for _, i := range r.Indices() {
		s := r.Seats[i]
		if !s.Connected || s.ConnID == exclude {
			continue
		}
		out = append(out, s.ConnID)
	}
	return out
}

// Snapshot copies the seat map for use in outbound payloads.
func (r *Room) Snapshot() Seats {
	out := make(Seats, len(r.Seats))
	for i, s := range r.Seats {
		cp := *s
		out[i] = &cp
	}
	return out
}

// Sit places a player in a specific seat. Used for the creator and for quickmatch seating.
func (r *Room) Sit(seat int, connID, name string) {
	r.Seats[seat] = &Seat{
		ConnID:    connID,
		Name:      name,
		Connected: true,
	}
}

// Join seats a player in the lowest free index.
func (r *Room) Join(connID, name string) (int, error) {
	if r.Status != StatusWaiting {
		return 0, ErrGameInProgress
	}
	for i := 0; i < r.Capacity; i++ {
		if !r.Occupied(i) {
			r.Sit(i, connID, name)
			return i, nil
		}
	}
	return 0, ErrRoomFull
}

// Leave vacates seat. While playing the seat is retained and marked disconnected.
func (r *Room) Leave(seat int) LeaveOutcome {
	s, ok := r.Seats[seat]
	if !ok {
		if r.Len() == 0 {
			return LeaveAbandoned
		}
		return LeaveRemoved
	}

	if r.Status == StatusPlaying {
		s.Connected = false
		delete(r.roundReady, seat)
		if r.ConnectedCount() == 0 {
			return LeaveAbandoned
		}
		return LeaveRetained
	}

	delete(r.Seats, seat)
	if r.Len() == 0 {
		return LeaveAbandoned
	}
	return LeaveRemoved
}

func (r *Room) SetReady(seat int, ready bool) error {
	s, ok := r.Seats[seat]
	if !ok {
		return ErrSeatEmpty
	}
	s.Ready = ready
	return nil
}

// Swap moves the occupant of from to the opposite team. Teams are {0,2} and {1,3}.
// The first free opposing seat is used; if none is free the mover trades places
// with the first opposing occupant. Allowed at any status.
func (r *Room) Swap(actor, from int) (SwapResult, error) {
	if !r.IsHost(actor) {
		return SwapResult{}, ErrNotHost
	}
	mover, ok := r.Seats[from]
	if !ok {
		return SwapResult{}, ErrSeatEmpty
	}

	targets := r.opposingSeats(from)
	if len(targets) == 0 {
		return SwapResult{}, ErrInvalidSeat
	}

	res := SwapResult{From: from, Moved: mover.ConnID}
	for _, t := range targets {
		if !r.Occupied(t) {
			res.To = t
			r.Seats[t] = mover
			delete(r.Seats, from)
			return res, nil
		}
	}

	res.To = targets[0]
	other := r.Seats[res.To]
	res.Displaced = other.ConnID
	r.Seats[res.To] = mover
	r.Seats[from] = other
	return res, nil
}

func (r *Room) opposingSeats(from int) []int {
	team := []int{1, 3}
	if from%2 == 1 {
		team = []int{0, 2}
	}
	out := team[:0:0]
	for _, t := range team {
		if t < r.Capacity {
			out = append(out, t)
		}
	}
	return out
}

// Start moves a waiting room into play with the host's deal.
func (r *Room) Start(actor int, deal Deal) error {
	if !r.IsHost(actor) {
		return ErrNotHostStart
	}
	switch r.Status {
	case StatusPlaying:
		return ErrGameInProgress
	case StatusConfirming:
		return ErrAwaitingConfirmation
	}
	if r.Len() < r.MinSeats {
		return &NotEnoughPlayersError{Need: r.MinSeats}
	}
	for _, s := range r.Seats {
		if !s.Ready {
			return ErrNotAllReady
		}
	}

	r.Status = StatusPlaying
	r.applyDeal(deal)
	return nil
}

// NewRound restarts play. A deal re-deals in place and the room stays in play;
// an empty deal sends the table back to the lobby, dropping disconnected seats.
func (r *Room) NewRound(actor int, deal Deal) (lobby bool, err error) {
	if !r.IsHost(actor) {
		return false, ErrNotHostRound
	}
	if r.Status != StatusPlaying {
		return false, ErrNotPlaying
	}

	if deal.Empty() {
		r.Status = StatusWaiting
		r.GameState = nil
		r.Hands = nil
		r.Stock = nil
		r.Discard = nil
		r.CurrentSeat = 0
		r.CardsInTrick = 0
		r.Phase = PhaseDraw
		r.roundReady = make(map[int]bool)
		for i, s := range r.Seats {
			if !s.Connected {
				delete(r.Seats, i)
			}
		}
		return true, nil
	}

	r.applyDeal(deal)
	return false, nil
}

func (r *Room) applyDeal(deal Deal) {
	r.GameState = deal.GameState
	r.Hands = deal.Hands
	r.Stock = append([]json.RawMessage(nil), deal.Stock...)
	r.Discard = append([]json.RawMessage(nil), deal.Discard...)
	r.CardsInTrick = 0
	r.Phase = PhaseDraw
	r.roundReady = make(map[int]bool)
	r.CurrentSeat = r.normalizeSeat(StartingSeat(deal.GameState))
}

// AwaitConfirmation puts a freshly matched room into the confirmation phase.
func (r *Room) AwaitConfirmation(deadline time.Time) {
	r.Status = StatusConfirming
	r.QuickMatch = true
	r.ConfirmDeadline = deadline
}

// Confirm marks a quickmatch seat as confirmed and ready. When every seat has
// confirmed the room becomes an ordinary waiting room.
func (r *Room) Confirm(seat int) (all bool, err error) {
	if r.Status != StatusConfirming {
		return false, ErrNotConfirming
	}
	s, ok := r.Seats[seat]
	if !ok {
		return false, ErrSeatEmpty
	}
	s.Confirmed = true
	s.Ready = true

	for _, other := range r.Seats {
		if !other.Confirmed {
			return false, nil
		}
	}
	r.Status = StatusWaiting
	r.ConfirmDeadline = time.Time{}
	return true, nil
}

// PartitionConfirmed splits occupants by confirmation, each in seat order.
func (r *Room) PartitionConfirmed() (confirmed, unconfirmed []Indexed) {
	for _, i := range r.Indices() {
		s := r.Seats[i]
		if s.Confirmed {
			confirmed = append(confirmed, Indexed{Index: i, Seat: *s})
		} else {
			unconfirmed = append(unconfirmed, Indexed{Index: i, Seat: *s})
		}
	}
	return confirmed, unconfirmed
}

// MarkReadyForRound records seat as ready for the next round. It reports true,
// and clears the marks, once every connected occupant is ready.
func (r *Room) MarkReadyForRound(seat int) bool {
	if !r.Occupied(seat) {
		return false
	}
	r.roundReady[seat] = true
	for i, s := range r.Seats {
		if s.Connected && !r.roundReady[i] {
			return false
		}
	}
	r.roundReady = make(map[int]bool)
	return true
}

// NextSeat returns the next occupied seat after from, wrapping at capacity.
func (r *Room) NextSeat(from int) int {
	for step := 1; step <= r.Capacity; step++ {
		i := (from + step) % r.Capacity
		if r.Occupied(i) {
			return i
		}
	}
	return from
}

func (r *Room) normalizeSeat(seat int) int {
	if seat < 0 {
		seat = 0
	}
	seat %= r.Capacity
	if r.Occupied(seat) || r.Len() == 0 {
		return seat
	}
	return r.NextSeat(seat)
}

// ValidSeat reports whether seat is an occupied index at this table.
func (r *Room) ValidSeat(seat int) bool {
	return seat >= 0 && seat < r.Capacity && r.Occupied(seat)
}

// StartingSeat reads currentPlayerIndex from an opaque game state, defaulting to 0.
func StartingSeat(gameState json.RawMessage) int {
	if isNull(gameState) {
		return 0
	}
	var hint struct {
		CurrentPlayerIndex *int `json:"currentPlayerIndex"`
	}
	if err := json.Unmarshal(gameState, &hint); err != nil || hint.CurrentPlayerIndex == nil {
		return 0
	}
	return *hint.CurrentPlayerIndex
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
