package room

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(v Variant) *Store {
	return NewStore(v, rand.New(rand.NewPCG(1, 2)))
}

func fullTable(t *testing.T) *Room {
	t.Helper()
	r := New("ABCDEF", VariantTrick, TableSize, TableSize, time.Now())
	r.Sit(0, "host", "Host")
	for _, id := range []string{"b", "c", "d"} {
		_, err := r.Join(id, strings.ToUpper(id))
		require.NoError(t, err)
	}
	return r
}

func TestStore_CodesAreUniqueAndWellFormed(t *testing.T) {
	s := newTestStore(VariantTrick)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		r := s.Create(TableSize, TableSize, time.Now())
		require.Len(t, r.Code, CodeLength)
		for _, c := range r.Code {
			require.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected %q in %s", c, r.Code)
		}
		require.False(t, seen[r.Code], "duplicate code %s", r.Code)
		seen[r.Code] = true
	}
	assert.Equal(t, 500, s.Len())
}

func TestStore_GetNormalizesCode(t *testing.T) {
	s := newTestStore(VariantRummy)
	r := s.Create(TableSize, TableSize, time.Now())

	got, err := s.Get("  " + strings.ToLower(r.Code) + " ")
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = s.Get("ZZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	s.Delete(strings.ToLower(r.Code))
	assert.Equal(t, 0, s.Len())
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, DefaultName, CleanName("   "))
	assert.Equal(t, "Aisha", CleanName(" Aisha "))
	// decomposed e + combining acute becomes a single rune
	assert.Equal(t, "caf\u00e9", CleanName("cafe\u0301"))
	assert.Equal(t, MaxNameLength, len([]rune(CleanName(strings.Repeat("x", 100)))))
}

func TestRoom_Join(t *testing.T) {
	r := New("ABCDEF", VariantTrick, TableSize, TableSize, time.Now())
	r.Sit(0, "host", "Host")

	pos, err := r.Join("b", "B")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	// lowest free index is reused
	r.Leave(1)
	pos, err = r.Join("c", "C")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, _ = r.Join("d", "D")
	_, _ = r.Join("e", "E")
	_, err = r.Join("f", "F")
	assert.ErrorIs(t, err, ErrRoomFull)

	r.Status = StatusPlaying
	_, err = r.Join("g", "G")
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestRoom_JoinRespectsCapacity(t *testing.T) {
	r := New("ABCDEF", VariantRummy, 2, 2, time.Now())
	r.Sit(0, "host", "Host")
	_, err := r.Join("b", "B")
	require.NoError(t, err)
	_, err = r.Join("c", "C")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestRoom_Leave(t *testing.T) {
	t.Run("waiting room frees the seat", func(t *testing.T) {
		r := fullTable(t)
		assert.Equal(t, LeaveRemoved, r.Leave(2))
		assert.False(t, r.Occupied(2))
	})

	t.Run("last occupant abandons the room", func(t *testing.T) {
		r := New("ABCDEF", VariantTrick, TableSize, TableSize, time.Now())
		r.Sit(0, "host", "Host")
		assert.Equal(t, LeaveAbandoned, r.Leave(0))
	})

	t.Run("playing room retains the seat", func(t *testing.T) {
		r := fullTable(t)
		r.Status = StatusPlaying
		assert.Equal(t, LeaveRetained, r.Leave(1))
		require.True(t, r.Occupied(1))
		assert.False(t, r.Seats[1].Connected)
		assert.NotContains(t, r.Recipients(""), "b")
	})

	t.Run("playing room with nobody connected is abandoned", func(t *testing.T) {
		r := fullTable(t)
		r.Status = StatusPlaying
		assert.Equal(t, LeaveRetained, r.Leave(0))
		assert.Equal(t, LeaveRetained, r.Leave(1))
		assert.Equal(t, LeaveRetained, r.Leave(2))
		assert.Equal(t, LeaveAbandoned, r.Leave(3))
	})
}

func TestRoom_Swap(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) *Room
		actor    int
		from     int
		wantErr  error
		validate func(t *testing.T, r *Room, res SwapResult)
	}{
		{
			name: "moves to first free opposing seat",
			setup: func(t *testing.T) *Room {
				r := New("ABCDEF", VariantTrick, TableSize, TableSize, time.Now())
				r.Sit(0, "host", "Host")
				r.Sit(2, "c", "C")
				return r
			},
			from: 2,
			validate: func(t *testing.T, r *Room, res SwapResult) {
				assert.Equal(t, 1, res.To)
				assert.Empty(t, res.Displaced)
				assert.Equal(t, "c", r.Seats[1].ConnID)
				assert.False(t, r.Occupied(2))
			},
		},
		{
			name:  "trades with first opposing occupant when team is full",
			setup: fullTable,
			from:  2,
			validate: func(t *testing.T, r *Room, res SwapResult) {
				assert.Equal(t, 1, res.To)
				assert.Equal(t, "c", res.Moved)
				assert.Equal(t, "b", res.Displaced)
				assert.Equal(t, "c", r.Seats[1].ConnID)
				assert.Equal(t, "b", r.Seats[2].ConnID)
			},
		},
		{
			name: "targets stay below capacity",
			setup: func(t *testing.T) *Room {
				r := New("ABCDEF", VariantRummy, 3, 2, time.Now())
				r.Sit(0, "host", "Host")
				r.Sit(1, "b", "B")
				return r
			},
			from: 0,
			validate: func(t *testing.T, r *Room, res SwapResult) {
				// seat 3 does not exist at a three-seat table
				assert.Equal(t, 1, res.To)
				assert.Equal(t, "b", res.Displaced)
			},
		},
		{
			name: "allowed while playing",
			setup: func(t *testing.T) *Room {
				r := fullTable(t)
				r.Status = StatusPlaying
				return r
			},
			from: 3,
			validate: func(t *testing.T, r *Room, res SwapResult) {
				assert.Equal(t, 0, res.To)
				assert.Equal(t, "host", res.Displaced)
				assert.Equal(t, StatusPlaying, r.Status)
			},
		},
		{
			name:    "only host may swap",
			setup:   fullTable,
			actor:   1,
			from:    2,
			wantErr: ErrNotHost,
		},
		{
			name: "empty source seat",
			setup: func(t *testing.T) *Room {
				r := New("ABCDEF", VariantTrick, TableSize, TableSize, time.Now())
				r.Sit(0, "host", "Host")
				return r
			},
			from:    3,
			wantErr: ErrSeatEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.setup(t)
			before := r.Len()
			res, err := r.Swap(tt.actor, tt.from)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, before, r.Len(), "swap never changes occupancy")
			tt.validate(t, r, res)
		})
	}
}

func TestRoom_Start(t *testing.T) {
	r := fullTable(t)

	assert.ErrorIs(t, r.Start(1, Deal{}), ErrNotHostStart)
	assert.ErrorIs(t, r.Start(0, Deal{}), ErrNotAllReady)

	for _, i := range r.Indices() {
		require.NoError(t, r.SetReady(i, true))
	}
	r.Leave(3)
	err := r.Start(0, Deal{})
	require.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.Equal(t, "Need 4 players to start", err.Error())

	_, err = r.Join("d2", "D2")
	require.NoError(t, err)
	require.NoError(t, r.SetReady(3, true))

	deal := Deal{
		GameState: json.RawMessage(`{"currentPlayerIndex":2}`),
		Hands:     json.RawMessage(`{"0":[]}`),
	}
	require.NoError(t, r.Start(0, deal))
	assert.Equal(t, StatusPlaying, r.Status)
	assert.Equal(t, 2, r.CurrentSeat)
	assert.JSONEq(t, `{"currentPlayerIndex":2}`, string(r.GameState))

	assert.ErrorIs(t, r.Start(0, deal), ErrGameInProgress)
}

func TestRoom_StartWhileConfirming(t *testing.T) {
	r := fullTable(t)
	r.Status = StatusConfirming
	for _, i := range r.Indices() {
		require.NoError(t, r.SetReady(i, true))
	}
	assert.ErrorIs(t, r.Start(0, Deal{}), ErrAwaitingConfirmation)
}

func TestRoom_NewRound(t *testing.T) {
	r := fullTable(t)
	for _, i := range r.Indices() {
		require.NoError(t, r.SetReady(i, true))
	}
	require.NoError(t, r.Start(0, Deal{GameState: json.RawMessage(`{}`)}))
	r.CurrentSeat = 3
	r.CardsInTrick = 2

	_, err := r.NewRound(1, Deal{})
	assert.ErrorIs(t, err, ErrNotHostRound)

	lobby, err := r.NewRound(0, Deal{GameState: json.RawMessage(`{"currentPlayerIndex":1}`)})
	require.NoError(t, err)
	assert.False(t, lobby)
	assert.Equal(t, StatusPlaying, r.Status)
	assert.Equal(t, 1, r.CurrentSeat)
	assert.Zero(t, r.CardsInTrick)

	r.Leave(2)
	lobby, err = r.NewRound(0, Deal{})
	require.NoError(t, err)
	assert.True(t, lobby)
	assert.Equal(t, StatusWaiting, r.Status)
	assert.False(t, r.Occupied(2), "disconnected seats are dropped on return to lobby")
	assert.Nil(t, r.GameState)

	_, err = r.NewRound(0, Deal{})
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestRoom_Confirm(t *testing.T) {
	r := fullTable(t)
	_, err := r.Confirm(0)
	assert.ErrorIs(t, err, ErrNotConfirming)

	r.Status = StatusConfirming
	for _, i := range []int{0, 1, 2} {
		all, err := r.Confirm(i)
		require.NoError(t, err)
		assert.False(t, all)
		assert.True(t, r.Seats[i].Ready)
	}

	confirmed, unconfirmed := r.PartitionConfirmed()
	assert.Len(t, confirmed, 3)
	require.Len(t, unconfirmed, 1)
	assert.Equal(t, 3, unconfirmed[0].Index)

	all, err := r.Confirm(3)
	require.NoError(t, err)
	assert.True(t, all)
	assert.Equal(t, StatusWaiting, r.Status)
}

func TestRoom_MarkReadyForRound(t *testing.T) {
	r := fullTable(t)
	assert.False(t, r.MarkReadyForRound(0))
	assert.False(t, r.MarkReadyForRound(1))
	assert.False(t, r.MarkReadyForRound(1))
	assert.False(t, r.MarkReadyForRound(2))
	assert.True(t, r.MarkReadyForRound(3))
	// marks reset after completion
	assert.False(t, r.MarkReadyForRound(0))
}

func TestRoom_NextSeat(t *testing.T) {
	r := fullTable(t)
	assert.Equal(t, 1, r.NextSeat(0))
	assert.Equal(t, 0, r.NextSeat(3))

	sparse := New("ABCDEF", VariantRummy, TableSize, 2, time.Now())
	sparse.Sit(0, "a", "A")
	sparse.Sit(2, "c", "C")
	assert.Equal(t, 2, sparse.NextSeat(0))
	assert.Equal(t, 0, sparse.NextSeat(2))
}

func TestSeats_MarshalUsesStringKeys(t *testing.T) {
	r := New("ABCDEF", VariantTrick, TableSize, TableSize, time.Now())
	r.Sit(2, "conn-2", "Sam")

	b, err := json.Marshal(r.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"2":{"oderId":"conn-2","name":"Sam","ready":false,"connected":true,"confirmed":false}}`, string(b))
}

func TestStartingSeat(t *testing.T) {
	assert.Equal(t, 0, StartingSeat(nil))
	assert.Equal(t, 0, StartingSeat(json.RawMessage(`null`)))
	assert.Equal(t, 0, StartingSeat(json.RawMessage(`[1,2]`)))
	assert.Equal(t, 3, StartingSeat(json.RawMessage(`{"currentPlayerIndex":3,"x":1}`)))
}
