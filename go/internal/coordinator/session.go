package coordinator

import (
	"time"

	"github.com/thaasbai/tables/go/internal/room"
)

// Session is what the coordinator knows about one live connection.
// RoomCode and Seat are either both set or both cleared.
type Session struct {
	ConnID      string
	IP          string
	ConnectedAt time.Time

	Variant  room.Variant
	RoomCode string
	Seat     int
}

func (s *Session) Seated() bool {
	return s.RoomCode != ""
}

func (s *Session) SeatedIn(v room.Variant) bool {
	return s.Seated() && s.Variant == v
}

func (s *Session) sit(v room.Variant, code string, seat int) {
	s.Variant = v
	s.RoomCode = code
	s.Seat = seat
}

func (s *Session) unseat() {
	s.Variant = ""
	s.RoomCode = ""
	s.Seat = 0
}
