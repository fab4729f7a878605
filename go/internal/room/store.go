package room

import (
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	DefaultName   = "Player"
	MaxNameLength = 24
)

// NormalizeCode canonicalizes a user-entered room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CleanName trims and NFC-normalizes a display name, falling back to DefaultName.
func CleanName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return DefaultName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

// Store is the room table for one variant. It is owned by a single goroutine.
type Store struct {
	variant Variant
	rng     *rand.Rand
	rooms   map[string]*Room
}

func NewStore(variant Variant, rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Store{
		variant: variant,
		rng:     rng,
		rooms:   make(map[string]*Room),
	}
}

func (s *Store) Variant() Variant {
	return s.variant
}

// Create allocates a room under a fresh code.
func (s *Store) Create(capacity, minSeats int, now time.Time) *Room {
	code := s.newCode()
	r := New(code, s.variant, capacity, minSeats, now)
	s.rooms[code] = r
	return r
}

func (s *Store) newCode() string {
	buf := make([]byte, CodeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[s.rng.IntN(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

func (s *Store) Get(code string) (*Room, error) {
	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (s *Store) Delete(code string) {
	delete(s.rooms, NormalizeCode(code))
}

func (s *Store) Len() int {
	return len(s.rooms)
}

// CountByStatus tallies rooms per lifecycle state.
func (s *Store) CountByStatus() map[Status]int {
	out := map[Status]int{
		StatusWaiting:    0,
		StatusConfirming: 0,
		StatusPlaying:    0,
	}
	for _, r := range s.rooms {
		out[r.Status]++
	}
	return out
}
