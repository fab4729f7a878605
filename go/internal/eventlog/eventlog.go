package eventlog

import "time"

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Category string

const (
	CategoryConnection  Category = "connection"
	CategoryRoom        Category = "room"
	CategoryMatchmaking Category = "matchmaking"
	CategoryGame        Category = "game"
	CategoryServer      Category = "server"
)

// ServerIP marks entries that did not originate from a client.
const ServerIP = "server"

// Entry is one operational event worth keeping for later review.
type Entry struct {
	Time     time.Time      `json:"timestamp"`
	Level    Level          `json:"level"`
	Category Category       `json:"category"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	IP       string         `json:"ip"`
}

// Sink receives entries. Record must not block the caller.
type Sink interface {
	Record(Entry)
}

// Multi fans an entry out to several sinks in order.
type Multi []Sink

func (m Multi) Record(e Entry) {
	for _, s := range m {
		s.Record(e)
	}
}

type discard struct{}

func (discard) Record(Entry) {}

// Discard drops every entry.
var Discard Sink = discard{}
