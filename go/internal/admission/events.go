package admission

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultWindow = 60 * time.Second

// EventLimiter enforces a per-connection, per-event budget over a sliding window.
// A budget of zero or less disables limiting for that event.
// It is not safe for concurrent use; the coordinator goroutine owns it.
type EventLimiter struct {
	budgets  map[string]int
	fallback int
	window   time.Duration
	clock    clockwork.Clock

	hits map[string]map[string][]time.Time
}

func NewEventLimiter(budgets map[string]int, fallback int, window time.Duration, clock clockwork.Clock) *EventLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	b := make(map[string]int, len(budgets))
	for k, v := range budgets {
		b[k] = v
	}
	return &EventLimiter{
		budgets:  b,
		fallback: fallback,
		window:   window,
		clock:    clock,
		hits:     make(map[string]map[string][]time.Time),
	}
}

func (l *EventLimiter) Budget(event string) int {
	if n, ok := l.budgets[event]; ok {
		return n
	}
	return l.fallback
}

// Allow records one occurrence of event for connID and reports whether it fits the budget.
// Rejected occurrences are not recorded.
func (l *EventLimiter) Allow(connID, event string) bool {
	budget := l.Budget(event)
	if budget <= 0 {
		return true
	}

	perConn, ok := l.hits[connID]
	if !ok {
		perConn = make(map[string][]time.Time)
		l.hits[connID] = perConn
	}

	now := l.clock.Now()
	recent := trimBefore(perConn[event], now.Add(-l.window))
	if len(recent) >= budget {
		perConn[event] = recent
		return false
	}
	perConn[event] = append(recent, now)
	return true
}

// Forget drops all tracking for a connection.
func (l *EventLimiter) Forget(connID string) {
	delete(l.hits, connID)
}

func (l *EventLimiter) Tracked() int {
	return len(l.hits)
}
