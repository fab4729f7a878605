package admission

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// ConnectionLimiter caps live connections and connection attempts per source address.
// It is not safe for concurrent use; the coordinator goroutine owns it.
type ConnectionLimiter struct {
	maxPerIP      int
	ratePerSecond int
	clock         clockwork.Clock

	live     map[string]int
	attempts map[string][]time.Time
}

func NewConnectionLimiter(maxPerIP, ratePerSecond int, clock clockwork.Clock) *ConnectionLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionLimiter{
		maxPerIP:      maxPerIP,
		ratePerSecond: ratePerSecond,
		clock:         clock,
		live:          make(map[string]int),
		attempts:      make(map[string][]time.Time),
	}
}

// Admit counts a new connection from ip, or rejects it when the address already
// holds maxPerIP live connections or opened ratePerSecond connections in the last second.
func (l *ConnectionLimiter) Admit(ip string) error {
	if l.maxPerIP > 0 && l.live[ip] >= l.maxPerIP {
		return ErrTooManyConnections
	}

	now := l.clock.Now()
	recent := trimBefore(l.attempts[ip], now.Add(-time.Second))
	if l.ratePerSecond > 0 && len(recent) >= l.ratePerSecond {
		l.attempts[ip] = recent
		return ErrConnectionRate
	}

	l.attempts[ip] = append(recent, now)
	l.live[ip]++
	return nil
}

// Release drops one live connection for ip. Counters for an address are pruned
// once it has no live connections left.
func (l *ConnectionLimiter) Release(ip string) {
	n, ok := l.live[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.live, ip)
		delete(l.attempts, ip)
		return
	}
	l.live[ip] = n - 1
}

func (l *ConnectionLimiter) Live(ip string) int {
	return l.live[ip]
}

func (l *ConnectionLimiter) UniqueIPs() int {
	return len(l.live)
}

func (l *ConnectionLimiter) Snapshot() map[string]int {
	out := make(map[string]int, len(l.live))
	for ip, n := range l.live {
		out[ip] = n
	}
	return out
}

// trimBefore drops timestamps older than cutoff. Input is in ascending order.
func trimBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0:0], times[i:]...)
}
