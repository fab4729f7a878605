package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/thaasbai/tables/go/internal/events"
)

type delivered struct {
	ConnID string
	Event  string
	Data   json.RawMessage
}

type recorder struct {
	mu     sync.Mutex
	frames []delivered
}

func (r *recorder) Deliver(connID string, frame []byte) {
	env, err := events.Decode(frame)
	if err != nil {
		panic(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, delivered{ConnID: connID, Event: env.Event, Data: env.Data})
}

func (r *recorder) to(connID string) []delivered {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivered
	for _, f := range r.frames {
		if f.ConnID == connID {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) names(connID string) []string {
	var out []string
	for _, f := range r.to(connID) {
		out = append(out, f.Event)
	}
	return out
}

func (r *recorder) count(connID, event string) int {
	n := 0
	for _, f := range r.to(connID) {
		if f.Event == event {
			n++
		}
	}
	return n
}

func (r *recorder) last(connID, event string) (delivered, bool) {
	frames := r.to(connID)
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i], true
		}
	}
	return delivered{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	c     *Coordinator
	clock *clockwork.FakeClock
	rec   *recorder
	ips   int
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	c := New(cfg, rec, WithClock(clock), WithRand(rand.New(rand.NewPCG(1, 2))))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	t.Cleanup(cancel)

	return &harness{t: t, ctx: ctx, c: c, clock: clock, rec: rec}
}

// connect admits a connection from a fresh address.
func (h *harness) connect() string {
	h.t.Helper()
	h.ips++
	id, err := h.c.Admit(h.ctx, fmt.Sprintf("10.0.0.%d", h.ips))
	require.NoError(h.t, err)
	return id
}

// emit submits an event and waits until the coordinator has handled it.
func (h *harness) emit(connID, event string, data any) {
	h.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(h.t, err)
	require.NoError(h.t, h.c.Submit(h.ctx, connID, event, raw))
	h.sync()
}

func (h *harness) disconnect(connID string) {
	h.t.Helper()
	require.NoError(h.t, h.c.Disconnect(h.ctx, connID))
	h.sync()
}

// sync waits for every message queued so far to be processed.
func (h *harness) sync() {
	h.t.Helper()
	require.NoError(h.t, h.c.call(h.ctx, func() {}))
}

// inspect runs fn on the coordinator goroutine.
func (h *harness) inspect(fn func(c *Coordinator)) {
	h.t.Helper()
	require.NoError(h.t, h.c.call(h.ctx, func() { fn(h.c) }))
}

func (h *harness) stats() Stats {
	h.t.Helper()
	s, err := h.c.Stats(h.ctx)
	require.NoError(h.t, err)
	return s
}

func decode[T any](t *testing.T, d delivered) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(d.Data, &v))
	return v
}

// mustLast returns the latest event of a kind sent to connID.
func (h *harness) mustLast(connID, event string) delivered {
	h.t.Helper()
	d, ok := h.rec.last(connID, event)
	require.True(h.t, ok, "%s never received %s; got %v", connID, event, h.rec.names(connID))
	return d
}

func (h *harness) errorMessage(connID string) string {
	h.t.Helper()
	return decode[events.ErrorPayload](h.t, h.mustLast(connID, events.Error)).Message
}

// table creates a room hosted by the first connection and seats three more.
func (h *harness) table(createEvent, joinEvent string, extra map[string]any) (code string, conns []string) {
	h.t.Helper()
	host := h.connect()
	payload := map[string]any{"playerName": "Host"}
	for k, v := range extra {
		payload[k] = v
	}
	h.emit(host, createEvent, payload)

	created := h.rec.to(host)
	require.NotEmpty(h.t, created)
	code = decode[events.RoomJoinedPayload](h.t, created[len(created)-1]).RoomID

	conns = []string{host}
	for i := 1; i < 4; i++ {
		id := h.connect()
		h.emit(id, joinEvent, map[string]any{"roomId": code, "playerName": fmt.Sprintf("P%d", i)})
		conns = append(conns, id)
	}
	return code, conns
}

// playingTable readies and starts a full table with the given start payload.
func (h *harness) playingTable(v string, start map[string]any) (string, []string) {
	h.t.Helper()
	create, join, ready, startEvent := "create_room", "join_room", "set_ready", "start_game"
	if v == "digu" {
		create, join, ready, startEvent = "create_digu_room", "join_digu_room", "digu_set_ready", "start_digu_game"
	}
	code, conns := h.table(create, join, nil)
	for _, id := range conns {
		h.emit(id, ready, map[string]any{"ready": true})
	}
	h.emit(conns[0], startEvent, start)
	return code, conns
}
