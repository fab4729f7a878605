package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/admission"
	"github.com/thaasbai/tables/go/internal/eventlog"
	"github.com/thaasbai/tables/go/internal/events"
	"github.com/thaasbai/tables/go/internal/matchmaking"
	"github.com/thaasbai/tables/go/internal/room"
)

var (
	ErrAlreadySeated = errors.New("Already in a room. Leave first.")
	ErrNotInMatch    = errors.New("Not in a match")
	ErrMatchNotFound = errors.New("Match not found")
	ErrStopped       = errors.New("coordinator stopped")
)

// Notifier delivers encoded frames to connections. Deliver must not block;
// frames for unknown connections are dropped.
type Notifier interface {
	Deliver(connID string, frame []byte)
}

type Config struct {
	MaxConnectionsPerIP int
	ConnectionRateLimit int
	EventBudgets        map[string]int
	DefaultEventBudget  int
	ConfirmTimeout      time.Duration
	RummyMinPlayers     int
	InboxSize           int
}

func DefaultConfig() Config {
	return Config{
		MaxConnectionsPerIP: 10,
		ConnectionRateLimit: 5,
		EventBudgets:        events.DefaultBudgets(),
		DefaultEventBudget:  events.DefaultBudget,
		ConfirmTimeout:      30 * time.Second,
		RummyMinPlayers:     room.TableSize,
		InboxSize:           1024,
	}
}

type Option func(*Coordinator)

// WithClock sets the time source. In production, use clockwork.NewRealClock(). In tests, a FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func WithRand(rng *rand.Rand) Option {
	return func(c *Coordinator) { c.rng = rng }
}

func WithSink(sink eventlog.Sink) Option {
	return func(c *Coordinator) { c.sink = sink }
}

// Coordinator owns every room, queue, session and limiter. All state is
// touched only by the goroutine running Run; other goroutines talk to it
// through the inbox.
type Coordinator struct {
	config   Config
	notifier Notifier
	clock    clockwork.Clock
	rng      *rand.Rand
	sink     eventlog.Sink

	inbox chan message
	done  chan struct{}

	sessions    map[string]*Session
	rooms       map[room.Variant]*room.Store
	queues      map[room.Variant]*matchmaking.Queue
	connLimiter *admission.ConnectionLimiter
	evLimiter   *admission.EventLimiter
	timers      map[timerKey]*confirmTimer
	timerSeq    uint64
}

func New(cfg Config, notifier Notifier, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = def.ConfirmTimeout
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.RummyMinPlayers < room.MinCapacity || cfg.RummyMinPlayers > room.TableSize {
		cfg.RummyMinPlayers = def.RummyMinPlayers
	}
	if cfg.EventBudgets == nil {
		cfg.EventBudgets = def.EventBudgets
	}
	if cfg.DefaultEventBudget == 0 {
		cfg.DefaultEventBudget = def.DefaultEventBudget
	}

	c := &Coordinator{
		config:   cfg,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		sink:     eventlog.Discard,
		inbox:    make(chan message, cfg.InboxSize),
		done:     make(chan struct{}),
		sessions: make(map[string]*Session),
		timers:   make(map[timerKey]*confirmTimer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}

	c.rooms = map[room.Variant]*room.Store{
		room.VariantTrick: room.NewStore(room.VariantTrick, c.rng),
		room.VariantRummy: room.NewStore(room.VariantRummy, c.rng),
	}
	c.queues = map[room.Variant]*matchmaking.Queue{
		room.VariantTrick: matchmaking.NewQueue(),
		room.VariantRummy: matchmaking.NewQueue(),
	}
	c.connLimiter = admission.NewConnectionLimiter(cfg.MaxConnectionsPerIP, cfg.ConnectionRateLimit, c.clock)
	c.evLimiter = admission.NewEventLimiter(cfg.EventBudgets, cfg.DefaultEventBudget, admission.DefaultWindow, c.clock)
	return c
}

type message interface{}

type admitMsg struct {
	ip    string
	reply chan admitReply
}

type admitReply struct {
	connID string
	err    error
}

type inboundMsg struct {
	connID string
	event  string
	data   json.RawMessage
}

type disconnectMsg struct {
	connID string
}

type confirmExpiredMsg struct {
	key timerKey
	id  uint64
}

type callMsg struct {
	fn   func()
	done chan struct{}
}

// Run processes the inbox until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	log.Info().
		Int("inbox_size", c.config.InboxSize).
		Dur("confirm_timeout", c.config.ConfirmTimeout).
		Msg("coordinator started")

	defer func() {
		close(c.done)
		for key := range c.timers {
			c.cancelTimer(key)
		}
		log.Info().Msg("coordinator stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-c.inbox:
			c.dispatch(m)
		}
	}
}

// dispatch handles one message. A panic is contained to the message that caused it.
func (c *Coordinator) dispatch(m message) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("message_type", fmt.Sprintf("%T", m)).
				Msg("recovered from panic in coordinator")
			c.sink.Record(eventlog.Entry{
				Time:     c.clock.Now(),
				Level:    eventlog.LevelError,
				Category: eventlog.CategoryServer,
				Message:  "Handler panic",
				Details:  map[string]any{"panic": fmt.Sprint(rec)},
			})
		}
	}()

	switch msg := m.(type) {
	case admitMsg:
		connID, err := c.admit(msg.ip)
		msg.reply <- admitReply{connID: connID, err: err}
	case inboundMsg:
		c.handleInbound(msg)
	case disconnectMsg:
		c.handleDisconnect(msg.connID)
	case confirmExpiredMsg:
		c.handleConfirmExpired(msg)
	case callMsg:
		defer close(msg.done)
		msg.fn()
	default:
		log.Warn().Str("message_type", fmt.Sprintf("%T", m)).Msg("unknown coordinator message")
	}
}

func (c *Coordinator) post(ctx context.Context, m message) error {
	select {
	case c.inbox <- m:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Admit registers a new connection from ip, or reports why it is refused.
func (c *Coordinator) Admit(ctx context.Context, ip string) (string, error) {
	reply := make(chan admitReply, 1)
	if err := c.post(ctx, admitMsg{ip: ip, reply: reply}); err != nil {
		return "", err
	}
	select {
	case r := <-reply:
		return r.connID, r.err
	case <-c.done:
		return "", ErrStopped
	case <-ctx.Done():
		// the caller is gone; release the slot if it was granted anyway
		go func() {
			select {
			case r := <-reply:
				if r.err == nil {
					_ = c.Disconnect(context.Background(), r.connID)
				}
			case <-c.done:
			}
		}()
		return "", ctx.Err()
	}
}

// Submit queues an inbound event from connID.
func (c *Coordinator) Submit(ctx context.Context, connID, event string, data json.RawMessage) error {
	return c.post(ctx, inboundMsg{connID: connID, event: event, data: data})
}

// Disconnect reconciles all state held for connID.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	return c.post(ctx, disconnectMsg{connID: connID})
}

// call runs fn on the coordinator goroutine and waits for it.
func (c *Coordinator) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := c.post(ctx, callMsg{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) admit(ip string) (string, error) {
	if err := c.connLimiter.Admit(ip); err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("connection rejected")
		c.record(eventlog.LevelWarn, eventlog.CategoryConnection, "Connection rejected: "+err.Error(), ip, nil)
		return "", err
	}

	connID := uuid.NewString()
	c.sessions[connID] = &Session{ConnID: connID, IP: ip, ConnectedAt: c.clock.Now()}

	log.Info().
		Str("connection_id", connID).
		Str("ip", ip).
		Int("ip_connections", c.connLimiter.Live(ip)).
		Msg("client connected")
	return connID, nil
}

func (c *Coordinator) handleInbound(msg inboundMsg) {
	sess, ok := c.sessions[msg.connID]
	if !ok {
		log.Debug().Str("connection_id", msg.connID).Str("event", msg.event).Msg("event from unknown connection")
		return
	}

	route, ok := events.Lookup(msg.event)
	if !ok {
		log.Warn().Str("connection_id", msg.connID).Str("event", msg.event).Msg("unknown event")
		return
	}

	if !c.evLimiter.Allow(sess.ConnID, route.Budget) {
		log.Warn().Str("connection_id", sess.ConnID).Str("event", msg.event).Msg("rate limit exceeded")
		c.sendError(sess.ConnID, admission.ErrEventRate)
		return
	}

	if err := c.route(sess, route, msg.data); err != nil {
		var silent silentError
		if errors.As(err, &silent) {
			log.Debug().Err(err).Str("connection_id", sess.ConnID).Str("event", msg.event).Msg("event ignored")
			return
		}
		c.sendError(sess.ConnID, err)
	}
}

func (c *Coordinator) route(sess *Session, r events.Route, data json.RawMessage) error {
	v := r.Variant
	switch r.Action {
	case events.ActKeepalive:
		return nil
	case events.ActCreateRoom:
		var req events.CreateRoomRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.createRoom(sess, v, req)
	case events.ActJoinRoom:
		var req events.JoinRoomRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.joinRoom(sess, v, req)
	case events.ActLeaveRoom:
		return c.leaveRoom(sess, v)
	case events.ActSetReady:
		var req events.SetReadyRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.setReady(sess, v, req)
	case events.ActSwapSeat:
		var req events.SwapRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.swapSeat(sess, v, req)
	case events.ActStartGame:
		var req events.StartRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.startGame(sess, v, req)
	case events.ActNewRound:
		var req events.StartRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.newRound(sess, v, req)
	case events.ActUpdateState:
		var req events.UpdateStateRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.updateState(sess, v, req)
	case events.ActCardPlayed:
		var req events.CardRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.cardPlayed(sess, req)
	case events.ActTrickCompleted:
		var req events.TrickCompletedRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.trickCompleted(sess, req)
	case events.ActReadyForRound:
		return c.readyForRound(sess)
	case events.ActDrawCard:
		var req events.DrawRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.drawCard(sess, req)
	case events.ActDiscardCard:
		var req events.CardRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.discardCard(sess, req)
	case events.ActDeclare:
		var req events.DeclareRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.declare(sess, req)
	case events.ActGameOver:
		var req events.GameOverRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.gameOver(sess, req)
	case events.ActJoinQueue:
		var req events.JoinQueueRequest
		if err := events.Bind(data, &req); err != nil {
			return err
		}
		return c.joinQueue(sess, v, req)
	case events.ActLeaveQueue:
		return c.leaveQueue(sess, v)
	case events.ActConfirmMatch:
		return c.confirmMatch(sess, v)
	}
	return nil
}

func (c *Coordinator) record(level eventlog.Level, cat eventlog.Category, msg, ip string, details map[string]any) {
	c.sink.Record(eventlog.Entry{
		Time:     c.clock.Now(),
		Level:    level,
		Category: cat,
		Message:  msg,
		Details:  details,
		IP:       ip,
	})
}
