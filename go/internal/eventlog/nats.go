package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type NATSConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration // How long the stream keeps entries
	BufferSize    int
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		StreamName:    "TABLES_EVENTS",
		SubjectPrefix: "tables.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		MaxAge:        7 * 24 * time.Hour,
		BufferSize:    1024,
	}
}

// drainTimeout bounds how long Start keeps publishing buffered entries after
// its context is cancelled.
const drainTimeout = 5 * time.Second

type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes entries to a JetStream stream, one subject per category.
// Record only enqueues; Start does the publishing.
type NATSSink struct {
	nc     *nats.Conn
	js     msgPublisher
	config NATSConfig

	queue chan Entry
	wg    sync.WaitGroup
}

func NewNATSSink(ctx context.Context, cfg NATSConfig) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("tables-eventlog"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultNATSConfig().BufferSize
	}
	s := &NATSSink{
		nc:     nc,
		js:     js,
		config: cfg,
		queue:  make(chan Entry, cfg.BufferSize),
	}

	if err := s.ensureStream(ctx, js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return s, nil
}

func (s *NATSSink) ensureStream(ctx context.Context, js jetstream.JetStream) error {
	sc := jetstream.StreamConfig{
		Name:        s.config.StreamName,
		Description: "Card table operational events",
		Subjects:    []string{fmt.Sprintf("%s.>", s.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		Storage:     jetstream.FileStorage,
	}

	if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("create or update stream: %w", err)
	}
	log.Info().Str("stream", s.config.StreamName).Msg("JetStream stream ready")
	return nil
}

// Record enqueues e, dropping it if the buffer is full.
func (s *NATSSink) Record(e Entry) {
	select {
	case s.queue <- e:
	default:
		log.Warn().Str("category", string(e.Category)).Msg("event log buffer full, dropping entry")
	}
}

// Start publishes queued entries in the background until ctx is cancelled,
// then drains what is still buffered. Close waits for it to finish.
func (s *NATSSink) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
		s.drain()
	}()
}

func (s *NATSSink) run(ctx context.Context) {
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case e := <-s.queue:
			s.publishLogged(ctx, e)
		}
	}
}

func (s *NATSSink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case e := <-s.queue:
			if ctx.Err() != nil {
				log.Warn().Int("remaining", len(s.queue)+1).Msg("event log drain timed out, dropping entries")
				return
			}
			s.publishLogged(ctx, e)
		default:
			return
		}
	}
}

func (s *NATSSink) publishLogged(ctx context.Context, e Entry) {
	if err := s.publish(ctx, e); err != nil {
		log.Error().Err(err).Str("category", string(e.Category)).Msg("failed to publish event log entry")
	}
}

func (s *NATSSink) publish(ctx context.Context, e Entry) error {
	msg, err := encodeMessage(s.config.SubjectPrefix, e)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = s.js.PublishMsg(pubCtx, msg,
		jetstream.WithMsgID(msg.Header.Get("Entry-ID")),
		jetstream.WithExpectStream(s.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	s.wg.Wait()
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}

func encodeMessage(prefix string, e Entry) (*nats.Msg, error) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.IP == "" {
		e.IP = ServerIP
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	id := uuid.NewString()
	return &nats.Msg{
		Subject: fmt.Sprintf("%s.%s", prefix, e.Category),
		Data:    data,
		Header: nats.Header{
			"Entry-ID": []string{id},
			"Level":    []string{string(e.Level)},
			"Category": []string{string(e.Category)},
		},
	}, nil
}
