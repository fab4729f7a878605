package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/config"
	"github.com/thaasbai/tables/go/internal/coordinator"
	"github.com/thaasbai/tables/go/internal/eventlog"
	"github.com/thaasbai/tables/go/internal/gateway"
	"github.com/thaasbai/tables/go/internal/sponsors"
)

type Services struct {
	Coordinator *coordinator.Coordinator
	Connections *gateway.ConnectionManager
	WebSocket   *gateway.WebSocketHandler
	Sponsors    *sponsors.Handler

	natsSink *eventlog.NATSSink
	pool     *pgxpool.Pool
	wg       sync.WaitGroup
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{}

	// Event log: always to the process log, optionally to JetStream
	sinks := eventlog.Multi{eventlog.NewLogSink(log.Logger.With().Str("component", "eventlog").Logger())}
	if cfg.NATSURL != "" {
		natsCfg := eventlog.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		sink, err := eventlog.NewNATSSink(ctx, natsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up NATS event log: %w", err)
		}
		s.natsSink = sink
		sinks = append(sinks, sink)
	}

	// Transport and coordinator
	connCfg := gateway.DefaultConnectionConfig()
	connCfg.TrustProxyHeaders = cfg.TrustProxyHeaders
	s.Connections = gateway.NewConnectionManager(connCfg)

	s.Coordinator = coordinator.New(coordinator.Config{
		MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
		ConnectionRateLimit: cfg.ConnectionRateLimit,
		EventBudgets:        cfg.EventBudgets,
		DefaultEventBudget:  cfg.DefaultEventBudget,
		ConfirmTimeout:      cfg.ConfirmTimeout,
		RummyMinPlayers:     cfg.RummyMinPlayers,
		InboxSize:           cfg.InboxSize,
	}, s.Connections, coordinator.WithSink(sinks))
	s.WebSocket = gateway.NewWebSocketHandler(s.Connections, s.Coordinator)

	// Sponsors
	var querier sponsors.Querier = sponsors.StaticQueries{}
	if cfg.DatabaseURL != "" {
		pool, err := setupDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool = pool
		querier = sponsors.NewPostgresQueries(pool)
	}
	s.Sponsors = sponsors.NewHandler(sponsors.NewRepository(querier))

	return s, nil
}

// Start runs the background loops until ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.Coordinator.Run(ctx); err != nil {
			log.Error().Err(err).Msg("coordinator failed")
		}
	}()
	go func() {
		defer s.wg.Done()
		s.Connections.Start(ctx)
	}()
	if s.natsSink != nil {
		s.natsSink.Start(ctx)
	}
}

// Close waits for the background loops and releases external connections.
func (s *Services) Close() {
	s.wg.Wait()
	if s.natsSink != nil {
		if err := s.natsSink.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close NATS event log")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
