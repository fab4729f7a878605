package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/coordinator"
	"github.com/thaasbai/tables/go/internal/room"
)

type statsSource interface {
	Stats(ctx context.Context) (coordinator.Stats, error)
}

// startStatsReporter logs a coordinator snapshot every interval. A nil clock
// means the real clock.
func startStatsReporter(src statsSource, interval time.Duration, clock clockwork.Clock) (gocron.Scheduler, error) {
	opts := []gocron.SchedulerOption{}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { reportStats(src) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule stats job: %w", err)
	}

	sched.Start()
	return sched, nil
}

func reportStats(src statsSource) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := src.Stats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to collect stats")
		return
	}

	trick, rummy := s.Rooms[room.VariantTrick], s.Rooms[room.VariantRummy]
	log.Info().
		Int("connections", s.Connections).
		Int("unique_ips", s.UniqueIPs).
		Int("rooms", trick.Total).
		Int("rooms_playing", trick.Playing).
		Int("digu_rooms", rummy.Total).
		Int("digu_rooms_playing", rummy.Playing).
		Int("queue", s.Queues[room.VariantTrick]).
		Int("digu_queue", s.Queues[room.VariantRummy]).
		Int("pending_confirmations", s.PendingConfirmations).
		Msg("server stats")

	if len(s.ConnectionsPerIP) > 0 {
		perIP := zerolog.Dict()
		for ip, n := range s.ConnectionsPerIP {
			perIP.Int(ip, n)
		}
		log.Debug().Dict("connections_per_ip", perIP).Msg("server connections by address")
	}
}
