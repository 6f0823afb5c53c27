package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SamplePruner deletes old location samples
type SamplePruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper prunes location history on a cron schedule, bounding table
// growth across shifts.
type Sweeper struct {
	cron    *cron.Cron
	samples SamplePruner
	maxAge  time.Duration
}

// NewSweeper creates a sweeper that removes samples older than maxAge
// on the given cron schedule.
func NewSweeper(schedule string, samples SamplePruner, maxAge time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		samples: samples,
		maxAge:  maxAge,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweeper schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine
func (s *Sweeper) Start() {
	s.cron.Start()
	log.Info().Dur("max_age", s.maxAge).Msg("Location sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.maxAge)
	removed, err := s.samples.PruneOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Location sweep failed")
		return
	}
	log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Location sweep completed")
}
