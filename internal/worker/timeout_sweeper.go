package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// SweepTimeout bounds one sweep run.
	SweepTimeout = 4 * time.Minute
	// DefaultSweepBatchSize replaces a non-positive batch size.
	DefaultSweepBatchSize = 200
)

// OverdueExpirer finalizes attempts whose scheduled end has passed.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// TimeoutSweeper auto-submits overdue attempts on a cron schedule so they do
// not wait for the next read to be timed out.
type TimeoutSweeper struct {
	expirer   OverdueExpirer
	schedule  string
	batchSize int
	log       zerolog.Logger
}

func NewTimeoutSweeper(expirer OverdueExpirer, schedule string, batchSize int, log zerolog.Logger) *TimeoutSweeper {
	if batchSize < 1 {
		batchSize = DefaultSweepBatchSize
	}
	return &TimeoutSweeper{
		expirer:   expirer,
		schedule:  schedule,
		batchSize: batchSize,
		log:       log.With().Str("component", "timeout_sweeper").Logger(),
	}
}

// Start schedules the sweep and blocks until ctx is cancelled and any running
// sweep has finished. An invalid schedule is returned immediately.
func (s *TimeoutSweeper) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}

	s.log.Info().Str("schedule", s.schedule).Int("batch_size", s.batchSize).Msg("TimeoutSweeper started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info().Msg("TimeoutSweeper stopped")
	return nil
}

// RunOnce sweeps overdue attempts until a batch comes back short or empty.
func (s *TimeoutSweeper) RunOnce(parent context.Context) int {
	ctx, cancel := context.WithTimeout(parent, SweepTimeout)
	defer cancel()

	total := 0
	for {
		n, err := s.expirer.ExpireOverdue(ctx, s.batchSize)
		total += n
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error().Err(err).Msg("Sweep failed")
			}
			break
		}
		if n == 0 || n < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info().Int("auto_submitted", total).Msg("Overdue attempts auto-submitted")
	}
	return total
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
