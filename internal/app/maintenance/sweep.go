// Package maintenance runs the scheduled background jobs of the coordination
// engine, currently the expiration sweep that closes requests whose date has
// passed without a substitute.
package maintenance

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/calebmorten/shiftrelief/internal/services"
	"github.com/calebmorten/shiftrelief/pkg/logger"
)

// DefaultSchedule is the cron expression used when none is configured.
const DefaultSchedule = "@hourly"

// Engine is the slice of the coordination service the sweep drives.
type Engine interface {
	ListExpirable(ctx context.Context) ([]string, error)
	ExpireRequest(ctx context.Context, requestID string) (services.RequestDTO, error)
}

// Sweeper periodically expires overdue requests. Each request is expired in
// its own transaction, so one failure never blocks the rest of the batch, and
// the underlying command is idempotent, so overlapping runs are harmless.
type Sweeper struct {
	engine   Engine
	schedule string
	cron     *cron.Cron
	log      *zap.Logger
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithSchedule overrides the cron schedule.
func WithSchedule(schedule string) Option {
	return func(s *Sweeper) {
		if schedule != "" {
			s.schedule = schedule
		}
	}
}

// NewSweeper constructs a Sweeper around the coordination engine.
func NewSweeper(engine Engine, opts ...Option) (*Sweeper, error) {
	if engine == nil {
		return nil, errors.New("maintenance: engine is required")
	}

	s := &Sweeper{
		engine:   engine,
		schedule: DefaultSchedule,
		cron:     cron.New(),
		log:      logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the sweep on its schedule and launches the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("expiration sweep finished with errors", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("expiration sweep scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and returns a context that completes once any
// in-flight sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce expires every overdue request, aggregating per-request failures so
// a single bad row never stops the batch.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	ids, err := s.engine.ListExpirable(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	var errs error
	expired := 0
	for _, id := range ids {
		if _, err := s.engine.ExpireRequest(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		expired++
	}

	s.log.Info("expiration sweep completed",
		zap.Int("candidates", len(ids)),
		zap.Int("expired", expired),
		zap.Int("failed", len(ids)-expired),
	)
	return errs
}
