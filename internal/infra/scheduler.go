package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"marketpulse/internal/domain"
)

// CycleRunner runs one cycle of a kind
type CycleRunner interface {
	Run(ctx context.Context, kind string) (*domain.Cycle, error)
}

// SchedulerConfig holds the cron triggers of the pipeline
type SchedulerConfig struct {
	Kind      string   `yaml:"kind" default:"daily_market" validate:"required"`
	Schedules []string `yaml:"schedules" default:"[\"0 7 * * *\",\"0 22 * * *\"]" validate:"min=1,dive,required"`
	Timezone  string   `yaml:"timezone" default:"Asia/Ho_Chi_Minh"`
}

// DefaultSchedules fire the morning digest and the evening recap
var DefaultSchedules = []string{"0 7 * * *", "0 22 * * *"}

// Scheduler manages scheduled cycles
type Scheduler struct {
	cron   *cron.Cron
	runner CycleRunner
	cfg    SchedulerConfig
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler evaluating cron specs in loc
func NewScheduler(runner CycleRunner, cfg SchedulerConfig, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if len(cfg.Schedules) == 0 {
		cfg.Schedules = DefaultSchedules
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers every schedule and starts the cron loop
func (s *Scheduler) Start() error {
	s.log.Info().Str("kind", s.cfg.Kind).Strs("schedules", s.cfg.Schedules).Msg("starting scheduler")

	for _, spec := range s.cfg.Schedules {
		spec := spec
		if _, err := s.cron.AddFunc(spec, func() {
			s.log.Info().Str("schedule", spec).Msg("cycle triggered")
			s.RunNow(s.ctx)
		}); err != nil {
			return fmt.Errorf("failed to register schedule %q: %w", spec, err)
		}
	}

	s.cron.Start()
	s.log.Info().Msg("scheduler started")
	return nil
}

// RunNow runs one cycle synchronously. A cycle already in progress is skipped.
func (s *Scheduler) RunNow(ctx context.Context) {
	cycle, err := s.runner.Run(ctx, s.cfg.Kind)
	switch {
	case err == nil:
		s.log.Info().Str("cycle_id", cycle.ID.String()).Str("status", cycle.Status).Msg("scheduled cycle finished")
	case cycle == nil:
		s.log.Warn().Err(err).Msg("scheduled cycle skipped")
	default:
		s.log.Error().Err(err).Str("cycle_id", cycle.ID.String()).Msg("scheduled cycle failed")
	}
}

// Entries returns the next fire time of every registered schedule
func (s *Scheduler) Entries() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// Stop stops the scheduler and waits for a running cycle to finish
func (s *Scheduler) Stop() {
	s.log.Info().Msg("stopping scheduler")
	<-s.cron.Stop().Done()
	s.cancel()
	s.log.Info().Msg("scheduler stopped")
}
