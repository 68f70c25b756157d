package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketpulse/internal/domain"
	"marketpulse/internal/metrics"
	"marketpulse/internal/service"
)

// Crawler collects raw observations from every source
type Crawler interface {
	CrawlAll(ctx context.Context) []domain.RawObservation
}

// Dispatcher delivers a batch of messages
type Dispatcher interface {
	DeliverAll(ctx context.Context, cycleID *uuid.UUID, kind string, deliveries []service.Delivery) ([]domain.DeliveryOutcome, domain.DeliverySummary)
}

// CycleConfig holds orchestration limits
type CycleConfig struct {
	Timeout       time.Duration `yaml:"timeout" default:"5m"`
	LockTTL       time.Duration `yaml:"lock_ttl" default:"10m"`
	WriteTimeout  time.Duration `yaml:"write_timeout" default:"5s"`
	EnrichTimeout time.Duration `yaml:"enrich_timeout" default:"20s"`
}

// CycleDeps wires the collaborators of a CycleService
type CycleDeps struct {
	Cycles        domain.CycleRepository
	Observations  domain.ObservationRepository
	Signals       domain.SignalRepository
	Contexts      domain.ContextRepository
	Notifications domain.NotificationRepository
	Recipients    domain.RecipientRepository
	Goals         domain.GoalService
	Quotes        domain.QuoteService
	Publisher     domain.EventPublisher
	Locker        domain.Locker

	Crawler    Crawler
	Normalizer *service.Normalizer
	Generator  *service.SignalGenerator
	Detector   *service.ContextDetector
	Formatter  *service.Formatter
	Dispatcher Dispatcher

	Metrics *metrics.Recorder
	Log     zerolog.Logger
}

// CycleService runs the crawl, normalize, signal, context and deliver pipeline
type CycleService struct {
	CycleDeps
	cfg    CycleConfig
	now    func() time.Time
	tracer trace.Tracer
}

// NewCycleService creates a new CycleService
func NewCycleService(deps CycleDeps, cfg CycleConfig) *CycleService {
	return &CycleService{
		CycleDeps: deps,
		cfg:       cfg,
		now:       time.Now,
		tracer:    otel.Tracer("marketpulse/usecase"),
	}
}

// runState collects what a run produced for the final note and event
type runState struct {
	observations int
	signals      int
	context      string
	delivery     domain.DeliverySummary
	note         string
}

// Run executes one cycle of kind. Only one cycle per kind runs at a time;
// a concurrent call returns ErrCycleInProgress without creating a cycle.
// Once created, the cycle always ends in success or failed.
func (s *CycleService) Run(ctx context.Context, kind string) (result *domain.Cycle, err error) {
	unlock, acquired, err := s.Locker.TryLock(ctx, "cycle-lock:"+kind, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrCycleInProgress
	}
	defer func() {
		if unlockErr := unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			s.Log.Warn().Err(unlockErr).Str("kind", kind).Msg("failed to release cycle lock")
		}
	}()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "cycle.run", trace.WithAttributes(attribute.String("cycle.kind", kind)))
	defer span.End()

	cycle := &domain.Cycle{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    domain.CycleStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.Cycles.Create(ctx, cycle); err != nil {
		return nil, fmt.Errorf("failed to start cycle: %w", err)
	}
	span.SetAttributes(attribute.String("cycle.id", cycle.ID.String()))

	log := s.Log.With().Str("cycle_id", cycle.ID.String()).Str("kind", kind).Logger()
	log.Info().Msg("cycle started")

	state := &runState{}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
		if finishErr := s.finish(ctx, cycle, state, err, log); finishErr != nil && err == nil {
			err = finishErr
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		result = cycle
	}()

	return cycle, s.execute(ctx, cycle, state, log)
}

func (s *CycleService) execute(ctx context.Context, cycle *domain.Cycle, state *runState, log zerolog.Logger) error {
	var raws []domain.RawObservation
	s.stage(ctx, "crawl", func(ctx context.Context) error {
		raws = s.Crawler.CrawlAll(ctx)
		return nil
	})
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cycle aborted during crawl: %w", err)
	}
	if len(raws) == 0 {
		state.note = domain.NoDataNote
		log.Warn().Msg("no data crawled")
		return nil
	}
	state.observations = len(raws)

	var norms []domain.NormalizedObservation
	if err := s.stage(ctx, "normalize", func(ctx context.Context) (err error) {
		norms, err = s.Normalizer.Normalize(raws)
		return err
	}); err != nil {
		return err
	}

	recorder := NewLineageRecorder(cycle.ID, s.Observations, s.Signals, s.Contexts, s.cfg.WriteTimeout, log)

	if err := s.stage(ctx, "persist", func(ctx context.Context) (err error) {
		if _, err = recorder.RecordRaw(ctx, raws); err != nil {
			return err
		}
		norms, err = recorder.RecordNormalized(ctx, norms)
		return err
	}); err != nil {
		return err
	}

	previous := s.loadPrevious(ctx, cycle, log)

	var signals []*domain.Signal
	if err := s.stage(ctx, "signals", func(ctx context.Context) error {
		signals = s.Generator.GenerateSignals(norms, previous)
		return recorder.RecordSignals(ctx, signals)
	}); err != nil {
		return err
	}
	state.signals = len(signals)

	var detected domain.ContextResult
	if err := s.stage(ctx, "context", func(ctx context.Context) error {
		detected = s.Detector.DetectContext(signals)
		_, err := recorder.RecordContext(ctx, detected, signals)
		return err
	}); err != nil {
		return err
	}
	state.context = detected.Context

	s.stage(ctx, "deliver", func(ctx context.Context) error {
		state.delivery = s.deliver(ctx, cycle, norms, signals, detected, log)
		return nil
	})

	state.note = fmt.Sprintf("observations=%d signals=%d context=%s sent=%d failed=%d",
		state.observations, state.signals, state.context, state.delivery.Sent, state.delivery.Failed)
	return nil
}

// stage runs fn inside a span and records its latency
func (s *CycleService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "cycle."+name)
	defer span.End()
	defer s.Metrics.RecordLatency(name, start)

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.Metrics.RecordError(name)
	}
	return err
}

// loadPrevious returns the normalized observations of the last successful cycle of the same kind
// that stored any.
// Failures degrade to an empty previous period.
func (s *CycleService) loadPrevious(ctx context.Context, cycle *domain.Cycle, log zerolog.Logger) []domain.NormalizedObservation {
	prev, err := s.Cycles.GetLastWithData(ctx, cycle.Kind, cycle.StartedAt)
	if err != nil {
		log.Warn().Err(err).Msg("previous period unavailable, signals fall back to defaults")
		return nil
	}
	if prev == nil {
		log.Info().Msg("no previous period")
		return nil
	}

	obs, err := s.Observations.GetNormalizedByCycle(ctx, prev.ID)
	if err != nil {
		log.Warn().Err(err).Str("previous_cycle_id", prev.ID.String()).Msg("previous observations unavailable, signals fall back to defaults")
		return nil
	}
	return obs
}

// deliver renders and sends the digest. Nothing here fails the cycle.
func (s *CycleService) deliver(
	ctx context.Context,
	cycle *domain.Cycle,
	norms []domain.NormalizedObservation,
	signals []*domain.Signal,
	detected domain.ContextResult,
	log zerolog.Logger,
) domain.DeliverySummary {
	recipients, err := s.Recipients.GetActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load recipients, skipping delivery")
		return domain.DeliverySummary{}
	}
	if len(recipients) == 0 {
		log.Info().Msg("no recipients registered")
		return domain.DeliverySummary{}
	}

	quote := s.fetchQuote(ctx, detected, log)

	deliveries := make([]service.Delivery, 0, len(recipients))
	for _, r := range recipients {
		digest := service.Digest{
			Date:         cycle.StartedAt,
			Observations: norms,
			Signals:      signals,
			Context:      &detected,
			Goals:        s.fetchGoals(ctx, r, cycle.StartedAt, log),
			Quote:        quote,
		}
		deliveries = append(deliveries, service.Delivery{Recipient: r, Content: s.Formatter.Render(digest)})
	}

	_, summary := s.Dispatcher.DeliverAll(ctx, &cycle.ID, cycle.Kind, deliveries)
	return summary
}

func (s *CycleService) fetchQuote(ctx context.Context, detected domain.ContextResult, log zerolog.Logger) *domain.Quote {
	if s.Quotes == nil {
		return nil
	}
	ctx, cancel := s.enrichContext(ctx)
	defer cancel()

	quote, err := s.Quotes.GetQuote(ctx, detected.Context)
	if err != nil {
		log.Warn().Err(err).Msg("quote unavailable, omitting section")
		return nil
	}
	return quote
}

func (s *CycleService) fetchGoals(ctx context.Context, r domain.Recipient, at time.Time, log zerolog.Logger) []domain.Goal {
	if s.Goals == nil {
		return nil
	}
	ctx, cancel := s.enrichContext(ctx)
	defer cancel()

	goals, err := s.Goals.GetWeeklyGoals(ctx, r.UserID, at)
	if err != nil {
		log.Warn().Err(err).Str("user_id", r.UserID.String()).Msg("goals unavailable, omitting section")
		return nil
	}
	return goals
}

func (s *CycleService) enrichContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.EnrichTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.EnrichTimeout)
	}
	return context.WithCancel(ctx)
}

// finish records the terminal status on a context that survives cancellation of the run
func (s *CycleService) finish(ctx context.Context, cycle *domain.Cycle, state *runState, runErr error, log zerolog.Logger) error {
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	status := domain.CycleStatusSuccess
	note := state.note
	if runErr != nil {
		status = domain.CycleStatusFailed
		note = runErr.Error()
	}

	finishedAt := s.now()
	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	updated, err := s.Cycles.Finish(finalCtx, cycle.ID, status, notePtr, finishedAt)
	if err != nil {
		log.Error().Err(err).Str("status", status).Msg("failed to record cycle status")
		return fmt.Errorf("failed to finish cycle: %w", err)
	}
	if !updated {
		log.Warn().Msg("cycle already finished, status left unchanged")
	}

	cycle.Status = status
	cycle.Note = notePtr
	cycle.FinishedAt = &finishedAt
	s.Metrics.RecordCycle(cycle.Kind, status)

	event := domain.CycleEvent{
		CycleID:    cycle.ID,
		Kind:       cycle.Kind,
		Status:     status,
		Context:    state.context,
		Signals:    state.signals,
		Delivery:   state.delivery,
		FinishedAt: finishedAt,
	}
	if err := s.Publisher.PublishCycle(finalCtx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish cycle event")
	}

	if runErr != nil {
		log.Error().Err(runErr).Dur("took", finishedAt.Sub(cycle.StartedAt)).Msg("cycle failed")
	} else {
		log.Info().Str("note", note).Dur("took", finishedAt.Sub(cycle.StartedAt)).Msg("cycle finished")
	}
	return nil
}

// GetRecent lists recent cycles
func (s *CycleService) GetRecent(ctx context.Context, limit int) ([]*domain.Cycle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Cycles.GetRecent(ctx, limit)
}

// GetReport returns a cycle with its signals, context and delivery records
func (s *CycleService) GetReport(ctx context.Context, id uuid.UUID) (*domain.CycleReport, error) {
	cycle, err := s.Cycles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	signals, err := s.Signals.GetByCycle(ctx, id)
	if err != nil {
		return nil, err
	}

	mc, err := s.Contexts.GetByCycle(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.Notifications.GetByCycle(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.CycleReport{
		Cycle:         cycle,
		Signals:       signals,
		Context:       mc,
		Notifications: records,
	}, nil
}

// IsBusy reports whether err means another cycle holds the lease
func IsBusy(err error) bool {
	return errors.Is(err, domain.ErrCycleInProgress)
}
