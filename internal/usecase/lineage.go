package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketpulse/internal/domain"
)

// LineageRecorder persists one cycle's records and links each derived record
// to the records it came from. It is not safe for concurrent use.
type LineageRecorder struct {
	cycleID      uuid.UUID
	observations domain.ObservationRepository
	signals      domain.SignalRepository
	contexts     domain.ContextRepository
	writeTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger

	rawIndex    map[domain.RawKey]uuid.UUID
	seriesIndex map[domain.SeriesKey][]uuid.UUID
}

// NewLineageRecorder creates a recorder scoped to one cycle
func NewLineageRecorder(
	cycleID uuid.UUID,
	observations domain.ObservationRepository,
	signals domain.SignalRepository,
	contexts domain.ContextRepository,
	writeTimeout time.Duration,
	log zerolog.Logger,
) *LineageRecorder {
	return &LineageRecorder{
		cycleID:      cycleID,
		observations: observations,
		signals:      signals,
		contexts:     contexts,
		writeTimeout: writeTimeout,
		now:          time.Now,
		log:          log,
		rawIndex:     make(map[domain.RawKey]uuid.UUID),
		seriesIndex:  make(map[domain.SeriesKey][]uuid.UUID),
	}
}

// RecordRaw assigns ids and checksums and writes every raw observation.
// Two observations sharing a lineage key fail the batch before anything is written.
func (l *LineageRecorder) RecordRaw(ctx context.Context, raws []domain.RawObservation) ([]domain.RawObservation, error) {
	seen := make(map[domain.RawKey]struct{}, len(raws))
	for _, r := range raws {
		if _, dup := seen[r.Key()]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateLineageKey, r.Key())
		}
		seen[r.Key()] = struct{}{}
	}

	out := make([]domain.RawObservation, 0, len(raws))
	for _, r := range raws {
		r.ID = uuid.New()
		r.CycleID = l.cycleID
		r.Checksum = Checksum(r)

		if err := l.write(ctx, func(ctx context.Context) error { return l.observations.SaveRaw(ctx, &r) }); err != nil {
			return out, fmt.Errorf("failed to record raw %s: %w", r.Key(), err)
		}

		l.rawIndex[r.Key()] = r.ID
		out = append(out, r)
	}

	return out, nil
}

// RecordNormalized resolves each observation's raw origin and writes it.
// An unresolvable origin is fatal and nothing from the batch is written.
func (l *LineageRecorder) RecordNormalized(ctx context.Context, norms []domain.NormalizedObservation) ([]domain.NormalizedObservation, error) {
	resolved := make([]domain.NormalizedObservation, 0, len(norms))
	for _, n := range norms {
		rawID, ok := l.rawIndex[n.Origin]
		if !ok {
			return nil, fmt.Errorf("%w: no raw observation for %s", domain.ErrLineageUnresolved, n.Origin)
		}
		n.ID = uuid.New()
		n.CycleID = l.cycleID
		n.RawRef = rawID
		resolved = append(resolved, n)
	}

	out := make([]domain.NormalizedObservation, 0, len(resolved))
	for _, n := range resolved {
		if err := l.write(ctx, func(ctx context.Context) error { return l.observations.SaveNormalized(ctx, &n) }); err != nil {
			return out, fmt.Errorf("failed to record normalized %s: %w", n.AssetCode, err)
		}
		l.seriesIndex[n.Series()] = append(l.seriesIndex[n.Series()], n.ID)
		out = append(out, n)
	}

	return out, nil
}

// RecordSignals links each signal to this cycle's observations of its series
// plus the previous-period observation it was compared with, then writes it.
// A signal without any observation of its series is kept as unresolved.
func (l *LineageRecorder) RecordSignals(ctx context.Context, signals []*domain.Signal) error {
	for _, s := range signals {
		s.ID = uuid.New()
		s.CycleID = l.cycleID

		today := l.seriesIndex[s.Series]
		if len(today) == 0 {
			s.BasedOnRefs = []uuid.UUID{}
			s.Lineage = domain.LineageUnresolved
			l.log.Warn().Str("series", s.Series.String()).Msg("signal has no source observation in this cycle")
		} else {
			refs := make([]uuid.UUID, 0, len(today)+1)
			refs = append(refs, today...)
			if s.PreviousRef != nil {
				refs = append(refs, *s.PreviousRef)
			}
			s.BasedOnRefs = refs
			s.Lineage = domain.LineageResolved
		}

		if err := l.write(ctx, func(ctx context.Context) error { return l.signals.Save(ctx, s) }); err != nil {
			return fmt.Errorf("failed to record signal %s: %w", s.Series, err)
		}
	}
	return nil
}

// RecordContext writes the context classification referencing every signal of the cycle
func (l *LineageRecorder) RecordContext(ctx context.Context, result domain.ContextResult, signals []*domain.Signal) (*domain.MarketContext, error) {
	refs := make([]uuid.UUID, 0, len(signals))
	for _, s := range signals {
		refs = append(refs, s.ID)
	}

	mc := &domain.MarketContext{
		ID:         uuid.New(),
		CycleID:    l.cycleID,
		Context:    result.Context,
		Severity:   result.Severity,
		Confidence: result.Confidence,
		Summary:    result.Summary,
		SignalRefs: refs,
		CreatedAt:  l.now(),
	}

	if err := l.write(ctx, func(ctx context.Context) error { return l.contexts.Save(ctx, mc) }); err != nil {
		return nil, fmt.Errorf("failed to record context: %w", err)
	}
	return mc, nil
}

func (l *LineageRecorder) write(ctx context.Context, fn func(context.Context) error) error {
	if l.writeTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, l.writeTimeout)
	defer cancel()
	return fn(ctx)
}

// Checksum fingerprints the content of a raw observation: its key, date, value
// and the provider payload it was cut from. The record id is excluded.
func Checksum(r domain.RawObservation) string {
	canonical, _ := json.Marshal(struct {
		Asset   string `json:"asset"`
		Source  string `json:"source"`
		Unit    string `json:"unit"`
		Date    string `json:"date"`
		Value   string `json:"value"`
		Payload []byte `json:"payload"`
	}{r.Asset, r.SourceLabel, r.Unit, r.Date, r.Value, r.Payload})
	return strconv.FormatUint(xxhash.Sum64(canonical), 16)
}
