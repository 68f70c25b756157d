package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
)

func goldRaw(label, value string) domain.RawObservation {
	return domain.RawObservation{
		SourceLabel: label,
		Asset:       domain.AssetGold,
		Unit:        domain.UnitVND,
		Date:        "2026-10-16",
		Value:       value,
	}
}

func newTestRecorder(obs *memObservations, sigs *memSignals, ctxs *memContexts) (*LineageRecorder, uuid.UUID) {
	cycleID := uuid.New()
	return NewLineageRecorder(cycleID, obs, sigs, ctxs, 0, zerolog.Nop()), cycleID
}

func TestLineageRecorder_RecordRaw(t *testing.T) {
	t.Run("assigns ids and checksums", func(t *testing.T) {
		obs := &memObservations{}
		rec, cycleID := newTestRecorder(obs, &memSignals{}, &memContexts{})

		out, err := rec.RecordRaw(context.Background(), []domain.RawObservation{
			goldRaw("BTMC_BUY", "145000000"),
			goldRaw("BTMC_SELL", "147000000"),
		})
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Len(t, obs.raws, 2)

		for _, r := range out {
			assert.NotEqual(t, uuid.Nil, r.ID)
			assert.Equal(t, cycleID, r.CycleID)
			assert.Equal(t, Checksum(r), r.Checksum)
		}
		assert.NotEqual(t, out[0].Checksum, out[1].Checksum)
	})

	t.Run("duplicate lineage key writes nothing", func(t *testing.T) {
		obs := &memObservations{}
		rec, _ := newTestRecorder(obs, &memSignals{}, &memContexts{})

		_, err := rec.RecordRaw(context.Background(), []domain.RawObservation{
			goldRaw("BTMC_BUY", "145000000"),
			goldRaw("BTMC_BUY", "145100000"),
		})
		assert.True(t, errors.Is(err, domain.ErrDuplicateLineageKey))
		assert.Empty(t, obs.raws)
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		obs := &memObservations{saveErr: errors.New("disk full")}
		rec, _ := newTestRecorder(obs, &memSignals{}, &memContexts{})

		_, err := rec.RecordRaw(context.Background(), []domain.RawObservation{goldRaw("BTMC_BUY", "1")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestLineageRecorder_RecordNormalized(t *testing.T) {
	t.Run("links each observation to its raw origin", func(t *testing.T) {
		obs := &memObservations{}
		rec, cycleID := newTestRecorder(obs, &memSignals{}, &memContexts{})

		raws, err := rec.RecordRaw(context.Background(), []domain.RawObservation{goldRaw("BTMC_SELL", "147000000")})
		require.NoError(t, err)

		norms, err := rec.RecordNormalized(context.Background(), []domain.NormalizedObservation{{
			Asset:       domain.AssetGold,
			Side:        domain.SideSell,
			AssetCode:   "XAUVND_SELL",
			Value:       decimal.NewFromInt(147000000),
			SourceLabel: "BTMC_SELL",
			Origin:      raws[0].Key(),
		}})
		require.NoError(t, err)
		require.Len(t, norms, 1)
		assert.Equal(t, raws[0].ID, norms[0].RawRef)
		assert.Equal(t, cycleID, norms[0].CycleID)
		assert.NotEqual(t, uuid.Nil, norms[0].ID)
	})

	t.Run("unresolved origin is fatal and writes nothing", func(t *testing.T) {
		obs := &memObservations{}
		rec, _ := newTestRecorder(obs, &memSignals{}, &memContexts{})

		raws, err := rec.RecordRaw(context.Background(), []domain.RawObservation{goldRaw("BTMC_SELL", "147000000")})
		require.NoError(t, err)

		_, err = rec.RecordNormalized(context.Background(), []domain.NormalizedObservation{
			{Asset: domain.AssetGold, Side: domain.SideSell, Origin: raws[0].Key()},
			{Asset: domain.AssetUSD, Origin: domain.RawKey{Asset: domain.AssetUSD, Source: "VIETCOMBANK", Unit: "VND"}},
		})
		assert.True(t, errors.Is(err, domain.ErrLineageUnresolved))
		assert.Empty(t, obs.normalized)
	})
}

func TestLineageRecorder_RecordSignals(t *testing.T) {
	obs := &memObservations{}
	sigs := &memSignals{}
	ctxs := &memContexts{}
	rec, cycleID := newTestRecorder(obs, sigs, ctxs)
	ctx := context.Background()

	raws, err := rec.RecordRaw(ctx, []domain.RawObservation{goldRaw("BTMC_SELL", "147000000")})
	require.NoError(t, err)
	norms, err := rec.RecordNormalized(ctx, []domain.NormalizedObservation{{
		Asset:  domain.AssetGold,
		Side:   domain.SideSell,
		Value:  decimal.NewFromInt(147000000),
		Origin: raws[0].Key(),
	}})
	require.NoError(t, err)

	previousID := uuid.New()
	matched := &domain.Signal{
		Series:      norms[0].Series(),
		Asset:       domain.AssetGold,
		Direction:   domain.DirectionUp,
		PreviousRef: &previousID,
	}
	orphan := &domain.Signal{
		Series:    domain.SeriesKey{Asset: domain.AssetStock},
		Asset:     domain.AssetStock,
		Direction: domain.DirectionFlat,
	}

	require.NoError(t, rec.RecordSignals(ctx, []*domain.Signal{matched, orphan}))
	require.Len(t, sigs.signals, 2)

	assert.Equal(t, cycleID, matched.CycleID)
	assert.Equal(t, domain.LineageResolved, matched.Lineage)
	assert.Equal(t, []uuid.UUID{norms[0].ID, previousID}, matched.BasedOnRefs)

	assert.Equal(t, domain.LineageUnresolved, orphan.Lineage)
	assert.NotNil(t, orphan.BasedOnRefs)
	assert.Empty(t, orphan.BasedOnRefs)

	result := domain.ContextResult{Context: domain.ContextNormal, Severity: domain.SeverityLow, Confidence: 0.6}
	mc, err := rec.RecordContext(ctx, result, []*domain.Signal{matched, orphan})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{matched.ID, orphan.ID}, mc.SignalRefs)
	assert.Equal(t, cycleID, mc.CycleID)
	require.Len(t, ctxs.contexts, 1)
}

func TestChecksum(t *testing.T) {
	base := goldRaw("BTMC_BUY", "145000000")
	base.Payload = []byte(`{"@pb_2":"145000000","@d_2":"16/10/2026 08:30"}`)

	tests := []struct {
		name     string
		mutate   func(r *domain.RawObservation)
		wantSame bool
	}{
		{name: "new id", mutate: func(r *domain.RawObservation) { r.ID = uuid.New() }, wantSame: true},
		{name: "value changed", mutate: func(r *domain.RawObservation) { r.Value = "145000001" }},
		{name: "payload changed", mutate: func(r *domain.RawObservation) {
			r.Payload = []byte(`{"@pb_2":"145000000","@d_2":"16/10/2026 09:00"}`)
		}},
		{name: "payload dropped", mutate: func(r *domain.RawObservation) { r.Payload = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			other.Payload = append([]byte(nil), base.Payload...)
			tt.mutate(&other)
			if tt.wantSame {
				assert.Equal(t, Checksum(base), Checksum(other))
			} else {
				assert.NotEqual(t, Checksum(base), Checksum(other))
			}
		})
	}
}
