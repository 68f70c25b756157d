package infra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
)

type countingRunner struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (r *countingRunner) Run(ctx context.Context, kind string) (*domain.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	if errors.Is(r.err, domain.ErrCycleInProgress) {
		return nil, r.err
	}
	return &domain.Cycle{ID: uuid.New(), Kind: kind, Status: domain.CycleStatusSuccess}, r.err
}

func TestScheduler_Start(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	t.Run("registers default schedules", func(t *testing.T) {
		s := NewScheduler(&countingRunner{}, SchedulerConfig{Kind: domain.CycleKindDaily}, loc, zerolog.Nop())
		require.NoError(t, s.Start())
		defer s.Stop()

		next := s.Entries()
		require.Len(t, next, 2)
		hours := []int{next[0].In(loc).Hour(), next[1].In(loc).Hour()}
		assert.ElementsMatch(t, []int{7, 22}, hours)
	})

	t.Run("rejects invalid spec", func(t *testing.T) {
		s := NewScheduler(&countingRunner{}, SchedulerConfig{Kind: domain.CycleKindDaily, Schedules: []string{"every morning"}}, loc, zerolog.Nop())
		err := s.Start()
		assert.ErrorContains(t, err, "every morning")
	})
}

func TestScheduler_RunNow(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "busy", err: domain.ErrCycleInProgress},
		{name: "failed", err: errors.New("normalize failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &countingRunner{err: tt.err}
			s := NewScheduler(runner, SchedulerConfig{Kind: domain.CycleKindDaily}, nil, zerolog.Nop())

			assert.NotPanics(t, func() { s.RunNow(context.Background()) })
			assert.Equal(t, []string{domain.CycleKindDaily}, runner.kinds)
		})
	}
}
