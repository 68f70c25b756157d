package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublisher_PublishCycle(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	event := domain.CycleEvent{
		CycleID:    uuid.New(),
		Kind:       domain.CycleKindDaily,
		Status:     domain.CycleStatusSuccess,
		Context:    domain.ContextNormal,
		Signals:    5,
		Delivery:   domain.DeliverySummary{Sent: 3, Failed: 1},
		FinishedAt: time.Date(2026, 10, 16, 0, 5, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishCycle(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte(domain.CycleKindDaily), msg.Key)

	var decoded domain.CycleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.CycleID, decoded.CycleID)
	assert.Equal(t, 3, decoded.Delivery.Sent)
	assert.Equal(t, "cycle_id", msg.Headers[0].Key)
}

func TestPublisher_WriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.PublishCycle(context.Background(), domain.CycleEvent{})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewPublisher(Config{Topic: "t"})
	assert.Error(t, err)
}
