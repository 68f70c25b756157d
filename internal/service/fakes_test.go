package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketpulse/internal/domain"
)

type stubSource struct {
	name  string
	obs   []domain.RawObservation
	err   error
	panic bool
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]domain.RawObservation, error) {
	if s.panic {
		panic("provider exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.obs, s.err
}

type sendCall struct {
	ChatID string
	Text   string
	Plain  bool
}

// scriptedChannel returns the scripted errors in order, then succeeds
type scriptedChannel struct {
	mu     sync.Mutex
	limit  int
	script map[string][]error
	calls  []sendCall
}

func newScriptedChannel(limit int) *scriptedChannel {
	return &scriptedChannel{limit: limit, script: map[string][]error{}}
}

func (c *scriptedChannel) Name() string { return domain.ChannelTelegram }
func (c *scriptedChannel) Limit() int   { return c.limit }

func (c *scriptedChannel) Send(ctx context.Context, chatID, text string, plain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sendCall{ChatID: chatID, Text: text, Plain: plain})
	queue := c.script[chatID]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	c.script[chatID] = queue[1:]
	return err
}

func (c *scriptedChannel) callsFor(chatID string) []sendCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sendCall
	for _, call := range c.calls {
		if call.ChatID == chatID {
			out = append(out, call)
		}
	}
	return out
}

type memoryNotifications struct {
	mu      sync.Mutex
	records []*domain.NotificationRecord
}

func (m *memoryNotifications) Save(ctx context.Context, r *domain.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memoryNotifications) GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.NotificationRecord
	for _, r := range m.records {
		if r.CycleID != nil && *r.CycleID == cycleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryNotifications) forUser(id uuid.UUID) []*domain.NotificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.NotificationRecord
	for _, r := range m.records {
		if r.UserID == id {
			out = append(out, r)
		}
	}
	return out
}

func channelErr(status int) error {
	return &domain.ChannelError{StatusCode: status, Description: http.StatusText(status)}
}
