package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketpulse/internal/domain"
)

type memCycles struct {
	mu        sync.Mutex
	cycles    map[uuid.UUID]*domain.Cycle
	finishes  int
	createErr error
	lastErr   error
	hasData   func(uuid.UUID) bool
}

func newMemCycles() *memCycles {
	return &memCycles{cycles: map[uuid.UUID]*domain.Cycle{}}
}

func (m *memCycles) Create(ctx context.Context, c *domain.Cycle) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cycles[c.ID] = &cp
	return nil
}

func (m *memCycles) Finish(ctx context.Context, id uuid.UUID, status string, note *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cycles[id]
	if !ok || c.Status != domain.CycleStatusRunning {
		return false, nil
	}
	m.finishes++
	c.Status = status
	c.Note = note
	c.FinishedAt = &at
	return true, nil
}

func (m *memCycles) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cycles[id]
	if !ok {
		return nil, domain.ErrCycleNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCycles) GetRecent(ctx context.Context, limit int) ([]*domain.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Cycle
	for _, c := range m.cycles {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCycles) GetLastWithData(ctx context.Context, kind string, before time.Time) (*domain.Cycle, error) {
	if m.lastErr != nil {
		return nil, m.lastErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.Cycle
	for _, c := range m.cycles {
		if c.Kind != kind || c.Status != domain.CycleStatusSuccess || !c.StartedAt.Before(before) {
			continue
		}
		if m.hasData != nil && !m.hasData(c.ID) {
			continue
		}
		if best == nil || c.StartedAt.After(best.StartedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

type memObservations struct {
	mu         sync.Mutex
	raws       []domain.RawObservation
	normalized []domain.NormalizedObservation
	saveErr    error
}

func (m *memObservations) SaveRaw(ctx context.Context, r *domain.RawObservation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raws = append(m.raws, *r)
	return nil
}

func (m *memObservations) SaveNormalized(ctx context.Context, n *domain.NormalizedObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.normalized = append(m.normalized, *n)
	return nil
}

func (m *memObservations) hasCycle(cycleID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.normalized {
		if n.CycleID == cycleID {
			return true
		}
	}
	return false
}

func (m *memObservations) GetNormalizedByCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.NormalizedObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.NormalizedObservation
	for _, n := range m.normalized {
		if n.CycleID == cycleID {
			out = append(out, n)
		}
	}
	return out, nil
}

type memSignals struct {
	mu      sync.Mutex
	signals []*domain.Signal
}

func (m *memSignals) Save(ctx context.Context, s *domain.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.signals = append(m.signals, &cp)
	return nil
}

func (m *memSignals) GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Signal
	for _, s := range m.signals {
		if s.CycleID == cycleID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memContexts struct {
	mu       sync.Mutex
	contexts []*domain.MarketContext
}

func (m *memContexts) Save(ctx context.Context, mc *domain.MarketContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts = append(m.contexts, mc)
	return nil
}

func (m *memContexts) GetByCycle(ctx context.Context, cycleID uuid.UUID) (*domain.MarketContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mc := range m.contexts {
		if mc.CycleID == cycleID {
			return mc, nil
		}
	}
	return nil, nil
}

type memNotifications struct {
	mu      sync.Mutex
	records []*domain.NotificationRecord
}

func (m *memNotifications) Save(ctx context.Context, r *domain.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memNotifications) GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.NotificationRecord, error) {
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

type staticRecipients struct {
	recipients []domain.Recipient
	err        error
}

func (s *staticRecipients) GetActive(ctx context.Context) ([]domain.Recipient, error) {
	return s.recipients, s.err
}

func (s *staticRecipients) LinkChat(ctx context.Context, userID uuid.UUID, chatID string) error {
	return nil
}

type failingGoals struct{}

func (failingGoals) GetWeeklyGoals(ctx context.Context, userID uuid.UUID, at time.Time) ([]domain.Goal, error) {
	return nil, errors.New("goal service down")
}

type staticQuotes struct{ quote *domain.Quote }

func (q staticQuotes) GetQuote(ctx context.Context, mood string) (*domain.Quote, error) {
	return q.quote, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CycleEvent
	err    error
}

func (p *recordingPublisher) PublishCycle(ctx context.Context, e domain.CycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

type stubCrawler struct {
	obs   []domain.RawObservation
	panic bool
}

func (c *stubCrawler) CrawlAll(ctx context.Context) []domain.RawObservation {
	if c.panic {
		panic("crawler exploded")
	}
	out := make([]domain.RawObservation, len(c.obs))
	copy(out, c.obs)
	return out
}

type okChannel struct {
	mu    sync.Mutex
	texts map[string]string
}

func (c *okChannel) Name() string { return domain.ChannelTelegram }
func (c *okChannel) Limit() int   { return 4096 }

func (c *okChannel) Send(ctx context.Context, chatID, text string, plain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.texts == nil {
		c.texts = map[string]string{}
	}
	c.texts[chatID] = text
	return nil
}
