package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"marketpulse/internal/domain"
	"marketpulse/internal/metrics"
)

const truncationMarker = "…"

// DeliveryPolicy controls retry and fan-out behavior
type DeliveryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
	BaseDelay   time.Duration `yaml:"base_delay" default:"1s"`
	Concurrency int           `yaml:"concurrency" default:"4" validate:"gte=1"`
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delivery is one message addressed to one recipient
type Delivery struct {
	Recipient domain.Recipient
	Content   string
}

// Dispatcher delivers messages with retry and records every outcome
type Dispatcher struct {
	channel domain.NotificationChannel
	records domain.NotificationRepository
	policy  DeliveryPolicy
	sleep   Sleeper
	now     func() time.Time
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	channel domain.NotificationChannel,
	records domain.NotificationRepository,
	policy DeliveryPolicy,
	recorder *metrics.Recorder,
	log zerolog.Logger,
) *Dispatcher {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Concurrency < 1 {
		policy.Concurrency = 1
	}
	return &Dispatcher{
		channel: channel,
		records: records,
		policy:  policy,
		sleep:   ContextSleep,
		now:     time.Now,
		metrics: recorder,
		log:     log,
	}
}

// WithSleeper replaces the backoff sleeper
func (d *Dispatcher) WithSleeper(s Sleeper) *Dispatcher {
	d.sleep = s
	return d
}

// DeliverAll sends every delivery with bounded concurrency. One recipient's
// failure never affects another. Outcomes are returned in input order.
// kind is the cycle kind recorded as the notification type.
func (d *Dispatcher) DeliverAll(ctx context.Context, cycleID *uuid.UUID, kind string, deliveries []Delivery) ([]domain.DeliveryOutcome, domain.DeliverySummary) {
	start := time.Now()
	defer d.metrics.RecordLatency("deliver", start)

	outcomes := make([]domain.DeliveryOutcome, len(deliveries))

	var g errgroup.Group
	g.SetLimit(d.policy.Concurrency)
	for i, delivery := range deliveries {
		i, delivery := i, delivery
		g.Go(func() error {
			outcomes[i] = d.Deliver(ctx, cycleID, kind, delivery.Recipient, delivery.Content)
			return nil
		})
	}
	_ = g.Wait()

	var summary domain.DeliverySummary
	for _, o := range outcomes {
		summary.Add(o)
	}

	d.log.Info().
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Dur("took", time.Since(start)).
		Msg("delivery batch finished")

	return outcomes, summary
}

// Deliver sends content to one recipient and persists exactly one record.
//
// Transient failures (network, 5xx) are retried with exponential backoff.
// A formatting rejection triggers a single plain-text resend. Any other 4xx is final.
func (d *Dispatcher) Deliver(ctx context.Context, cycleID *uuid.UUID, kind string, recipient domain.Recipient, content string) domain.DeliveryOutcome {
	limit := d.channel.Limit()
	text := Truncate(content, limit)

	outcome := domain.DeliveryOutcome{Recipient: recipient}
	log := d.log.With().Str("user_id", recipient.UserID.String()).Logger()

	var err error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		outcome.Attempts++
		err = d.channel.Send(ctx, recipient.ChatID, text, false)
		if err == nil || ctx.Err() != nil {
			break
		}

		var chErr *domain.ChannelError
		if errors.As(err, &chErr) {
			if chErr.FormattingRejected() {
				log.Warn().Err(err).Msg("message markup rejected, resending as plain text")
				text = Truncate(StripHTML(content), limit)
				outcome.Fallback = true
				outcome.Attempts++
				err = d.channel.Send(ctx, recipient.ChatID, text, true)
				break
			}
			if !chErr.Transient() {
				log.Error().Err(err).Msg("delivery rejected, not retrying")
				break
			}
		}

		if attempt == d.policy.MaxAttempts {
			break
		}

		delay := d.policy.BaseDelay * time.Duration(1<<(attempt-1))
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("transient delivery failure, retrying")
		d.metrics.RecordRetry(d.channel.Name())
		if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
			break
		}
	}

	record := &domain.NotificationRecord{
		ID:        uuid.New(),
		CycleID:   cycleID,
		UserID:    recipient.UserID,
		Channel:   d.channel.Name(),
		Type:      kind,
		Content:   text,
		Attempts:  outcome.Attempts,
		CreatedAt: d.now(),
	}

	if err != nil {
		outcome.Status = domain.DeliveryStatusFailed
		outcome.Err = err
		record.Status = domain.DeliveryStatusFailed
		record.Error = err.Error()
		log.Error().Err(err).Int("attempts", outcome.Attempts).Msg("delivery failed")
	} else {
		outcome.Status = domain.DeliveryStatusSuccess
		sentAt := d.now()
		record.Status = domain.DeliveryStatusSuccess
		record.SentAt = &sentAt
	}
	d.metrics.RecordDelivery(d.channel.Name(), outcome.Status)

	// The record outlives a cancelled batch
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if saveErr := d.records.Save(saveCtx, record); saveErr != nil {
		d.metrics.RecordError("notification_record")
		log.Error().Err(saveErr).Msg("failed to save notification record")
	}

	return outcome
}

// Truncate shortens s to at most limit characters, ending with a marker when cut
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	marker := []rune(truncationMarker)
	if limit <= len(marker) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(marker)]) + truncationMarker
}

// StripHTML returns the text content of an HTML fragment
func StripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
