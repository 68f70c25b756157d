package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketpulse/internal/domain"
	"marketpulse/internal/metrics"
)

// SourceOutcome is the settled result of one source fetch
type SourceOutcome struct {
	Source       string
	Observations []domain.RawObservation
	Err          error
}

// Crawler fans out to every configured source and settles all of them
type Crawler struct {
	sources []domain.SourceClient
	timeout time.Duration
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewCrawler creates a new Crawler. timeout bounds each source individually.
func NewCrawler(sources []domain.SourceClient, timeout time.Duration, recorder *metrics.Recorder, log zerolog.Logger) *Crawler {
	return &Crawler{
		sources: sources,
		timeout: timeout,
		metrics: recorder,
		log:     log,
	}
}

// Settle runs every source concurrently and returns one outcome per source,
// in the order the sources were configured.
func (c *Crawler) Settle(ctx context.Context) []SourceOutcome {
	outcomes := make([]SourceOutcome, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src domain.SourceClient) {
			defer wg.Done()
			outcomes[i] = c.fetch(ctx, src)
		}(i, src)
	}
	wg.Wait()

	return outcomes
}

// CrawlAll returns the union of observations from every source that succeeded.
// Failed sources are logged and skipped; all sources failing yields an empty slice.
func (c *Crawler) CrawlAll(ctx context.Context) []domain.RawObservation {
	start := time.Now()
	defer c.metrics.RecordLatency("crawl", start)

	observations := make([]domain.RawObservation, 0)
	for _, outcome := range c.Settle(ctx) {
		if outcome.Err != nil {
			c.log.Warn().Err(outcome.Err).Str("source", outcome.Source).Msg("source fetch failed")
			continue
		}
		observations = append(observations, outcome.Observations...)
	}

	c.log.Info().
		Int("sources", len(c.sources)).
		Int("observations", len(observations)).
		Dur("took", time.Since(start)).
		Msg("crawl settled")

	return observations
}

func (c *Crawler) fetch(ctx context.Context, src domain.SourceClient) (outcome SourceOutcome) {
	outcome.Source = src.Name()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Observations = nil
			outcome.Err = fmt.Errorf("source %s panicked: %v", outcome.Source, r)
		}
		if outcome.Err != nil {
			c.metrics.RecordSourceFetch(outcome.Source, "error")
			return
		}
		c.metrics.RecordSourceFetch(outcome.Source, "ok")
	}()

	observations, err := src.Fetch(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to fetch %s: %w", outcome.Source, err)
		return outcome
	}

	outcome.Observations = observations
	return outcome
}
