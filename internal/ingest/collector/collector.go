// Package collector fetches raw items from feeds and the news-search API.
//
// Collectors are best-effort: CollectAll runs them concurrently and turns any
// individual failure into an empty contribution plus a source report.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/platform/observability"
)

const (
	headerUserAgent = "User-Agent"
	defaultAgent    = "impact-brief/1.0 (+https://github.com/lueurxax/impact-brief)"
)

var (
	errNoKey = errors.New("missing api key")
)

// Collector produces raw items for one source.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]domain.RawItem, error)
}

type result struct {
	items []domain.RawItem
	err   error
	took  time.Duration
}

// CollectAll runs every collector concurrently, each under its own timeout, and
// joins the results in collector order. A failing or slow collector never
// affects the others.
func CollectAll(ctx context.Context, collectors []Collector, timeout time.Duration, logger *zerolog.Logger) ([]domain.RawItem, []domain.SourceReport) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	results := make([]result, len(collectors))

	var wg sync.WaitGroup

	for i, c := range collectors {
		wg.Add(1)

		go func(i int, c Collector) {
			defer wg.Done()

			results[i] = runOne(ctx, c, timeout)
		}(i, c)
	}

	wg.Wait()

	var items []domain.RawItem

	reports := make([]domain.SourceReport, 0, len(collectors))

	for i, c := range collectors {
		r := results[i]
		report := domain.SourceReport{Name: c.Name(), Items: len(r.items)}

		if r.err != nil {
			report.Error = r.err.Error()

			observability.CollectorFailures.WithLabelValues(c.Name()).Inc()
			logger.Warn().Err(r.err).Str("source", c.Name()).Dur("took", r.took).Msg("collector failed")
		} else {
			observability.CollectorItems.WithLabelValues(c.Name()).Add(float64(len(r.items)))
			logger.Debug().Str("source", c.Name()).Int("items", len(r.items)).Dur("took", r.took).Msg("collector done")
		}

		items = append(items, r.items...)
		reports = append(reports, report)
	}

	return items, reports
}

func runOne(ctx context.Context, c Collector, timeout time.Duration) (r result) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r = result{err: errors.New("collector panicked"), took: time.Since(start)}
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	items, err := c.Collect(ctx)
	if err != nil {
		return result{err: err, took: time.Since(start)}
	}

	return result{items: items, took: time.Since(start)}
}
