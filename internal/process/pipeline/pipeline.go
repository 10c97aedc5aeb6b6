package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/core/llm"
	"github.com/lueurxax/impact-brief/internal/ingest/collector"
	"github.com/lueurxax/impact-brief/internal/output/brief"
	"github.com/lueurxax/impact-brief/internal/platform/config"
	"github.com/lueurxax/impact-brief/internal/platform/observability"
	"github.com/lueurxax/impact-brief/internal/process/normalize"
	"github.com/lueurxax/impact-brief/internal/process/scoring"
	"github.com/lueurxax/impact-brief/internal/storage"
)

// Enricher is the enrichment step as seen by the pipeline.
type Enricher interface {
	Enrich(ctx context.Context, sel domain.Selection, remaining time.Duration) llm.Result
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Collectors []collector.Collector
	Normalizer *normalize.Normalizer
	Enricher   Enricher
	Cache      *storage.Cache
	// Archive is optional.
	Archive *storage.Archive
	// Now and RunID default to time.Now and uuid.NewString.
	Now   func() time.Time
	RunID func() string
}

// BriefOptions are the per-request flags.
type BriefOptions struct {
	NoCache bool
}

// BriefResult is a payload ready to serve. Cacheable is false for payloads
// that were never written to the cache (no main items or an error payload);
// those must not be cached downstream either.
type BriefResult struct {
	Entry     *storage.CacheEntry
	Hit       bool
	Bypassed  bool
	Cacheable bool
	Age       time.Duration
}

// CacheDiagnostics describes the cache decision for the result.
func (r *BriefResult) CacheDiagnostics() *domain.CacheDiagnostics {
	return &domain.CacheDiagnostics{
		Hit:        r.Hit,
		Bypassed:   r.Bypassed,
		AgeSeconds: r.Age.Seconds(),
		ETag:       r.Entry.ETag,
	}
}

// Pipeline runs the brief pipeline: collect, normalize, score, select, enrich
// or synthesize, then cache.
type Pipeline struct {
	cfg    *config.Config
	deps   Deps
	loc    *time.Location
	logger *zerolog.Logger

	// archiveMu serializes snapshot writes from concurrent builds.
	archiveMu sync.Mutex
}

func New(cfg *config.Config, deps Deps, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}

	if deps.RunID == nil {
		deps.RunID = uuid.NewString
	}

	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		loc:    cfg.Location(),
		logger: logger,
	}
}

// Brief returns the cached payload when it is fresh and opts allow it,
// otherwise builds a new one. The only error is a configuration error.
func (p *Pipeline) Brief(ctx context.Context, opts BriefOptions) (*BriefResult, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("brief: %w", err)
	}

	now := p.deps.Now()

	if opts.NoCache {
		observability.CacheLookups.WithLabelValues(cacheBypass).Inc()
	} else {
		entry, err := p.deps.Cache.Read(now)
		if err == nil {
			observability.CacheLookups.WithLabelValues(cacheHit).Inc()
			p.logger.Debug().Str(logFieldETag, entry.ETag).Dur(logFieldAge, entry.Age(now)).Msg("brief cache hit")

			return &BriefResult{Entry: entry, Hit: true, Cacheable: true, Age: entry.Age(now)}, nil
		}

		observability.CacheLookups.WithLabelValues(cacheMiss).Inc()
	}

	payload, diag, cacheable := p.Build(ctx)
	builtAt := p.deps.Now()

	var (
		entry *storage.CacheEntry
		err   error
	)

	if cacheable {
		entry, err = p.deps.Cache.Write(payload, diag, builtAt)
	} else {
		entry, err = storage.NewEntry(payload, diag, builtAt)
	}

	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode brief payload")

		cacheable = false

		entry, err = storage.NewEntry(brief.EmptyPayload(brief.Meta{Now: builtAt, Location: p.loc, RunID: payload.RunID}), diag, builtAt)
		if err != nil {
			return nil, fmt.Errorf("encode fallback payload: %w", err)
		}
	}

	if cacheable {
		p.saveArchive(payload)
	}

	return &BriefResult{Entry: entry, Bypassed: opts.NoCache, Cacheable: cacheable}, nil
}

// Build runs the pipeline once. It never fails: an internal fault yields a
// valid payload with no items and cacheable=false. Payloads without main
// items are not cacheable either.
func (p *Pipeline) Build(ctx context.Context) (payload domain.Payload, diag *domain.Diagnostics, cacheable bool) {
	start := p.deps.Now()
	deadline := start.Add(p.cfg.PipelineBudget)
	meta := brief.Meta{Now: start, Location: p.loc, RunID: p.deps.RunID()}
	logger := p.logger.With().Str(LogFieldRunID, meta.RunID).Logger()

	diag = &domain.Diagnostics{TimingsMS: make(map[string]int64)}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("brief build failed")

			payload = brief.EmptyPayload(meta)
			diag.Enrichment = PathError
			cacheable = false

			observability.BriefBuilds.WithLabelValues(PathError).Inc()
		}
	}()

	// Requests do not cancel a build; only the pipeline budget does.
	ctx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
	defer cancel()

	mark := start

	stage := func(name string) {
		now := p.deps.Now()
		took := now.Sub(mark)
		diag.TimingsMS[name] = took.Milliseconds()
		observability.StageDurationSeconds.WithLabelValues(name).Observe(took.Seconds())
		mark = now
	}

	raws, reports := collector.CollectAll(ctx, p.deps.Collectors, p.cfg.FetchTimeout, &logger)
	diag.RawCount = len(raws)
	diag.Sources = reports

	stage(StageCollect)

	candidates, stats := p.deps.Normalizer.NormalizeAll(raws, p.cfg.MaxCandidates)
	diag.Discarded = stats.Discarded()

	for reason, n := range stats.Dropped {
		observability.CandidatesDiscarded.WithLabelValues(reason).Add(float64(n))
	}

	stage(StageNormalize)

	pool := scoring.ScoreAll(candidates)
	diag.PoolSize = len(pool)
	observability.CandidatePoolSize.Set(float64(len(pool)))

	stage(StageScore)

	sel := brief.Select(pool, p.cfg.MainCount, domain.Topic(p.cfg.SecondaryTopic))
	diag.Selection = sel.Trace

	stage(StageSelect)

	res := p.deps.Enricher.Enrich(ctx, sel, deadline.Sub(p.deps.Now()))
	diag.EnrichmentReason = res.Reason

	stage(StageEnrich)

	main, secondary, version := brief.Compose(sel, res)
	payload = brief.Assemble(main, secondary, version, meta)

	diag.Enrichment = PathFallback
	if version == brief.VersionEnriched {
		diag.Enrichment = PathEnriched
	}

	stage(StageAssemble)

	total := p.deps.Now().Sub(start)
	diag.TimingsMS[StageTotal] = total.Milliseconds()

	observability.BriefBuildDurationSeconds.Observe(total.Seconds())
	observability.BriefBuilds.WithLabelValues(diag.Enrichment).Inc()

	logger.Info().
		Int("raw", diag.RawCount).
		Int("pool", diag.PoolSize).
		Int("main", len(payload.MainItems)).
		Int("secondary", len(payload.SecondaryItems)).
		Str(logFieldPath, diag.Enrichment).
		Str("enrichment_reason", res.Reason).
		Dur("took", total).
		Msg("brief built")

	return payload, diag, len(payload.MainItems) > 0
}

func (p *Pipeline) saveArchive(payload domain.Payload) {
	if p.deps.Archive == nil {
		return
	}

	p.archiveMu.Lock()
	defer p.archiveMu.Unlock()

	if err := p.deps.Archive.Save(payload); err != nil {
		observability.ArchiveWrites.WithLabelValues(archiveError).Inc()
		p.logger.Warn().Err(err).Msg("failed to write archive snapshot")

		return
	}

	observability.ArchiveWrites.WithLabelValues(archiveOK).Inc()
}
