// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Serve mode: HTTP server for the brief endpoint, health checks and metrics
//   - Once mode: builds a single brief, archives it and prints it
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/impact-brief/internal/briefapi"
	"github.com/lueurxax/impact-brief/internal/core/links"
	"github.com/lueurxax/impact-brief/internal/core/llm"
	"github.com/lueurxax/impact-brief/internal/ingest/collector"
	"github.com/lueurxax/impact-brief/internal/platform/config"
	"github.com/lueurxax/impact-brief/internal/platform/observability"
	"github.com/lueurxax/impact-brief/internal/process/normalize"
	"github.com/lueurxax/impact-brief/internal/process/pipeline"
	"github.com/lueurxax/impact-brief/internal/storage"
)

const (
	logFieldFeeds    = "feeds"
	logFieldProvider = "provider"
	logFieldHosts    = "allowed_hosts"
	logFieldPort     = "port"
	logFieldArchive  = "archive_dir"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger

	// httpClient is shared by all collectors; tests replace it.
	httpClient *http.Client
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// RunServer serves the brief endpoint until ctx is canceled.
func (a *App) RunServer(ctx context.Context) error {
	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	handler := briefapi.NewHandler(a.cfg, p, a.logger)
	server := observability.NewServer(a.cfg.HTTPPort, handler, a.logger)

	a.logger.Info().Int(logFieldPort, a.cfg.HTTPPort).Str("path", observability.BriefPath).Msg("Starting brief server")

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("brief server: %w", err)
	}

	return nil
}

// RunOnce builds one brief bypassing the cache, archives it when ARCHIVE_DIR
// is set, and writes it to w as indented JSON.
func (a *App) RunOnce(ctx context.Context, w io.Writer) error {
	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	res, err := p.Brief(ctx, pipeline.BriefOptions{NoCache: true})
	if err != nil {
		return fmt.Errorf("build brief: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(res.Entry.Payload); err != nil {
		return fmt.Errorf("write brief: %w", err)
	}

	return nil
}

func (a *App) buildPipeline() (*pipeline.Pipeline, error) {
	provider, err := llm.NewProvider(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	breaker := llm.NewCircuitBreaker(provider.Name(), llm.CircuitBreakerConfig{
		Threshold:  a.cfg.LLMCircuitThreshold,
		ResetAfter: a.cfg.LLMCircuitTimeout,
	}, a.logger)

	enricher := llm.NewEnricher(provider, breaker, llm.EnricherConfig{
		Timeout:   a.cfg.EnrichTimeout,
		MinBudget: a.cfg.EnrichMinBudget,
		MaxTokens: a.cfg.LLMMaxTokens,
	}, a.logger)

	hosts := a.cfg.AllowedHosts
	if len(hosts) == 0 {
		hosts = links.DefaultAllowedHosts
	}

	allow := links.NewAllowList(hosts)

	var archive *storage.Archive
	if a.cfg.ArchiveDir != "" {
		archive = storage.NewArchive(a.cfg.ArchiveDir)
	}

	a.logger.Info().
		Int(logFieldFeeds, len(a.cfg.Feeds)).
		Str(logFieldProvider, string(provider.Name())).
		Int(logFieldHosts, allow.Len()).
		Str(logFieldArchive, a.cfg.ArchiveDir).
		Msg("Brief pipeline configured")

	return pipeline.New(a.cfg, pipeline.Deps{
		Collectors: a.collectors(),
		Normalizer: normalize.New(allow),
		Enricher:   enricher,
		Cache:      storage.NewCache(a.cfg.CacheTTL),
		Archive:    archive,
	}, a.logger), nil
}

func (a *App) collectors() []collector.Collector {
	limit := rate.Inf
	if a.cfg.FetchRPS > 0 {
		limit = rate.Limit(a.cfg.FetchRPS)
	}

	limiter := rate.NewLimiter(limit, fetchBurst(a.cfg.FetchRPS))

	out := make([]collector.Collector, 0, len(a.cfg.Feeds)+1)

	for _, feed := range a.cfg.Feeds {
		out = append(out, collector.NewFeedCollector(feed, a.cfg.PerFeedLimit, a.httpClient, limiter))
	}

	out = append(out, collector.NewNewsAPICollector(collector.NewsAPIConfig{
		BaseURL:  a.cfg.NewsAPIBaseURL,
		APIKey:   a.cfg.NewsAPIKey,
		Query:    a.cfg.NewsAPIQuery,
		Language: a.cfg.NewsAPILanguage,
		PageSize: a.cfg.NewsAPIPageSize,
		Weight:   a.cfg.NewsAPIWeight,
	}, a.httpClient, limiter))

	return out
}

// fetchBurst lets every collector start at once when the rate allows it.
func fetchBurst(rps float64) int {
	burst := int(rps)
	if burst < 1 {
		return 1
	}

	return burst
}

// Compile-time assertion that the pipeline satisfies the handler contract.
var _ briefapi.Briefer = (*pipeline.Pipeline)(nil)
