package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BriefBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_builds_total",
		Help: "The total number of brief builds by output path (enriched, fallback, error)",
	}, []string{"path"})

	BriefBuildDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brief_build_duration_seconds",
		Help:    "Wall-clock duration of a full brief build",
		Buckets: []float64{0.5, 1, 2, 5, 10, 15, 20, 25, 30, 60},
	})

	StageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brief_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	CollectorItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_collector_items_total",
		Help: "The total number of raw items returned per source",
	}, []string{"source"})

	CollectorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_collector_failures_total",
		Help: "The total number of absorbed collector failures per source",
	}, []string{"source"})

	CandidatePoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brief_candidate_pool_size",
		Help: "Number of scored candidates in the most recent build",
	})

	CandidatesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_candidates_discarded_total",
		Help: "The total number of raw items discarded during normalization by reason",
	}, []string{"reason"})

	EnrichmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_enrichment_outcomes_total",
		Help: "Enrichment attempts by outcome (ok or unavailable reason)",
	}, []string{"provider", "outcome"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brief_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "model"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_llm_tokens_total",
		Help: "Tokens reported by the LLM provider",
	}, []string{"provider", "model", "direction"})

	LLMCircuitOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "brief_llm_circuit_open",
		Help: "1 while the enrichment circuit breaker is open",
	}, []string{"provider"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_cache_lookups_total",
		Help: "Cache lookups by result (hit, miss, bypass)",
	}, []string{"result"})

	ArchiveWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_archive_writes_total",
		Help: "Archive snapshot writes by status",
	}, []string{"status"})
)
