package domain

import "time"

// Topic is the fixed classification label used for scoring and diversity.
type Topic string

const (
	TopicRegulation  Topic = "regulation"
	TopicFunding     Topic = "funding"
	TopicSupplyChain Topic = "supply_chain"
	TopicSecurity    Topic = "security"
	TopicProduct     Topic = "product"
	TopicResearch    Topic = "research"
	TopicOther       Topic = "other"
)

// Topics lists every valid topic in classification priority order.
var Topics = []Topic{
	TopicRegulation,
	TopicFunding,
	TopicSupplyChain,
	TopicSecurity,
	TopicProduct,
	TopicResearch,
	TopicOther,
}

// ParseTopic returns the topic named by s, reporting whether it is known.
func ParseTopic(s string) (Topic, bool) {
	for _, t := range Topics {
		if string(t) == s {
			return t, true
		}
	}

	return "", false
}

// RawItem is a single entry as returned by a collector.
type RawItem struct {
	Source       string
	Link         string
	Title        string
	Summary      string
	Published    string
	LocalLocale  bool
	SourceWeight float64
	TopicHint    Topic
}

// Candidate is a RawItem that passed normalization and the host allow-list.
type Candidate struct {
	URL          string
	Host         string
	Title        string
	Summary      string
	Source       string
	PublishedAt  time.Time
	LocalLocale  bool
	SourceWeight float64
	TopicHint    Topic
}

// ScoreBreakdown is the presentation split of an importance score.
type ScoreBreakdown struct {
	MarketImpact    int `json:"market_impact"`
	BusinessImpact  int `json:"business_impact"`
	LocaleRelevance int `json:"locale_relevance"`
	Confidence      int `json:"confidence"`
}

// ScoredCandidate is a classified and scored Candidate.
type ScoredCandidate struct {
	Candidate
	Topic     Topic
	Score     int
	Breakdown ScoreBreakdown
}

// Selection decisions recorded in the selection trace.
const (
	DecisionSecondary   = "secondary"
	DecisionMain        = "main"
	DecisionBackfill    = "backfill"
	DecisionHostUsed    = "skip_host_used"
	DecisionTopicUsed   = "skip_topic_used"
	DecisionNotSelected = "not_selected"
)

// SelectionStep records what the selector decided for one candidate.
type SelectionStep struct {
	URL      string `json:"url"`
	Host     string `json:"host"`
	Topic    Topic  `json:"topic"`
	Score    int    `json:"score"`
	Decision string `json:"decision"`
}

// Selection is the output of the selector: a diverse main set and an optional
// secondary pick.
type Selection struct {
	Main      []ScoredCandidate
	Secondary *ScoredCandidate
	Trace     []SelectionStep
}

// ImpactLevel is the coarse impact label shown on a brief item.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "High"
	ImpactMedium ImpactLevel = "Medium"
	ImpactLow    ImpactLevel = "Low"
)

// Valid reports whether l is one of the known impact levels.
func (l ImpactLevel) Valid() bool {
	return l == ImpactHigh || l == ImpactMedium || l == ImpactLow
}

// BriefItem is one rendered entry of the brief. Its shape does not depend on
// whether it was produced by enrichment or by local synthesis.
type BriefItem struct {
	ImpactLevel     ImpactLevel    `json:"impact_level"`
	ImportanceScore int            `json:"importance_score"`
	ScoreBreakdown  ScoreBreakdown `json:"score_breakdown"`
	Title           string         `json:"title_localized"`
	OneSentence     string         `json:"one_sentence"`
	WhyItMatters    string         `json:"why_it_matters"`
	LocaleImpact    string         `json:"locale_impact"`
	Tags            []string       `json:"tags"`
	FactSummary     []string       `json:"fact_summary"`
	Implications    []string       `json:"implications"`
	Outlook         []string       `json:"outlook"`
	OriginalTitle   string         `json:"original_title"`
	OriginalURL     string         `json:"original_url"`
	PublishedAt     string         `json:"published_at"`
	Source          string         `json:"source"`
	Topic           Topic          `json:"topic"`
}

// Payload is the complete response body for one pipeline run.
type Payload struct {
	Date           string       `json:"date"`
	MainItems      []BriefItem  `json:"main_items"`
	SecondaryItems []BriefItem  `json:"secondary_items"`
	Sources        []string     `json:"sources"`
	GeneratedAt    string       `json:"generated_at"`
	Version        string       `json:"version"`
	RunID          string       `json:"run_id"`
	Debug          *Diagnostics `json:"debug,omitempty"`
}

// Diagnostics describes how a payload was produced. It is attached to a
// response only when explicitly requested.
type Diagnostics struct {
	RawCount         int               `json:"raw_count"`
	PoolSize         int               `json:"pool_size"`
	Discarded        int               `json:"discarded"`
	Sources          []SourceReport    `json:"sources"`
	TimingsMS        map[string]int64  `json:"timings_ms"`
	Enrichment       string            `json:"enrichment"`
	EnrichmentReason string            `json:"enrichment_reason,omitempty"`
	Selection        []SelectionStep   `json:"selection"`
	Cache            *CacheDiagnostics `json:"cache,omitempty"`
}

// SourceReport is the per-collector outcome of one fan-in.
type SourceReport struct {
	Name  string `json:"name"`
	Items int    `json:"items"`
	Error string `json:"error,omitempty"`
}

// CacheDiagnostics describes the cache decision for a request.
type CacheDiagnostics struct {
	Hit        bool    `json:"hit"`
	Bypassed   bool    `json:"bypassed"`
	AgeSeconds float64 `json:"age_seconds"`
	ETag       string  `json:"etag"`
}

// Text caps applied to candidate summaries.
const (
	// SummaryCap bounds the stored candidate summary.
	SummaryCap = 800

	// OutboundSummaryCap bounds the summary sent to the enrichment provider.
	OutboundSummaryCap = 700
)

// Impact thresholds on the importance score.
const (
	HighImpactScore   = 90
	MediumImpactScore = 72
)

// ImpactForScore maps an importance score to its impact level.
func ImpactForScore(score int) ImpactLevel {
	switch {
	case score >= HighImpactScore:
		return ImpactHigh
	case score >= MediumImpactScore:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// PublishedRFC3339 formats PublishedAt, or returns "" when it is unknown.
func (c Candidate) PublishedRFC3339() string {
	if c.PublishedAt.IsZero() {
		return ""
	}

	return c.PublishedAt.UTC().Format(time.RFC3339)
}

// SourceName is the publisher name, falling back to the host when the
// collector did not report one.
func (c Candidate) SourceName() string {
	if c.Source != "" {
		return c.Source
	}

	return c.Host
}
