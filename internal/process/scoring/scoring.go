// Package scoring computes the importance score of a classified candidate.
// Scores are pure functions of the candidate fields.
package scoring

import (
	"math"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/platform/htmlutils"
	"github.com/lueurxax/impact-brief/internal/process/classify"
)

// Score composition.
const (
	BaseScore             = 40
	WeightScale           = 20
	LocaleBonus           = 8
	MarketVocabularyBonus = 5
	MinScore              = 0
	// MaxScore stays below 100; the top of the scale is left to the enrichment step.
	MaxScore = 95
)

// Breakdown caps and constants.
const (
	marketImpactCap       = 40
	marketImpactRatio     = 0.4
	businessImpactCap     = 30
	businessImpactRatio   = 0.3
	localeRelevanceCap    = 25
	localeRelevanceLocal  = 20
	localeRelevanceGlobal = 10
	ConfidenceConstant    = 7
)

// TopicBonus is the static per-topic addition.
var TopicBonus = map[domain.Topic]int{
	domain.TopicRegulation:  15,
	domain.TopicSecurity:    12,
	domain.TopicFunding:     10,
	domain.TopicSupplyChain: 8,
	domain.TopicProduct:     5,
	domain.TopicResearch:    5,
	domain.TopicOther:       0,
}

// marketTerms mark titles about the local economy or its institutions.
var marketTerms = classify.NewVocabulary(
	[]string{`japan\w*`, `tokyo`, `yen`, `boj`, `meti`, `nikkei`, `topix`},
	[]string{"日本", "国内", "政府", "日銀", "経産省", "経済産業省", "総務省", "金融庁", "内閣府", "東証", "円安", "円高", "経済"},
)

// Score returns the clamped importance score and its breakdown.
func Score(c domain.Candidate, topic domain.Topic) (int, domain.ScoreBreakdown) {
	total := BaseScore + int(math.Round(clampWeight(c.SourceWeight)*WeightScale))

	if c.LocalLocale {
		total += LocaleBonus
	}

	if marketTerms.Matches(htmlutils.Fold(c.Title)) {
		total += MarketVocabularyBonus
	}

	total += TopicBonus[topic]
	total = clamp(total, MinScore, MaxScore)

	return total, breakdown(total, c.LocalLocale)
}

// ScoreCandidate classifies and scores c.
func ScoreCandidate(c domain.Candidate) domain.ScoredCandidate {
	topic := classify.Classify(c.Title, c.TopicHint)
	score, bd := Score(c, topic)

	return domain.ScoredCandidate{
		Candidate: c,
		Topic:     topic,
		Score:     score,
		Breakdown: bd,
	}
}

// ScoreAll classifies and scores every candidate, preserving order.
func ScoreAll(candidates []domain.Candidate) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(candidates))

	for _, c := range candidates {
		out = append(out, ScoreCandidate(c))
	}

	return out
}

// breakdown derives presentation sub-scores from the final score. The parts are
// proportional caps and are not expected to sum to the score.
func breakdown(score int, local bool) domain.ScoreBreakdown {
	locale := localeRelevanceGlobal
	if local {
		locale = localeRelevanceLocal
	}

	return domain.ScoreBreakdown{
		MarketImpact:    min(marketImpactCap, int(math.Round(float64(score)*marketImpactRatio))),
		BusinessImpact:  min(businessImpactCap, int(math.Round(float64(score)*businessImpactRatio))),
		LocaleRelevance: min(localeRelevanceCap, locale),
		Confidence:      ConfidenceConstant,
	}
}

func clampWeight(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}

	if w > 1 {
		return 1
	}

	return w
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
