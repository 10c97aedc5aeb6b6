package brief

import (
	"fmt"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/platform/htmlutils"
)

// Fallback text caps, in runes.
const (
	TitleCap    = 80
	SentenceCap = 120
	ExcerptCap  = 60
)

const untitled = "(無題)"

var topicLabels = map[domain.Topic]string{
	domain.TopicRegulation:  "規制・法務",
	domain.TopicFunding:     "資金調達",
	domain.TopicSupplyChain: "半導体・供給網",
	domain.TopicSecurity:    "セキュリティ",
	domain.TopicProduct:     "製品・サービス",
	domain.TopicResearch:    "研究",
	domain.TopicOther:       "その他",
}

// Templated rationale strings.
const (
	whyMain      = "AI 活用に関する事業判断に影響しうる動きであり、経営層が把握しておくべき内容です。"
	whySecondary = "運用・セキュリティ面のリスク管理に関わる動きであり、早めの把握が必要です。"
	localLocal   = "国内発の情報であり、日本企業への影響が比較的直接的です。"
	localForeign = "海外発の動きですが、国内企業の戦略や取引先にも波及する可能性があります。"

	tagLocal   = "国内"
	tagForeign = "海外"

	implicationSecondary1 = "自社システムや委託先に同様のリスクがないか確認が必要です。"
	implicationSecondary2 = "対策状況や影響範囲についての続報に注意が必要です。"
	implicationMainFmt    = "%s分野の競争環境に変化が生じる可能性があります。"
	implicationMain2      = "自社の AI 活用計画との関係を確認することが推奨されます。"

	outlookSourceFmt = "%s からの続報を確認してください。"
	outlookLocale    = "国内での反応や追随の動きを注視してください。"

	factSourceFmt  = "%s が報じた内容: %s"
	factExcerptFmt = "概要: %s"
)

// TopicLabel returns the display label of a topic.
func TopicLabel(t domain.Topic) string {
	if label, ok := topicLabels[t]; ok {
		return label
	}

	return topicLabels[domain.TopicOther]
}

// Synthesize builds a brief item from c without any external call. The output
// depends only on c and secondary.
func Synthesize(c domain.ScoredCandidate, secondary bool) domain.BriefItem {
	title := htmlutils.Truncate(htmlutils.Clean(c.Title), TitleCap)
	if title == "" {
		title = untitled
	}

	summary := htmlutils.Clean(c.Summary)
	if summary == "" {
		summary = title
	}

	source := c.SourceName()
	if source == "" {
		source = untitled
	}

	excerpt := htmlutils.TruncateWithEllipsis(summary, ExcerptCap)
	label := TopicLabel(c.Topic)

	item := domain.BriefItem{
		ImpactLevel:     domain.ImpactForScore(c.Score),
		ImportanceScore: c.Score,
		ScoreBreakdown:  c.Breakdown,
		Title:           title,
		OneSentence:     htmlutils.Truncate(summary, SentenceCap),
		WhyItMatters:    whyMain,
		LocaleImpact:    localForeign,
		Tags:            []string{label, tagForeign},
		FactSummary: []string{
			fmt.Sprintf(factSourceFmt, source, title),
			fmt.Sprintf(factExcerptFmt, excerpt),
		},
		Implications: []string{
			fmt.Sprintf(implicationMainFmt, label),
			implicationMain2,
		},
		Outlook: []string{
			fmt.Sprintf(outlookSourceFmt, source),
			outlookLocale,
		},
		OriginalTitle: c.Title,
		OriginalURL:   c.URL,
		PublishedAt:   c.PublishedRFC3339(),
		Source:        source,
		Topic:         c.Topic,
	}

	if c.LocalLocale {
		item.LocaleImpact = localLocal
		item.Tags[1] = tagLocal
	}

	if secondary {
		item.WhyItMatters = whySecondary
		item.Implications = []string{implicationSecondary1, implicationSecondary2}
	}

	return item
}
