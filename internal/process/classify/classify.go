// Package classify assigns a topic to a candidate from its title using ordered
// keyword rules. The first matching rule wins.
package classify

import (
	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/platform/htmlutils"
)

var (
	// aiTerms decides whether an item belongs in the brief at all.
	aiTerms = NewVocabulary(
		[]string{`ai`, `artificial intelligence`, `machine learning`, `deep learning`, `llms?`, `gpt\w*`,
			`chatgpt`, `claude`, `gemini`, `openai`, `anthropic`, `deepmind`, `foundation models?`,
			`agents?`, `agentic`, `inference`, `training`, `benchmarks?`, `transformers?`, `gpus?`,
			`nvidia`, `chips?`, `semiconductors?`, `regulation`, `governance`, `copyright`,
			`export controls?`},
		[]string{"人工知能", "大規模言語モデル", "推論", "学習", "規制", "半導体"},
	)

	regulationTerms = NewVocabulary(
		[]string{`regulat\w*`, `lawsuits?`, `su(?:e|es|ed|ing)`, `courts?`, `antitrust`, `legislat\w*`,
			`ai act`, `copyright\w*`, `bans?`, `banned`, `compliance`, `ftc`, `policy makers?`, `lawmakers?`},
		[]string{"規制", "訴訟", "提訴", "裁判", "著作権", "当局", "行政指導", "罰金", "ガイドライン", "独禁"},
	)

	fundingTerms = NewVocabulary(
		[]string{`funding`, `rais(?:e|es|ed|ing)`, `valuations?`, `ipo`, `investments?`, `investors?`,
			`series [a-f]`, `acquisitions?`, `acquir\w*`, `mergers?`},
		[]string{"資金調達", "出資", "評価額", "上場", "投資", "買収"},
	)

	supplyChainTerms = NewVocabulary(
		[]string{`chips?`, `chipmakers?`, `semiconductors?`, `exports?`, `export controls?`, `gpus?`,
			`foundry`, `foundries`, `tsmc`, `supply chains?`},
		[]string{"半導体", "輸出", "チップ", "供給網", "サプライチェーン"},
	)

	securityTerms = NewVocabulary(
		[]string{`vulnerab\w*`, `breach\w*`, `cve-\d{4}-\d+`, `cve`, `exploit\w*`, `security`,
			`hack\w*`, `leak\w*`, `malware`, `ransomware`, `jailbreak\w*`, `phishing`, `prompt injection`},
		[]string{"脆弱性", "漏洩", "漏えい", "セキュリティ", "不正アクセス", "サイバー攻撃", "情報流出"},
	)

	productTerms = NewVocabulary(
		[]string{`releas\w*`, `launch\w*`, `apis?`, `tools?`, `updat\w*`, `introduc\w*`, `available`,
			`rolls? out`, `unveil\w*`, `announc\w*`, `ships?`},
		[]string{"発表", "リリース", "提供開始", "公開", "新機能", "搭載", "発売"},
	)

	researchTerms = NewVocabulary(
		[]string{`papers?`, `benchmarks?`, `research\w*`, `study`, `studies`, `arxiv`, `datasets?`},
		[]string{"論文", "研究", "ベンチマーク", "データセット"},
	)
)

// rule pairs a predicate over the folded title with the topic it assigns.
type rule struct {
	topic domain.Topic
	match func(title string) bool
}

// rules are evaluated in order. Security precedes product so that security
// fixes shipped as releases are not filed as launches.
var rules = []rule{
	{domain.TopicRegulation, func(t string) bool { return regulationTerms.Matches(t) || HasLegalSuffix(t) }},
	{domain.TopicFunding, fundingTerms.Matches},
	{domain.TopicSupplyChain, supplyChainTerms.Matches},
	{domain.TopicSecurity, securityTerms.Matches},
	{domain.TopicProduct, productTerms.Matches},
	{domain.TopicResearch, researchTerms.Matches},
}

// IsAIRelated reports whether the title or summary mentions AI or the
// compute, policy and research around it.
func IsAIRelated(title, summary string) bool {
	return aiTerms.Matches(htmlutils.Fold(title)) || aiTerms.Matches(htmlutils.Fold(summary))
}

// Classify returns the topic for a title. When no rule matches, a valid hint is
// used, otherwise TopicOther.
func Classify(title string, hint domain.Topic) domain.Topic {
	folded := htmlutils.Fold(title)

	for _, r := range rules {
		if r.match(folded) {
			return r.topic
		}
	}

	if t, ok := domain.ParseTopic(string(hint)); ok {
		return t
	}

	return domain.TopicOther
}

const legalSuffix = '法'

// methodPrefixes precede the legal suffix in the "method/technique" sense
// (方法, 手法), which is not a statute.
var methodPrefixes = map[rune]bool{
	'方': true,
	'手': true,
}

// HasLegalSuffix reports whether text contains the statute character in a
// sense other than "method" or "technique".
func HasLegalSuffix(text string) bool {
	var prev rune

	for _, r := range text {
		if r == legalSuffix && !methodPrefixes[prev] {
			return true
		}

		prev = r
	}

	return false
}
