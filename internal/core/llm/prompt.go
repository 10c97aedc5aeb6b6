package llm

import (
	"encoding/json"
	"fmt"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/platform/htmlutils"
)

const systemInstruction = `You are a senior analyst writing a short Japanese-language business brief on how AI news affects Japanese companies and markets.
You receive candidate news items as JSON. Write exactly one brief item per main candidate, in the same order, and at most one item for the secondary candidate.
Respond with ONLY a JSON object, no prose and no markdown, matching this schema:
{"main_items":[ITEM,...],"secondary_items":[ITEM]}
ITEM = {
 "original_url": string (copy from input),
 "impact_level": "High" | "Medium" | "Low",
 "title_localized": string (Japanese headline),
 "one_sentence": string (one-sentence Japanese summary),
 "why_it_matters": string,
 "locale_impact": string (impact on Japanese businesses),
 "tags": [string, ...] (1 to 5 short tags),
 "fact_summary": [string, ...] (2 to 4 entries),
 "implications": [string, ...] (2 to 4 entries),
 "outlook": [string, ...] (2 to 4 entries)
}
Use only facts present in the input. Do not invent numbers, names or dates.`

type promptCandidate struct {
	URL         string                `json:"url"`
	Title       string                `json:"title"`
	Source      string                `json:"source"`
	Topic       domain.Topic          `json:"topic"`
	Score       int                   `json:"importance_score"`
	Breakdown   domain.ScoreBreakdown `json:"score_breakdown"`
	Summary     string                `json:"summary"`
	Local       bool                  `json:"local_locale"`
	PublishedAt string                `json:"published_at,omitempty"`
}

type promptPayload struct {
	MainCount           int               `json:"main_count"`
	SecondaryCount      int               `json:"secondary_count"`
	MainCandidates      []promptCandidate `json:"main_candidates"`
	SecondaryCandidates []promptCandidate `json:"secondary_candidates"`
}

func toPromptCandidate(c domain.ScoredCandidate) promptCandidate {
	return promptCandidate{
		URL:         c.URL,
		Title:       c.Title,
		Source:      c.Source,
		Topic:       c.Topic,
		Score:       c.Score,
		Breakdown:   c.Breakdown,
		Summary:     htmlutils.Truncate(c.Summary, domain.OutboundSummaryCap),
		Local:       c.LocalLocale,
		PublishedAt: c.PublishedRFC3339(),
	}
}

func buildPromptPayload(sel domain.Selection) promptPayload {
	p := promptPayload{
		MainCount:           len(sel.Main),
		MainCandidates:      make([]promptCandidate, 0, len(sel.Main)),
		SecondaryCandidates: []promptCandidate{},
	}

	for _, c := range sel.Main {
		p.MainCandidates = append(p.MainCandidates, toPromptCandidate(c))
	}

	if sel.Secondary != nil {
		p.SecondaryCount = 1
		p.SecondaryCandidates = append(p.SecondaryCandidates, toPromptCandidate(*sel.Secondary))
	}

	return p
}

// buildRequest renders the selection into a single completion request.
func buildRequest(sel domain.Selection, maxTokens int) (Request, error) {
	body, err := json.Marshal(buildPromptPayload(sel))
	if err != nil {
		return Request{}, fmt.Errorf("marshal prompt payload: %w", err)
	}

	return Request{
		System:    systemInstruction,
		User:      string(body),
		MaxTokens: maxTokens,
	}, nil
}
