package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

// List bounds for the analytical fields of an item.
const (
	minListEntries = 2
	maxListEntries = 4
)

var (
	errParse  = errors.New("response is not valid JSON")
	errSchema = errors.New("response does not match schema")
)

type enrichedItem struct {
	OriginalURL  string   `json:"original_url"`
	ImpactLevel  string   `json:"impact_level"`
	Title        string   `json:"title_localized"`
	OneSentence  string   `json:"one_sentence"`
	WhyItMatters string   `json:"why_it_matters"`
	LocaleImpact string   `json:"locale_impact"`
	Tags         []string `json:"tags"`
	FactSummary  []string `json:"fact_summary"`
	Implications []string `json:"implications"`
	Outlook      []string `json:"outlook"`
}

type enrichedResponse struct {
	MainItems      []enrichedItem `json:"main_items"`
	SecondaryItems []enrichedItem `json:"secondary_items"`
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}

// extractJSON tries to extract JSON from a response that might have extra text.
func extractJSON(text string) string {
	// Look for JSON object
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}

func parseResponse(text string) (enrichedResponse, error) {
	var resp enrichedResponse

	raw := extractJSON(stripCodeFence(text))
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return enrichedResponse{}, fmt.Errorf("%w: %w", errParse, err)
	}

	return resp, nil
}

// validateCounts checks the item counts against the selection.
func validateCounts(resp enrichedResponse, sel domain.Selection) error {
	if len(resp.MainItems) != len(sel.Main) {
		return fmt.Errorf("%w: main_items has %d entries, want %d", errSchema, len(resp.MainItems), len(sel.Main))
	}

	if len(resp.SecondaryItems) > 1 {
		return fmt.Errorf("%w: secondary_items has %d entries, want at most 1", errSchema, len(resp.SecondaryItems))
	}

	return nil
}

// stamp validates the analytical fields of item and combines them with the
// identifying fields of c. Identifying fields in item are ignored.
func stamp(item enrichedItem, c domain.ScoredCandidate) (domain.BriefItem, error) {
	out := domain.BriefItem{
		ImpactLevel:     domain.ImpactLevel(strings.TrimSpace(item.ImpactLevel)),
		ImportanceScore: c.Score,
		ScoreBreakdown:  c.Breakdown,
		Title:           strings.TrimSpace(item.Title),
		OneSentence:     strings.TrimSpace(item.OneSentence),
		WhyItMatters:    strings.TrimSpace(item.WhyItMatters),
		LocaleImpact:    strings.TrimSpace(item.LocaleImpact),
		Tags:            cleanList(item.Tags),
		FactSummary:     cleanList(item.FactSummary),
		Implications:    cleanList(item.Implications),
		Outlook:         cleanList(item.Outlook),
		OriginalTitle:   c.Title,
		OriginalURL:     c.URL,
		PublishedAt:     c.PublishedRFC3339(),
		Source:          c.SourceName(),
		Topic:           c.Topic,
	}

	if !out.ImpactLevel.Valid() {
		out.ImpactLevel = domain.ImpactForScore(c.Score)
	}

	for name, v := range map[string]string{
		"title_localized": out.Title,
		"one_sentence":    out.OneSentence,
		"why_it_matters":  out.WhyItMatters,
		"locale_impact":   out.LocaleImpact,
	} {
		if v == "" {
			return domain.BriefItem{}, fmt.Errorf("%w: %s is empty", errSchema, name)
		}
	}

	if len(out.Tags) == 0 {
		return domain.BriefItem{}, fmt.Errorf("%w: tags is empty", errSchema)
	}

	for name, list := range map[string][]string{
		"fact_summary": out.FactSummary,
		"implications": out.Implications,
		"outlook":      out.Outlook,
	} {
		if len(list) < minListEntries || len(list) > maxListEntries {
			return domain.BriefItem{}, fmt.Errorf("%w: %s has %d entries", errSchema, name, len(list))
		}
	}

	return out, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}
