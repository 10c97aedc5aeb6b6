package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
		{"single line fence", "```{\"a\":1}```", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.input))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"pure_object", `{"key":"value"}`, `{"key":"value"}`},
		{"object_with_preamble", `Here: {"key":"value"} done.`, `{"key":"value"}`},
		{"nested", `{"a":{"b":[1,2]}}`, `{"a":{"b":[1,2]}}`},
		{"no_json", "just some text", "just some text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestParseResponse(t *testing.T) {
	resp, err := parseResponse("```json\n{\"main_items\":[{\"title_localized\":\"x\"}],\"secondary_items\":[]}\n```")
	require.NoError(t, err)
	require.Len(t, resp.MainItems, 1)
	assert.Equal(t, "x", resp.MainItems[0].Title)

	_, err = parseResponse("I cannot help with that")
	require.ErrorIs(t, err, errParse)
}

func TestValidateCounts(t *testing.T) {
	sel := testSelection(true)

	tests := []struct {
		name      string
		main      int
		secondary int
		wantErr   bool
	}{
		{"exact", 3, 1, false},
		{"no secondary", 3, 0, false},
		{"too few main", 2, 1, true},
		{"too many main", 4, 0, true},
		{"two secondary", 3, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := enrichedResponse{
				MainItems:      make([]enrichedItem, tt.main),
				SecondaryItems: make([]enrichedItem, tt.secondary),
			}

			err := validateCounts(resp, sel)
			if tt.wantErr {
				require.ErrorIs(t, err, errSchema)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestStamp_RestampsIdentifyingFields(t *testing.T) {
	c := testCandidate(1, domain.TopicRegulation)
	item := validItem("https://attacker.example.net/x")

	out, err := stamp(item, c)
	require.NoError(t, err)

	assert.Equal(t, c.URL, out.OriginalURL)
	assert.Equal(t, c.Title, out.OriginalTitle)
	assert.Equal(t, c.Source, out.Source)
	assert.Equal(t, c.Topic, out.Topic)
	assert.Equal(t, c.Score, out.ImportanceScore)
	assert.Equal(t, c.Breakdown, out.ScoreBreakdown)
	assert.Equal(t, "2025-06-02T01:00:00Z", out.PublishedAt)
	assert.Equal(t, domain.ImpactMedium, out.ImpactLevel)
	assert.Equal(t, "見出し", out.Title)
}

func TestStamp_EmptySourceUsesHost(t *testing.T) {
	c := testCandidate(1, domain.TopicRegulation)
	c.Source = ""

	out, err := stamp(validItem(c.URL), c)
	require.NoError(t, err)
	assert.Equal(t, c.Host, out.Source)
	assert.NotEmpty(t, out.Source)
}

func TestStamp_InvalidImpactLevelDerived(t *testing.T) {
	c := testCandidate(1, domain.TopicRegulation)
	c.Score = 91

	item := validItem(c.URL)
	item.ImpactLevel = "Catastrophic"

	out, err := stamp(item, c)
	require.NoError(t, err)
	assert.Equal(t, domain.ImpactHigh, out.ImpactLevel)
}

func TestStamp_SchemaViolations(t *testing.T) {
	c := testCandidate(1, domain.TopicRegulation)

	tests := []struct {
		name   string
		mutate func(*enrichedItem)
	}{
		{"empty title", func(it *enrichedItem) { it.Title = "  " }},
		{"empty one sentence", func(it *enrichedItem) { it.OneSentence = "" }},
		{"empty why", func(it *enrichedItem) { it.WhyItMatters = "" }},
		{"empty locale impact", func(it *enrichedItem) { it.LocaleImpact = "" }},
		{"no tags", func(it *enrichedItem) { it.Tags = []string{" "} }},
		{"short facts", func(it *enrichedItem) { it.FactSummary = []string{"one"} }},
		{"long implications", func(it *enrichedItem) { it.Implications = []string{"1", "2", "3", "4", "5"} }},
		{"blank outlook entries", func(it *enrichedItem) { it.Outlook = []string{"1", ""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem(c.URL)
			tt.mutate(&item)

			_, err := stamp(item, c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errSchema))
		})
	}
}
