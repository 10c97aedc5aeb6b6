package brief

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/core/llm"
)

func testSelection() domain.Selection {
	sec := candidate("s", "sec.com", domain.TopicSecurity, 90)

	return domain.Selection{
		Main: []domain.ScoredCandidate{
			candidate("1", "a.com", domain.TopicRegulation, 85),
			candidate("2", "b.com", domain.TopicFunding, 80),
			candidate("3", "a.com", domain.TopicProduct, 70),
		},
		Secondary: &sec,
	}
}

func enrichedFor(c domain.ScoredCandidate) domain.BriefItem {
	item := Synthesize(c, false)
	item.Title = "enriched " + c.Title

	return item
}

func TestCompose_Fallback(t *testing.T) {
	sel := testSelection()

	main, secondary, version := Compose(sel, llm.Result{Reason: llm.ReasonBudget})

	assert.Equal(t, VersionFallback, version)
	require.Len(t, main, 3)
	require.Len(t, secondary, 1)

	for i, item := range main {
		assertValidItem(t, item)
		assert.Equal(t, sel.Main[i].URL, item.OriginalURL)
	}

	assert.Equal(t, whySecondary, secondary[0].WhyItMatters)
}

func TestCompose_Enriched(t *testing.T) {
	sel := testSelection()
	res := llm.Result{}

	for _, c := range sel.Main {
		res.Main = append(res.Main, enrichedFor(c))
	}

	main, secondary, version := Compose(sel, res)

	assert.Equal(t, VersionEnriched, version)
	require.Len(t, main, 3)
	assert.Equal(t, "enriched Story 1", main[0].Title)

	require.Len(t, secondary, 1, "missing enriched secondary is synthesized")
	assert.Equal(t, sel.Secondary.URL, secondary[0].OriginalURL)
	assert.Equal(t, whySecondary, secondary[0].WhyItMatters)

	sec := enrichedFor(*sel.Secondary)
	res.Secondary = &sec

	_, secondary, _ = Compose(sel, res)
	require.Len(t, secondary, 1)
	assert.Equal(t, "enriched Story s", secondary[0].Title)
}

func TestCompose_NoSecondary(t *testing.T) {
	sel := testSelection()
	sel.Secondary = nil

	_, secondary, _ := Compose(sel, llm.Result{Reason: llm.ReasonTimeout})
	assert.NotNil(t, secondary)
	assert.Empty(t, secondary)
}

func TestAssemble(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	sel := testSelection()
	main, secondary, version := Compose(sel, llm.Result{Reason: llm.ReasonBudget})

	p := Assemble(main, secondary, version, Meta{
		Now:      time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
		Location: tokyo,
		RunID:    "run-1",
	})

	assert.Equal(t, "2025-06-02", p.Date)
	assert.Equal(t, "2025-06-02T05:00:00+09:00", p.GeneratedAt)
	assert.Equal(t, VersionFallback, p.Version)
	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, []string{"Source a.com", "Source b.com", "Source sec.com"}, p.Sources)
	assert.Len(t, p.MainItems, 3)
	assert.Len(t, p.SecondaryItems, 1)
	assert.Nil(t, p.Debug)
}

func TestEmptyPayload_WellFormed(t *testing.T) {
	p := EmptyPayload(Meta{Now: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)})

	body, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, []any{}, decoded["main_items"])
	assert.Equal(t, []any{}, decoded["secondary_items"])
	assert.Equal(t, []any{}, decoded["sources"])
	assert.Equal(t, VersionError, decoded["version"])
	assert.Equal(t, "2025-06-02", decoded["date"])
	assert.NotContains(t, decoded, "debug")
}
