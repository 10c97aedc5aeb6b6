package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

const testSecondaryURL = "https://security.example.com/advisory"

type stubProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	block bool
	calls int
	last  Request
}

func (s *stubProvider) Name() ProviderName { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.last = req
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	return s.text, s.err
}

func (s *stubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func testCandidate(i int, topic domain.Topic) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		Candidate: domain.Candidate{
			URL:         fmt.Sprintf("https://host%d.example.com/story", i),
			Host:        fmt.Sprintf("host%d.example.com", i),
			Title:       fmt.Sprintf("Story %d", i),
			Summary:     "A summary.",
			Source:      fmt.Sprintf("Source %d", i),
			PublishedAt: time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC),
		},
		Topic:     topic,
		Score:     60 + i,
		Breakdown: domain.ScoreBreakdown{MarketImpact: 24, BusinessImpact: 18, LocaleRelevance: 10, Confidence: 7},
	}
}

func testSelection(withSecondary bool) domain.Selection {
	sel := domain.Selection{
		Main: []domain.ScoredCandidate{
			testCandidate(1, domain.TopicRegulation),
			testCandidate(2, domain.TopicFunding),
			testCandidate(3, domain.TopicProduct),
		},
	}

	if withSecondary {
		sec := testCandidate(4, domain.TopicSecurity)
		sec.URL = testSecondaryURL
		sel.Secondary = &sec
	}

	return sel
}

func validItem(url string) enrichedItem {
	return enrichedItem{
		OriginalURL:  url,
		ImpactLevel:  "Medium",
		Title:        "見出し",
		OneSentence:  "一文要約。",
		WhyItMatters: "重要な理由。",
		LocaleImpact: "国内への影響。",
		Tags:         []string{"AI"},
		FactSummary:  []string{"事実1", "事実2"},
		Implications: []string{"示唆1", "示唆2"},
		Outlook:      []string{"見通し1", "見通し2", "見通し3"},
	}
}

func responseJSON(t *testing.T, main, secondary int) string {
	t.Helper()

	resp := enrichedResponse{MainItems: []enrichedItem{}, SecondaryItems: []enrichedItem{}}

	for i := 0; i < main; i++ {
		resp.MainItems = append(resp.MainItems, validItem("https://attacker.example.net/"+fmt.Sprint(i)))
	}

	for i := 0; i < secondary; i++ {
		resp.SecondaryItems = append(resp.SecondaryItems, validItem("https://attacker.example.net/s"))
	}

	out, err := json.Marshal(resp)
	require.NoError(t, err)

	return string(out)
}
