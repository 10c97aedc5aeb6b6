package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

// mockProvider answers with a deterministic, schema-valid brief built from the
// request payload. Used for local development without an API key.
type mockProvider struct{}

// NewMockProvider creates a new mock LLM provider.
func NewMockProvider() *mockProvider {
	return &mockProvider{}
}

// Name returns the provider identifier.
func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

func (p *mockProvider) Complete(_ context.Context, req Request) (string, error) {
	var payload promptPayload
	if err := json.Unmarshal([]byte(req.User), &payload); err != nil {
		return "", fmt.Errorf("mock: decode request: %w", err)
	}

	resp := enrichedResponse{
		MainItems:      make([]enrichedItem, 0, len(payload.MainCandidates)),
		SecondaryItems: make([]enrichedItem, 0, len(payload.SecondaryCandidates)),
	}

	for _, c := range payload.MainCandidates {
		resp.MainItems = append(resp.MainItems, mockItem(c))
	}

	for _, c := range payload.SecondaryCandidates {
		resp.SecondaryItems = append(resp.SecondaryItems, mockItem(c))
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("mock: encode response: %w", err)
	}

	return string(out), nil
}

func mockItem(c promptCandidate) enrichedItem {
	return enrichedItem{
		OriginalURL:  c.URL,
		ImpactLevel:  string(domain.ImpactForScore(c.Score)),
		Title:        "[mock] " + c.Title,
		OneSentence:  c.Title,
		WhyItMatters: fmt.Sprintf("%s の動向は %s 分野の判断材料になる。", c.Source, c.Topic),
		LocaleImpact: "国内企業は自社の導入計画への影響を確認したい。",
		Tags:         []string{string(c.Topic), "mock"},
		FactSummary:  []string{c.Title, "出典: " + c.Source},
		Implications: []string{"短期的な影響は限定的。", "関連分野の動きを注視。"},
		Outlook:      []string{"続報を確認する。", "国内での反応を追う。"},
	}
}

var _ Provider = (*mockProvider)(nil)
