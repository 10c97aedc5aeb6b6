package llm

import "github.com/lueurxax/impact-brief/internal/platform/observability"

func recordTokens(provider ProviderName, model string, input, output int) {
	if input > 0 {
		observability.LLMTokens.WithLabelValues(string(provider), model, tokensInput).Add(float64(input))
	}

	if output > 0 {
		observability.LLMTokens.WithLabelValues(string(provider), model, tokensOutput).Add(float64(output))
	}
}

func recordOutcome(provider ProviderName, outcome string) {
	observability.EnrichmentOutcomes.WithLabelValues(string(provider), outcome).Inc()
}

func setCircuitOpen(provider ProviderName, open bool) {
	value := 0.0
	if open {
		value = 1.0
	}

	observability.LLMCircuitOpen.WithLabelValues(string(provider)).Set(value)
}
