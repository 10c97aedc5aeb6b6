package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/platform/config"
)

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderMock      ProviderName = "mock"
)

const llmAPIKeyMock = "mock"

// Request is a single completion request.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Provider issues exactly one completion call per Complete and returns the
// raw response text. Providers do not retry.
type Provider interface {
	Name() ProviderName
	Complete(ctx context.Context, req Request) (string, error)
}

// NewProvider builds the provider selected by the configuration.
// An API key of "mock" selects the local deterministic provider.
func NewProvider(cfg *config.Config, logger *zerolog.Logger) (Provider, error) {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	if cfg.LLMAPIKey == llmAPIKeyMock {
		logger.Warn().Msg("using mock LLM provider")

		return NewMockProvider(), nil
	}

	switch ProviderName(strings.ToLower(cfg.LLMProvider)) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg, logger), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", coreerrors.ErrInvalidConfig, cfg.LLMProvider)
	}
}
