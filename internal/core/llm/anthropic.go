package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/platform/config"
	"github.com/lueurxax/impact-brief/internal/platform/observability"
)

const (
	defaultAnthropicModel = "claude-haiku-4-5"
	contentTypeText       = "text"
	stopReasonMaxTokens   = "max_tokens"
)

// anthropicProvider calls the Anthropic Messages API.
type anthropicProvider struct {
	client      anthropic.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewAnthropicProvider creates a new Anthropic LLM provider.
func NewAnthropicProvider(cfg *config.Config, logger *zerolog.Logger) *anthropicProvider {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.LLMAPIKey),
		option.WithMaxRetries(0),
	}

	if cfg.LLMBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.LLMBaseURL))
	}

	model := cfg.LLMModel
	if model == "" {
		model = defaultAnthropicModel
	}

	return &anthropicProvider{
		client:      anthropic.NewClient(opts...),
		model:       model,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimitRPS), rateLimiterBurst),
	}
}

// Name returns the provider identifier.
func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})

	observability.LLMRequestDuration.WithLabelValues(string(ProviderAnthropic), p.model).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	recordTokens(ProviderAnthropic, p.model, int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	if string(resp.StopReason) == stopReasonMaxTokens {
		p.logger.Warn().Str(logKeyModel, p.model).Int(logKeyMaxTokens, req.MaxTokens).Msg(logMsgTruncated)
	}

	text := extractTextFromResponse(resp)
	if strings.TrimSpace(text) == "" {
		return "", coreerrors.ErrEmptyResponse
	}

	return text, nil
}

// extractTextFromResponse concatenates the text blocks of an Anthropic response.
func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}

var _ Provider = (*anthropicProvider)(nil)
