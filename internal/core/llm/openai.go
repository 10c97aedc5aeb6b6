package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/platform/config"
	"github.com/lueurxax/impact-brief/internal/platform/observability"
)

const (
	defaultOpenAIModel = openai.GPT4oMini
	openAITemperature  = 0.2
)

type openaiProvider struct {
	client      *openai.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates a provider for OpenAI or any OpenAI-compatible
// endpoint configured through LLM_BASE_URL.
func NewOpenAIProvider(cfg *config.Config, logger *zerolog.Logger) *openaiProvider {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	model := cfg.LLMModel
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openaiProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimitRPS), rateLimiterBurst),
	}
}

func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

func (p *openaiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: openAITemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	observability.LLMRequestDuration.WithLabelValues(string(ProviderOpenAI), p.model).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	recordTokens(ProviderOpenAI, p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", coreerrors.ErrEmptyResponse
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		p.logger.Warn().Str(logKeyModel, p.model).Int(logKeyMaxTokens, req.MaxTokens).Msg(logMsgTruncated)
	}

	return resp.Choices[0].Message.Content, nil
}

var _ Provider = (*openaiProvider)(nil)
