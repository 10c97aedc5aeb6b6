package llm

// Outbound rate limiting shared by the network providers.
const (
	rateLimitRPS     = 1
	rateLimiterBurst = 2
)

// Error message templates
const (
	errRateLimiter = "rate limiter error: %w"
)

// Log keys and messages
const (
	logKeyModel     = "model"
	logKeyMaxTokens = "max_tokens"
	logKeyReason    = "reason"
	logKeyProvider  = "provider"
	logMsgTruncated = "LLM output truncated due to max_tokens limit"
)

// Token direction labels.
const (
	tokensInput  = "input"
	tokensOutput = "output"
)
