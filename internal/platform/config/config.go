package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // default timezone must resolve in minimal containers

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
)

const (
	defaultTimezone = "UTC"
	envNewsAPIKey   = "NEWSAPI_KEY"
	envLLMAPIKey    = "LLM_API_KEY"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	HTTPPort   int    `env:"HTTP_PORT" envDefault:"8080"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
	Timezone   string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`

	// Proxy addresses or CIDRs whose X-Forwarded-For / X-Real-IP headers are
	// honored when identifying clients.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// News search collector
	NewsAPIKey      string  `env:"NEWSAPI_KEY"`
	NewsAPIBaseURL  string  `env:"NEWSAPI_BASE_URL" envDefault:"https://newsapi.org/v2/everything"`
	NewsAPIQuery    string  `env:"NEWSAPI_QUERY" envDefault:"\"generative AI\" OR \"artificial intelligence\""`
	NewsAPILanguage string  `env:"NEWSAPI_LANGUAGE" envDefault:""`
	NewsAPIPageSize int     `env:"NEWSAPI_PAGE_SIZE" envDefault:"20"`
	NewsAPIWeight   float64 `env:"NEWSAPI_WEIGHT" envDefault:"0.5"`

	// Enrichment
	LLMAPIKey           string        `env:"LLM_API_KEY"`
	LLMProvider         string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel            string        `env:"LLM_MODEL"`
	LLMBaseURL          string        `env:"LLM_BASE_URL"`
	LLMMaxTokens        int           `env:"LLM_MAX_TOKENS" envDefault:"4096"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Budgets
	PipelineBudget  time.Duration `env:"PIPELINE_BUDGET" envDefault:"25s"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" envDefault:"8s"`
	FetchRPS        float64       `env:"FETCH_RPS" envDefault:"20"`
	EnrichTimeout   time.Duration `env:"ENRICH_TIMEOUT" envDefault:"10s"`
	EnrichMinBudget time.Duration `env:"ENRICH_MIN_BUDGET" envDefault:"12s"`

	// Selection
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"15m"`
	MainCount      int           `env:"MAIN_COUNT" envDefault:"3"`
	SecondaryTopic string        `env:"SECONDARY_TOPIC" envDefault:"security"`
	PerFeedLimit   int           `env:"PER_FEED_LIMIT" envDefault:"12"`
	MaxCandidates  int           `env:"MAX_CANDIDATES" envDefault:"80"`
	AllowedHosts   []string      `env:"ALLOWED_HOSTS" envSeparator:","`

	FeedsFile  string `env:"FEEDS_FILE"`
	ArchiveDir string `env:"ARCHIVE_DIR"`

	Feeds []Feed `env:"-"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	feeds, err := LoadFeeds(cfg.FeedsFile)
	if err != nil {
		return nil, err
	}

	cfg.Feeds = feeds

	applyCredentialAliases(cfg)

	if err := cfg.checkRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) checkRanges() error {
	switch {
	case c.MainCount < 1:
		return fmt.Errorf("%w: MAIN_COUNT must be positive", coreerrors.ErrInvalidConfig)
	case c.PipelineBudget <= 0:
		return fmt.Errorf("%w: PIPELINE_BUDGET must be positive", coreerrors.ErrInvalidConfig)
	case c.FetchTimeout <= 0 || c.FetchTimeout >= c.PipelineBudget:
		return fmt.Errorf("%w: FETCH_TIMEOUT must be positive and below PIPELINE_BUDGET", coreerrors.ErrInvalidConfig)
	case c.EnrichTimeout <= 0:
		return fmt.Errorf("%w: ENRICH_TIMEOUT must be positive", coreerrors.ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: CACHE_TTL must be positive", coreerrors.ErrInvalidConfig)
	}

	return nil
}

// Validate reports missing credentials. It is evaluated on every pipeline run
// so a misconfigured deployment still starts and answers health checks.
func (c *Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.NewsAPIKey) == "" {
		missing = append(missing, envNewsAPIKey)
	}

	if strings.TrimSpace(c.LLMAPIKey) == "" {
		missing = append(missing, envLLMAPIKey)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", coreerrors.ErrMissingCredential, strings.Join(missing, ", "))
	}

	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}

	return loc
}

// applyCredentialAliases accepts the provider-native variable names when the
// generic ones are not set.
func applyCredentialAliases(cfg *Config) {
	if !hasEnv(envLLMAPIKey) {
		switch strings.ToLower(cfg.LLMProvider) {
		case "anthropic":
			setStringFromEnv("ANTHROPIC_API_KEY", &cfg.LLMAPIKey)
		default:
			setStringFromEnv("OPENAI_API_KEY", &cfg.LLMAPIKey)
		}
	}

	if !hasEnv("LLM_MODEL") {
		setStringFromEnv("OPENAI_MODEL", &cfg.LLMModel)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}
