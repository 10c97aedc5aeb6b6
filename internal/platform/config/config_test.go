package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
)

// Test environment variable keys.
const (
	testEnvNewsAPIKey = "NEWSAPI_KEY"
	testEnvLLMAPIKey  = "LLM_API_KEY"
	testEnvFeedsFile  = "FEEDS_FILE"
)

func clearCredentials(t *testing.T) {
	t.Helper()

	for _, key := range []string{testEnvNewsAPIKey, testEnvLLMAPIKey, "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LLM_MODEL", "OPENAI_MODEL", "LLM_PROVIDER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MainCount)
	assert.Equal(t, "security", cfg.SecondaryTopic)
	assert.Equal(t, 25*time.Second, cfg.PipelineBudget)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Len(t, cfg.Feeds, len(DefaultFeeds))
}

func TestLoad_ListSettings(t *testing.T) {
	clearCredentials(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.1")
	t.Setenv("ALLOWED_HOSTS", "example.com,itmedia.co.jp")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
	assert.Equal(t, []string{"example.com", "itmedia.co.jp"}, cfg.AllowedHosts)
}

func TestValidate_MissingCredentials(t *testing.T) {
	clearCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrMissingCredential)
	assert.Contains(t, err.Error(), "NEWSAPI_KEY")
	assert.Contains(t, err.Error(), "LLM_API_KEY")

	t.Setenv(testEnvNewsAPIKey, "news-key")

	cfg, err = Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorIs(t, err, coreerrors.ErrMissingCredential)
	assert.NotContains(t, err.Error(), "NEWSAPI_KEY")
}

func TestValidate_OK(t *testing.T) {
	clearCredentials(t)
	t.Setenv(testEnvNewsAPIKey, "news-key")
	t.Setenv(testEnvLLMAPIKey, "llm-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CredentialAliases(t *testing.T) {
	clearCredentials(t)
	t.Setenv("OPENAI_API_KEY", "sk-alias")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-alias", cfg.LLMAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)

	clearCredentials(t)
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "ak-alias")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "ak-alias", cfg.LLMAPIKey)
}

func TestLoad_InvalidRanges(t *testing.T) {
	clearCredentials(t)
	t.Setenv("MAIN_COUNT", "0")

	_, err := Load()
	require.ErrorIs(t, err, coreerrors.ErrInvalidConfig)
}

func TestLoadFeeds_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := `feeds:
  - name: Example
    url: https://example.com/feed.xml
    weight: 1.5
    local: true
    topicHint: research
  - name: ""
    url: https://skipped.example.com/feed.xml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	feeds, err := LoadFeeds(path)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Example", feeds[0].Name)
	assert.InDelta(t, 1.0, feeds[0].Weight, 1e-9)
	assert.True(t, feeds[0].Local)
	assert.Equal(t, "research", feeds[0].TopicHint)
}

func TestLoad_FeedsFileMissing(t *testing.T) {
	clearCredentials(t)
	t.Setenv(testEnvFeedsFile, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.Timezone = "Asia/Tokyo"
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}
