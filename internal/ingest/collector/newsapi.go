package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/core/links"
)

const (
	newsAPIName         = "NewsAPI"
	newsAPIAuthHeader   = "X-Api-Key"
	newsAPIMaxErrorBody = 200
)

var (
	errNewsAPIError       = errors.New("newsapi api error")
	errNewsAPIBadStatus   = errors.New("newsapi bad status")
	errNewsAPIRateLimited = errors.New("newsapi rate limited")
)

// NewsAPIConfig holds the news-search settings.
type NewsAPIConfig struct {
	BaseURL  string
	APIKey   string
	Query    string
	Language string
	PageSize int
	Weight   float64
}

// NewsAPICollector queries the NewsAPI "everything" endpoint.
type NewsAPICollector struct {
	cfg        NewsAPIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewNewsAPICollector(cfg NewsAPIConfig, client *http.Client, limiter *rate.Limiter) *NewsAPICollector {
	if client == nil {
		client = http.DefaultClient
	}

	return &NewsAPICollector{cfg: cfg, httpClient: client, limiter: limiter}
}

func (c *NewsAPICollector) Name() string {
	return newsAPIName
}

func (c *NewsAPICollector) Collect(ctx context.Context) ([]domain.RawItem, error) {
	if c.cfg.APIKey == "" {
		return nil, errNoKey
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("newsapi rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create newsapi request: %w", err)
	}

	req.Header.Set(newsAPIAuthHeader, c.cfg.APIKey)
	req.Header.Set(headerUserAgent, defaultAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read newsapi response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errNewsAPIRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		if err := checkNewsAPIError(body); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %d", coreerrors.ErrHTTPStatus, resp.StatusCode)
	}

	return c.parseResponse(body)
}

func (c *NewsAPICollector) searchURL() string {
	params := url.Values{}
	params.Set("q", c.cfg.Query)
	params.Set("sortBy", "publishedAt")

	if c.cfg.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	}

	if c.cfg.Language != "" {
		params.Set("language", c.cfg.Language)
	}

	return c.cfg.BaseURL + "?" + params.Encode()
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"` //nolint:tagliatelle // NewsAPI uses camelCase
}

func (c *NewsAPICollector) parseResponse(body []byte) ([]domain.RawItem, error) {
	if err := checkNewsAPIError(body); err != nil {
		return nil, err
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse newsapi json: %w", err)
	}

	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: %s", errNewsAPIBadStatus, resp.Status)
	}

	items := make([]domain.RawItem, 0, len(resp.Articles))

	for _, a := range resp.Articles {
		if a.URL == "" {
			continue
		}

		source := a.Source.Name
		if source == "" {
			source = newsAPIName
		}

		items = append(items, domain.RawItem{
			Source:       source,
			Link:         a.URL,
			Title:        a.Title,
			Summary:      a.Description,
			Published:    a.PublishedAt,
			LocalLocale:  links.IsJapanese(a.Title),
			SourceWeight: c.cfg.Weight,
		})
	}

	return items, nil
}

type newsAPIErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func checkNewsAPIError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] != '{' && trimmed[0] != '[' {
		msg := string(trimmed)
		if len(msg) > newsAPIMaxErrorBody {
			msg = msg[:newsAPIMaxErrorBody] + "..."
		}

		return fmt.Errorf("%w: %s", errNewsAPIError, msg)
	}

	var errResp newsAPIErrorResponse
	if err := json.Unmarshal(trimmed, &errResp); err == nil && errResp.Status == "error" {
		return fmt.Errorf("%w: %s (%s)", errNewsAPIError, errResp.Message, errResp.Code)
	}

	return nil
}
