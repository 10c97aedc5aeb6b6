package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/platform/config"
)

// FeedCollector reads one RSS/Atom feed.
type FeedCollector struct {
	feed       config.Feed
	hint       domain.Topic
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
	parser     *gofeed.Parser
	userAgent  string
}

// NewFeedCollector creates a collector for feed. limiter may be shared between
// collectors and may be nil; limit caps the entries taken from the feed.
func NewFeedCollector(feed config.Feed, limit int, client *http.Client, limiter *rate.Limiter) *FeedCollector {
	if client == nil {
		client = http.DefaultClient
	}

	hint, _ := domain.ParseTopic(feed.TopicHint)

	return &FeedCollector{
		feed:       feed,
		hint:       hint,
		limit:      limit,
		httpClient: client,
		limiter:    limiter,
		parser:     gofeed.NewParser(),
		userAgent:  defaultAgent,
	}
}

func (c *FeedCollector) Name() string {
	return c.feed.Name
}

func (c *FeedCollector) Collect(ctx context.Context) ([]domain.RawItem, error) {
	feed, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	n := len(feed.Items)
	if c.limit > 0 && n > c.limit {
		n = c.limit
	}

	items := make([]domain.RawItem, 0, n)

	for _, it := range feed.Items[:n] {
		if it == nil {
			continue
		}

		items = append(items, domain.RawItem{
			Source:       c.feed.Name,
			Link:         it.Link,
			Title:        it.Title,
			Summary:      firstNonEmpty(it.Description, it.Content),
			Published:    firstNonEmpty(it.Published, it.Updated),
			LocalLocale:  c.feed.Local,
			SourceWeight: c.feed.Weight,
			TopicHint:    c.hint,
		})
	}

	return items, nil
}

func (c *FeedCollector) fetch(ctx context.Context) (*gofeed.Feed, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("feed rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	req.Header.Set(headerUserAgent, c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", coreerrors.ErrHTTPStatus, resp.StatusCode)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return feed, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
