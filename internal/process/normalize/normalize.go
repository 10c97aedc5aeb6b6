// Package normalize turns collector output into candidates: canonical URLs,
// host allow-list enforcement, AI relevance, markup-free text and
// deduplication.
package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/core/links"
	"github.com/lueurxax/impact-brief/internal/platform/htmlutils"
	"github.com/lueurxax/impact-brief/internal/process/classify"
)

// Drop reasons reported in Stats.
const (
	DropMissingURL   = "missing_url"
	DropMissingTitle = "missing_title"
	DropHostDenied   = "host_not_allowed"
	DropNotAIRelated = "not_ai_related"
	DropDuplicate    = "duplicate"
	DropOverCap      = "over_cap"
)

// Stats summarizes one NormalizeAll pass.
type Stats struct {
	Input   int
	Kept    int
	Dropped map[string]int
}

// Discarded is the total number of dropped items.
func (s Stats) Discarded() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}

	return n
}

// Normalizer converts raw items into candidates.
type Normalizer struct {
	allow *links.AllowList
}

// New creates a Normalizer that keeps only hosts accepted by allow.
func New(allow *links.AllowList) *Normalizer {
	return &Normalizer{allow: allow}
}

// Normalize returns the candidate for raw, or a drop reason when the item is
// discarded. Discarding is not an error.
func (n *Normalizer) Normalize(raw domain.RawItem) (domain.Candidate, string) {
	canonical := links.Canonicalize(raw.Link)
	if canonical == "" {
		return domain.Candidate{}, DropMissingURL
	}

	title := htmlutils.Clean(raw.Title)
	if title == "" {
		return domain.Candidate{}, DropMissingTitle
	}

	host := links.Host(canonical)
	if !n.allow.Allows(host) {
		return domain.Candidate{}, DropHostDenied
	}

	summary := htmlutils.Clean(raw.Summary)
	if !classify.IsAIRelated(title, summary) {
		return domain.Candidate{}, DropNotAIRelated
	}

	return domain.Candidate{
		URL:          canonical,
		Host:         host,
		Title:        title,
		Summary:      htmlutils.Truncate(summary, domain.SummaryCap),
		Source:       strings.TrimSpace(raw.Source),
		PublishedAt:  parsePublished(raw.Published),
		LocalLocale:  raw.LocalLocale,
		SourceWeight: raw.SourceWeight,
		TopicHint:    raw.TopicHint,
	}, ""
}

// NormalizeAll normalizes raws in order, keeps the first occurrence of each
// canonical URL and stops accepting after limit candidates (limit <= 0 means
// no limit).
func (n *Normalizer) NormalizeAll(raws []domain.RawItem, limit int) ([]domain.Candidate, Stats) {
	stats := Stats{Input: len(raws), Dropped: make(map[string]int)}
	seen := make(map[string]bool, len(raws))
	out := make([]domain.Candidate, 0, len(raws))

	for _, raw := range raws {
		c, reason := n.Normalize(raw)
		if reason != "" {
			stats.Dropped[reason]++
			continue
		}

		if seen[c.URL] {
			stats.Dropped[DropDuplicate]++
			continue
		}

		if limit > 0 && len(out) >= limit {
			stats.Dropped[DropOverCap]++
			continue
		}

		seen[c.URL] = true
		out = append(out, c)
	}

	stats.Kept = len(out)

	return out, stats
}

func parsePublished(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}

	return t.UTC()
}
