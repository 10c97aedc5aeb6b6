package brief

import (
	"time"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	"github.com/lueurxax/impact-brief/internal/core/llm"
)

// Version tags identify how a payload was produced.
const (
	VersionEnriched = "impact-brief/1 enriched"
	VersionFallback = "impact-brief/1 fallback"
	VersionError    = "impact-brief/1 error"
)

const dateLayout = "2006-01-02"

// Meta carries the generation metadata of a payload.
type Meta struct {
	Now      time.Time
	Location *time.Location
	RunID    string
}

// Compose turns a selection and an enrichment result into brief items.
// Without enrichment every item is synthesized. With enrichment, a selected
// secondary the result does not cover is synthesized as well.
func Compose(sel domain.Selection, res llm.Result) (main, secondary []domain.BriefItem, version string) {
	secondary = []domain.BriefItem{}

	if res.Available() && len(res.Main) == len(sel.Main) {
		main = append([]domain.BriefItem{}, res.Main...)
		version = VersionEnriched

		if sel.Secondary != nil {
			if res.Secondary != nil {
				secondary = append(secondary, *res.Secondary)
			} else {
				secondary = append(secondary, Synthesize(*sel.Secondary, true))
			}
		}

		return main, secondary, version
	}

	main = make([]domain.BriefItem, 0, len(sel.Main))
	for _, c := range sel.Main {
		main = append(main, Synthesize(c, false))
	}

	if sel.Secondary != nil {
		secondary = append(secondary, Synthesize(*sel.Secondary, true))
	}

	return main, secondary, VersionFallback
}

// Assemble builds the payload for the given items.
func Assemble(main, secondary []domain.BriefItem, version string, meta Meta) domain.Payload {
	loc := meta.Location
	if loc == nil {
		loc = time.UTC
	}

	now := meta.Now.In(loc)

	if main == nil {
		main = []domain.BriefItem{}
	}

	if secondary == nil {
		secondary = []domain.BriefItem{}
	}

	return domain.Payload{
		Date:           now.Format(dateLayout),
		MainItems:      main,
		SecondaryItems: secondary,
		Sources:        Sources(main, secondary),
		GeneratedAt:    now.Format(time.RFC3339),
		Version:        version,
		RunID:          meta.RunID,
	}
}

// EmptyPayload is the well-formed payload returned after an internal failure.
func EmptyPayload(meta Meta) domain.Payload {
	return Assemble(nil, nil, VersionError, meta)
}

// Sources lists the distinct source names of the items in order of first
// appearance.
func Sources(groups ...[]domain.BriefItem) []string {
	seen := make(map[string]bool)
	out := []string{}

	for _, items := range groups {
		for _, it := range items {
			if it.Source == "" || seen[it.Source] {
				continue
			}

			seen[it.Source] = true
			out = append(out, it.Source)
		}
	}

	return out
}
