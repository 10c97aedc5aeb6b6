package brief

import (
	"sort"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

// Select picks up to n diverse main candidates and at most one secondary
// candidate of secondaryTopic from pool.
//
// The main set prefers pairwise-distinct hosts and topics. When the pool cannot
// satisfy that, the remainder is backfilled in score order without diversity
// constraints. pool is not modified.
func Select(pool []domain.ScoredCandidate, n int, secondaryTopic domain.Topic) domain.Selection {
	sorted := make([]domain.ScoredCandidate, len(pool))
	copy(sorted, pool)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	decisions := make([]string, len(sorted))

	var sel domain.Selection

	secondaryURL := ""

	if secondaryTopic != "" {
		for i, c := range sorted {
			if c.Topic == secondaryTopic {
				picked := c
				sel.Secondary = &picked
				secondaryURL = c.URL
				decisions[i] = domain.DecisionSecondary

				break
			}
		}
	}

	if n < 0 {
		n = 0
	}

	accepted := make(map[string]bool, n)
	usedHosts := make(map[string]bool, n)
	usedTopics := make(map[domain.Topic]bool, n)
	mainIdx := make([]int, 0, n)

	for i, c := range sorted {
		if len(mainIdx) >= n {
			break
		}

		if secondaryURL != "" && c.URL == secondaryURL {
			continue
		}

		switch {
		case usedHosts[c.Host]:
			decisions[i] = domain.DecisionHostUsed
		case usedTopics[c.Topic]:
			decisions[i] = domain.DecisionTopicUsed
		default:
			decisions[i] = domain.DecisionMain
			accepted[c.URL] = true
			usedHosts[c.Host] = true
			usedTopics[c.Topic] = true
			mainIdx = append(mainIdx, i)
		}
	}

	for i, c := range sorted {
		if len(mainIdx) >= n {
			break
		}

		if (secondaryURL != "" && c.URL == secondaryURL) || accepted[c.URL] {
			continue
		}

		decisions[i] = domain.DecisionBackfill
		accepted[c.URL] = true
		mainIdx = append(mainIdx, i)
	}

	// Backfilled members keep their score order relative to the diverse ones.
	sort.Ints(mainIdx)

	sel.Main = make([]domain.ScoredCandidate, 0, len(mainIdx))
	for _, i := range mainIdx {
		sel.Main = append(sel.Main, sorted[i])
	}

	sel.Trace = make([]domain.SelectionStep, 0, len(sorted))

	for i, c := range sorted {
		decision := decisions[i]
		if decision == "" {
			decision = domain.DecisionNotSelected
		}

		sel.Trace = append(sel.Trace, domain.SelectionStep{
			URL:      c.URL,
			Host:     c.Host,
			Topic:    c.Topic,
			Score:    c.Score,
			Decision: decision,
		})
	}

	return sel
}
