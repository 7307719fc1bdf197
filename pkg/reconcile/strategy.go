package reconcile

import (
	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/sources"
)

// Candidate is one source's proposed value for a single field.
type Candidate struct {
	Source    sources.ID
	ScrapedAt utc.Time
	Value     any
}

// Strategy resolves a single field from the candidate values offered by
// a cluster's member drafts. Candidates with unset values are filtered
// before Resolve is called. A nil return means no candidate won.
type Strategy interface {
	// Name identifies the strategy in provenance entries.
	Name() string
	// Resolve picks the winning candidate, or nil if none qualifies.
	Resolve(field string, candidates []Candidate) *Candidate
}

// SourceOrderStrategy resolves fields by walking a fixed priority list:
// the first source in the list with a value wins. When the same source
// offers multiple values, the most recently scraped one is taken.
// Sources absent from the list are consulted last, in input order.
type SourceOrderStrategy struct {
	priority []sources.ID
	rank     map[sources.ID]int
}

// NewSourceOrderStrategy creates a strategy over the given priority
// order. An empty order falls back to sources.DefaultPriority.
func NewSourceOrderStrategy(priority []sources.ID) *SourceOrderStrategy {
	if len(priority) == 0 {
		priority = sources.DefaultPriority()
	}
	rank := make(map[sources.ID]int, len(priority))
	for i, id := range priority {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	return &SourceOrderStrategy{priority: priority, rank: rank}
}

// Name implements Strategy.
func (s *SourceOrderStrategy) Name() string { return "source-order" }

// Priority returns the configured source order.
func (s *SourceOrderStrategy) Priority() []sources.ID {
	out := make([]sources.ID, len(s.priority))
	copy(out, s.priority)
	return out
}

// Resolve implements Strategy.
func (s *SourceOrderStrategy) Resolve(_ string, candidates []Candidate) *Candidate {
	var best *Candidate
	bestRank := -1
	for i := range candidates {
		c := &candidates[i]
		r, ok := s.rank[c.Source]
		if !ok {
			// Unranked sources lose to every ranked one but keep
			// their relative input order among themselves.
			r = len(s.rank) + i
		}
		switch {
		case best == nil, r < bestRank:
			best, bestRank = c, r
		case r == bestRank && c.ScrapedAt.After(best.ScrapedAt):
			best = c
		}
	}
	return best
}
