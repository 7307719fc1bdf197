package reconcile

import (
	"sort"

	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/cluster"
	"github.com/rewardsense/cardmap/pkg/provenance"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// fieldSpec describes one mergeable card field: how to read a set value
// out of a draft and how to write the winning value into the merged
// card. get returns false when the draft does not carry the field, so a
// lower-priority source can fill the gap. Pointer fields are set
// whenever the pointer is non-nil, which keeps explicit false and zero
// values distinct from absent ones.
type fieldSpec struct {
	name string
	get  func(*cards.Card) (any, bool)
	set  func(*cards.Card, any)
}

func strField(name string, get func(*cards.Card) *string) fieldSpec {
	return fieldSpec{
		name: name,
		get: func(c *cards.Card) (any, bool) {
			v := *get(c)
			return v, v != ""
		},
		set: func(c *cards.Card, v any) { *get(c) = v.(string) },
	}
}

func ptrField[T any](name string, get func(*cards.Card) **T) fieldSpec {
	return fieldSpec{
		name: name,
		get: func(c *cards.Card) (any, bool) {
			p := *get(c)
			if p == nil {
				return nil, false
			}
			return *p, true
		},
		set: func(c *cards.Card, v any) {
			val := v.(T)
			*get(c) = &val
		},
	}
}

// mergeFields is the complete set of scalar fields subject to
// per-field source fallback. RewardCategories and Sources merge by
// union and are handled separately.
var mergeFields = []fieldSpec{
	strField("name", func(c *cards.Card) *string { return &c.Name }),
	strField("issuer", func(c *cards.Card) *string { return &c.Issuer }),
	strField("network", func(c *cards.Card) *string { return &c.Network }),
	strField("reward_currency", func(c *cards.Card) *string { return &c.RewardCurrency }),
	ptrField("annual_fee", func(c *cards.Card) **float64 { return &c.AnnualFee }),
	ptrField("annual_fee_waived", func(c *cards.Card) **bool { return &c.AnnualFeeWaived }),
	ptrField("welcome_bonus_amount", func(c *cards.Card) **float64 { return &c.WelcomeBonusAmount }),
	ptrField("welcome_bonus_spend_requirement", func(c *cards.Card) **float64 { return &c.WelcomeBonusSpendRequirement }),
	ptrField("welcome_bonus_time_limit_days", func(c *cards.Card) **float64 { return &c.WelcomeBonusTimeLimitDays }),
	ptrField("welcome_bonus_value_usd", func(c *cards.Card) **float64 { return &c.WelcomeBonusValueUSD }),
	ptrField("base_reward_rate", func(c *cards.Card) **float64 { return &c.BaseRewardRate }),
	strField("offer_url", func(c *cards.Card) *string { return &c.OfferURL }),
	strField("image_url", func(c *cards.Card) *string { return &c.ImageURL }),
	ptrField("is_business", func(c *cards.Card) **bool { return &c.IsBusiness }),
	ptrField("is_discontinued", func(c *cards.Card) **bool { return &c.IsDiscontinued }),
}

// fieldWinner pairs a resolved field with its winning candidate.
type fieldWinner struct {
	field string
	c     Candidate
}

// Merger folds a cluster of drafts into one canonical card, resolving
// every field independently through the configured strategy and
// recording where each winning value came from.
type Merger struct {
	strategy Strategy
	tracker  provenance.Tracker
}

// NewMerger creates a merger. A nil tracker disables provenance.
func NewMerger(strategy Strategy, tracker provenance.Tracker) *Merger {
	if tracker == nil {
		tracker = provenance.NewTracker(false)
	}
	return &Merger{strategy: strategy, tracker: tracker}
}

// Merge produces the canonical card for one cluster. The card ID is
// minted from the resolved name and issuer, so duplicate drafts that
// clustered together always collapse to a single identity.
func (m *Merger) Merge(cl cluster.Cluster) cards.Card {
	var out cards.Card
	drafts := cl.Drafts

	// Winners are buffered because the provenance key needs the card
	// ID, which is minted from the resolved name and issuer.
	winners := make([]fieldWinner, 0, len(mergeFields))

	for _, f := range mergeFields {
		candidates := make([]Candidate, 0, len(drafts))
		for i := range drafts {
			d := &drafts[i]
			if v, ok := f.get(&d.Card); ok {
				candidates = append(candidates, Candidate{
					Source:    d.Source,
					ScrapedAt: d.ScrapedAt,
					Value:     v,
				})
			}
		}
		win := m.strategy.Resolve(f.name, candidates)
		if win == nil {
			continue
		}
		f.set(&out, win.Value)
		winners = append(winners, fieldWinner{field: f.name, c: *win})
	}

	out.RewardCategories = m.mergeCategories(drafts, &winners)
	out.Sources = contributingSources(drafts)
	for i := range drafts {
		if drafts[i].ScrapedAt.After(out.ScrapedAt) {
			out.ScrapedAt = drafts[i].ScrapedAt
		}
	}
	out.ID = cards.NewCardID(out.Name, out.Issuer)

	for _, w := range winners {
		m.tracker.Track(out.ID, w.field, provenance.Provenance{
			Source:    w.c.Source,
			Field:     w.field,
			Value:     w.c.Value,
			ScrapedAt: w.c.ScrapedAt,
			Reason:    m.strategy.Name(),
		})
	}
	return out
}

// mergeCategories unions reward categories across drafts by category
// name. When multiple sources report the same category the strategy
// picks whose rate wins, same as any scalar field.
func (m *Merger) mergeCategories(drafts []cards.Draft, winners *[]fieldWinner) []cards.RewardCategory {
	entries := make(map[string][]Candidate)
	for i := range drafts {
		d := &drafts[i]
		for _, cat := range d.Card.RewardCategories {
			// The full category rides along in Value so the winning
			// candidate identifies its own RewardCategory even when
			// one source contributed several captures.
			entries[cat.Name] = append(entries[cat.Name], Candidate{
				Source:    d.Source,
				ScrapedAt: d.ScrapedAt,
				Value:     cat,
			})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	out := make([]cards.RewardCategory, 0, len(entries))
	for name, candidates := range entries {
		field := "reward_categories." + name
		win := m.strategy.Resolve(field, candidates)
		if win == nil {
			continue
		}
		cat := win.Value.(cards.RewardCategory)
		out = append(out, cat)
		*winners = append(*winners, fieldWinner{field: field, c: Candidate{
			Source:    win.Source,
			ScrapedAt: win.ScrapedAt,
			Value:     cat.Rate,
		}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// contributingSources lists each member source once, in input order.
func contributingSources(drafts []cards.Draft) []sources.ID {
	seen := make(map[sources.ID]bool, len(drafts))
	var out []sources.ID
	for i := range drafts {
		if id := drafts[i].Source; !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
