package normalize

import (
	"sort"
	"strings"

	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// Normalizer turns one raw source record into one normalized card draft.
// It applies the normalization tables and nothing else: numeric fields
// arrive already coerced by the adapters, and fields the source does not
// carry stay unset on the draft.
type Normalizer struct {
	tables *Tables
}

// New creates a Normalizer over the given tables.
func New(tables *Tables) *Normalizer {
	return &Normalizer{tables: tables}
}

// Draft normalizes a single record. The returned draft may carry
// unnormalized-field flags; those are normalization gaps for the audit
// log, not errors. An error is returned only for a record variant this
// engine does not know, which cannot happen for records built by the
// adapters in this module.
func (n *Normalizer) Draft(rec sources.Record) (cards.Draft, error) {
	switch r := rec.(type) {
	case *sources.BonusesAPIRecord:
		return n.apiDraft(r), nil
	case *sources.IssuerScrapeRecord:
		return n.scrapeDraft(r), nil
	case *sources.NerdWalletRecord:
		return n.nerdwalletDraft(r), nil
	default:
		return cards.Draft{}, &errors.StructuralError{
			Source:  rec.Source().String(),
			Key:     rec.Key(),
			Message: "unknown record variant",
		}
	}
}

func (n *Normalizer) apiDraft(r *sources.BonusesAPIRecord) cards.Draft {
	d := n.newDraft(r, r.Name, r.Issuer)

	d.Card.Network = n.label(&d, "network", r.Network, n.tables.Networks)
	d.Card.RewardCurrency = n.label(&d, "reward_currency", r.Currency, n.tables.Currencies)

	d.Card.AnnualFee = r.AnnualFee
	d.Card.AnnualFeeWaived = r.AnnualFeeWaived
	d.Card.IsBusiness = r.IsBusiness
	d.Card.IsDiscontinued = r.Discontinued
	d.Card.BaseRewardRate = r.UniversalCashbackPercent
	d.Card.OfferURL = r.OfferURL
	d.Card.ImageURL = r.ImageURL

	if best := bestOffer(r); best != nil {
		if best.Amount > 0 {
			d.Card.WelcomeBonusAmount = ptr(best.Amount)
		}
		if best.Spend > 0 {
			d.Card.WelcomeBonusSpendRequirement = ptr(best.Spend)
		}
		if best.Days > 0 {
			d.Card.WelcomeBonusTimeLimitDays = ptr(best.Days)
		}
	}

	return d
}

func (n *Normalizer) scrapeDraft(r *sources.IssuerScrapeRecord) cards.Draft {
	d := n.newDraft(r, r.Name, r.Issuer)

	d.Card.AnnualFee = r.AnnualFee
	d.Card.WelcomeBonusAmount = r.BonusAmount
	d.Card.WelcomeBonusSpendRequirement = r.BonusSpend
	d.Card.WelcomeBonusTimeLimitDays = r.BonusDays
	d.Card.WelcomeBonusValueUSD = r.BonusValueUSD
	d.Card.OfferURL = r.OfferURL
	d.Card.ImageURL = r.ImageURL

	d.Card.RewardCategories = n.categories(&d, r.RewardRates)

	return d
}

func (n *Normalizer) nerdwalletDraft(r *sources.NerdWalletRecord) cards.Draft {
	d := n.newDraft(r, r.Name, r.Issuer)

	d.Card.AnnualFee = r.AnnualFee
	d.Card.BaseRewardRate = r.BaseRewardRate

	return d
}

// newDraft builds the draft skeleton shared by every variant: source
// tag, audit key, capture time, normalized name and issuer, match keys.
func (n *Normalizer) newDraft(rec sources.Record, name, issuer string) cards.Draft {
	d := cards.Draft{
		Source:    rec.Source(),
		Key:       rec.Key(),
		ScrapedAt: rec.ScrapedAt(),
	}

	d.Card.Name = collapse(name)
	d.NameKey = MatchKey(name)

	if issuer != "" {
		if canonical, ok := n.tables.Issuers.Lookup(issuer); ok {
			d.Card.Issuer = canonical
		} else {
			// Passthrough, flagged for audit. Never discarded: a raw
			// issuer the tables don't know may still be real.
			d.Card.Issuer = issuer
			d.Unnormalized = append(d.Unnormalized, cards.FieldFlag{Field: "issuer", Raw: issuer})
		}
		d.IssuerKey = Key(d.Card.Issuer)
	}

	d.Card.Sources = []sources.ID{rec.Source()}
	d.Card.ScrapedAt = rec.ScrapedAt()
	return d
}

// label resolves one vocabulary field through a table, passing unmatched
// raw values through unchanged with an audit flag.
func (n *Normalizer) label(d *cards.Draft, field, raw string, table Table) string {
	if raw == "" {
		return ""
	}
	if canonical, ok := table.Lookup(raw); ok {
		return canonical
	}
	d.Unnormalized = append(d.Unnormalized, cards.FieldFlag{Field: field, Raw: raw})
	return raw
}

// categories normalizes a scraped reward-rate map element-wise. Unknown
// category labels fall back to a passthrough slug rather than being
// dropped. Output order is deterministic.
func (n *Normalizer) categories(d *cards.Draft, rates map[string]sources.ScrapedRate) []cards.RewardCategory {
	if len(rates) == 0 {
		return nil
	}

	out := make([]cards.RewardCategory, 0, len(rates))
	for raw, rate := range rates {
		name, ok := n.tables.Categories.Lookup(raw)
		if !ok {
			name = Slug(raw)
			d.Unnormalized = append(d.Unnormalized, cards.FieldFlag{Field: "category", Raw: raw})
		}

		rc := cards.RewardCategory{
			Name: name,
			Rate: rate.Rate,
		}
		if currency, ok := n.tables.Currencies.Lookup(rate.Type); ok {
			rc.Type = currency
		} else {
			rc.Type = rate.Type
		}
		out = append(out, rc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// bestOffer picks the most valuable welcome offer from the API export,
// falling back to historical offers: highest amount/spend ratio first,
// then highest amount, then shortest window.
func bestOffer(r *sources.BonusesAPIRecord) *sources.BonusOffer {
	offers := r.Offers
	if len(offers) == 0 {
		offers = r.HistoricalOffers
	}
	if len(offers) == 0 {
		return nil
	}

	best := -1
	var bestRatio, bestAmount, bestDays float64
	for i, o := range offers {
		ratio := 0.0
		if o.Spend > 0 {
			ratio = o.Amount / o.Spend
		}
		if best < 0 ||
			ratio > bestRatio ||
			(ratio == bestRatio && o.Amount > bestAmount) ||
			(ratio == bestRatio && o.Amount == bestAmount && o.Days < bestDays) {
			best = i
			bestRatio, bestAmount, bestDays = ratio, o.Amount, o.Days
		}
	}
	return &offers[best]
}

// MatchKey returns the clustering key form of a card name: lower-cased
// with whitespace collapsed. Punctuation is kept; "Freedom Flex" and
// "Freedom-Flex" are close enough for the fuzzy pass to handle.
func MatchKey(name string) string {
	return strings.ToLower(collapse(name))
}

// collapse trims and collapses all interior whitespace runs to single
// spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func ptr[T any](v T) *T { return &v }
