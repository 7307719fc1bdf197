// Package validate enforces the business rules a normalized draft must
// satisfy before it may enter clustering. A failed rule is a rejection
// recorded for the audit trail, never a fatal pipeline error; only a
// draft missing its structural identity (no source tag) is treated as a
// hard failure.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/normalize"
)

// Rule names a single validation rule. Rule names appear verbatim in the
// audit log, so they are stable identifiers, not display text.
type Rule string

// Validation rules.
const (
	RuleCardNameMissing       Rule = "card_name_missing"
	RuleCardNameLength        Rule = "card_name_length"
	RuleCardNameCategoryLabel Rule = "card_name_category_label"
	RuleIssuerMissing         Rule = "issuer_missing"
	RuleIssuerUnknown         Rule = "issuer_unknown"
	RuleScrapedAtMissing      Rule = "scraped_at_missing"
	RuleNetworkUnknown        Rule = "network_unknown"
	RuleAnnualFeeRange        Rule = "annual_fee_range"
	RuleBonusAmountRange      Rule = "welcome_bonus_amount_range"
	RuleBonusSpendRange       Rule = "welcome_bonus_spend_range"
	RuleBonusDaysRange        Rule = "welcome_bonus_days_range"
	RuleBaseRateRange         Rule = "base_reward_rate_range"
	RuleCategoryRateRange     Rule = "category_reward_rate_range"
)

// Numeric field bounds, inclusive on both ends.
const (
	MaxAnnualFee    = 1000.0
	MaxBonusAmount  = 500000.0
	MaxBonusSpend   = 50000.0
	MaxBonusDays    = 365.0
	MaxBaseRate     = 10.0
	MaxCategoryRate = 25.0

	MinNameLength = 3
	MaxNameLength = 100
)

// categoryLabelPatterns match card names that are really category labels
// leaking out of aggregator listing pages ("Best for: cash back").
var categoryLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^best\s+for\b`),
	regexp.MustCompile(`(?i)^best\s+[\w\s-]*\bcards?\b`),
	regexp.MustCompile(`(?i)^top\s+\d*\s*[\w\s-]*\bcards?\b`),
	regexp.MustCompile(`(?i)\bcards?\s+of\s+\d{4}$`),
	regexp.MustCompile(`(?i)^compare\b`),
}

// Reason describes one failed rule with the offending raw value.
type Reason struct {
	Rule    Rule   `json:"rule" yaml:"rule"`
	Field   string `json:"field" yaml:"field"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Result is the validation outcome for one draft.
type Result struct {
	Draft   cards.Draft
	Reasons []Reason
}

// Valid reports whether the draft passed every rule.
func (r Result) Valid() bool {
	return len(r.Reasons) == 0
}

// Rules returns the names of the failed rules.
func (r Result) Rules() []string {
	out := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		out[i] = string(reason.Rule)
	}
	return out
}

// Validator checks drafts against the rule set. It consults the
// normalization tables for the canonical issuer and network sets and for
// the category vocabulary used by the name denylist.
type Validator struct {
	tables *normalize.Tables
}

// New creates a Validator over the given tables.
func New(tables *normalize.Tables) *Validator {
	return &Validator{tables: tables}
}

// Validate checks one normalized draft. The returned error is non-nil
// only for a structurally malformed draft (missing source tag), which
// indicates an adapter bug rather than bad source data.
func (v *Validator) Validate(d cards.Draft) (Result, error) {
	if d.Source == "" {
		return Result{}, &errors.StructuralError{
			Key:     d.Key,
			Message: "draft has no source tag",
		}
	}

	res := Result{Draft: d}
	v.checkName(&res, d)
	v.checkIssuer(&res, d)
	v.checkScrapedAt(&res, d)
	v.checkNetwork(&res, d)
	v.checkRanges(&res, d)
	return res, nil
}

func (v *Validator) checkName(res *Result, d cards.Draft) {
	name := d.Card.Name
	if name == "" {
		res.add(RuleCardNameMissing, "card_name", nil, "card name is required")
		return
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		res.add(RuleCardNameLength, "card_name", name,
			fmt.Sprintf("card name length %d outside [%d,%d]", n, MinNameLength, MaxNameLength))
	}
	if v.isCategoryLabel(name) {
		res.add(RuleCardNameCategoryLabel, "card_name", name, "card name is a category label")
	}
}

func (v *Validator) checkIssuer(res *Result, d cards.Draft) {
	if d.Card.Issuer == "" {
		res.add(RuleIssuerMissing, "issuer", nil, "issuer is required")
		return
	}
	if !v.tables.IsCanonicalIssuer(d.Card.Issuer) {
		res.add(RuleIssuerUnknown, "issuer", d.Card.Issuer, "issuer is not in the canonical issuer set")
	}
}

func (v *Validator) checkScrapedAt(res *Result, d cards.Draft) {
	if d.ScrapedAt.IsZero() {
		res.add(RuleScrapedAtMissing, "scraped_at", nil, "capture timestamp is required")
	}
}

func (v *Validator) checkNetwork(res *Result, d cards.Draft) {
	if d.Card.Network == "" {
		return
	}
	if !v.tables.IsCanonicalNetwork(d.Card.Network) {
		res.add(RuleNetworkUnknown, "network", d.Card.Network, "network is not one of the canonical networks")
	}
}

func (v *Validator) checkRanges(res *Result, d cards.Draft) {
	res.checkRange(RuleAnnualFeeRange, "annual_fee", d.Card.AnnualFee, MaxAnnualFee)
	res.checkRange(RuleBonusAmountRange, "welcome_bonus_amount", d.Card.WelcomeBonusAmount, MaxBonusAmount)
	res.checkRange(RuleBonusSpendRange, "welcome_bonus_spend_requirement", d.Card.WelcomeBonusSpendRequirement, MaxBonusSpend)
	res.checkRange(RuleBonusDaysRange, "welcome_bonus_time_limit_days", d.Card.WelcomeBonusTimeLimitDays, MaxBonusDays)
	res.checkRange(RuleBaseRateRange, "base_reward_rate", d.Card.BaseRewardRate, MaxBaseRate)

	for _, rc := range d.Card.RewardCategories {
		if rc.Rate < 0 || rc.Rate > MaxCategoryRate {
			res.add(RuleCategoryRateRange, "reward_categories."+rc.Name, rc.Rate,
				fmt.Sprintf("reward rate %g outside [0,%g]", rc.Rate, MaxCategoryRate))
		}
	}
}

// isCategoryLabel reports whether a name matches the denylist patterns
// or equals a known category spelling (raw or canonical). Listing names
// of the form "<category> rewards card(s)" count as labels too.
func (v *Validator) isCategoryLabel(name string) bool {
	for _, p := range categoryLabelPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	key := normalize.Key(name)
	if v.isCategoryKey(key) {
		return true
	}
	for _, suffix := range []string{" rewards cards", " rewards card"} {
		if rest, ok := strings.CutSuffix(key, suffix); ok && v.isCategoryKey(rest) {
			return true
		}
	}
	return false
}

func (v *Validator) isCategoryKey(key string) bool {
	if _, ok := v.tables.Categories[key]; ok {
		return true
	}
	for _, canonical := range v.tables.Categories {
		if key == normalize.Key(canonical) {
			return true
		}
	}
	return false
}

func (r *Result) add(rule Rule, field string, value any, message string) {
	r.Reasons = append(r.Reasons, Reason{Rule: rule, Field: field, Value: value, Message: message})
}

func (r *Result) checkRange(rule Rule, field string, v *float64, max float64) {
	if v == nil {
		return
	}
	if *v < 0 || *v > max {
		r.add(rule, field, *v, fmt.Sprintf("%s %g outside [0,%g]", field, *v, max))
	}
}
