// Package cards defines the unified card schema: the canonical card
// record produced by the reconciliation engine, the per-source draft
// preceding it, and the catalog collection exposed downstream.
package cards

import (
	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/sources"
)

// Card is one canonical credit-card record in the unified schema.
// Optional fields are pointers so that absence stays distinguishable
// from a true zero (a $0 annual fee is not an unknown annual fee).
// Cards are created only by the merger and never mutated afterwards.
type Card struct {
	// Core identity
	ID     CardID `json:"card_id" yaml:"card_id"`
	Name   string `json:"card_name" yaml:"card_name"`
	Issuer string `json:"issuer" yaml:"issuer"`

	// Canonical vocabulary fields
	Network        string `json:"network,omitempty" yaml:"network,omitempty"`
	RewardCurrency string `json:"reward_currency,omitempty" yaml:"reward_currency,omitempty"`

	// Fees and welcome bonus
	AnnualFee                    *float64 `json:"annual_fee,omitempty" yaml:"annual_fee,omitempty"`
	AnnualFeeWaived              *bool    `json:"annual_fee_waived,omitempty" yaml:"annual_fee_waived,omitempty"`
	WelcomeBonusAmount           *float64 `json:"welcome_bonus_amount,omitempty" yaml:"welcome_bonus_amount,omitempty"`
	WelcomeBonusSpendRequirement *float64 `json:"welcome_bonus_spend_requirement,omitempty" yaml:"welcome_bonus_spend_requirement,omitempty"`
	WelcomeBonusTimeLimitDays    *float64 `json:"welcome_bonus_time_limit_days,omitempty" yaml:"welcome_bonus_time_limit_days,omitempty"`
	WelcomeBonusValueUSD         *float64 `json:"welcome_bonus_value_usd,omitempty" yaml:"welcome_bonus_value_usd,omitempty"`

	// Rewards
	BaseRewardRate   *float64         `json:"base_reward_rate,omitempty" yaml:"base_reward_rate,omitempty"`
	RewardCategories []RewardCategory `json:"reward_categories,omitempty" yaml:"reward_categories,omitempty"`

	// Metadata
	OfferURL       string `json:"offer_url,omitempty" yaml:"offer_url,omitempty"`
	ImageURL       string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	IsBusiness     *bool  `json:"is_business,omitempty" yaml:"is_business,omitempty"`
	IsDiscontinued *bool  `json:"is_discontinued,omitempty" yaml:"is_discontinued,omitempty"`

	// Provenance: every source that contributed at least one retained
	// field, and the most recent contributing capture time. Field-level
	// provenance lives in the provenance tracker, keyed by card ID.
	Sources   []sources.ID `json:"sources,omitempty" yaml:"sources,omitempty"`
	ScrapedAt utc.Time     `json:"scraped_at" yaml:"scraped_at"`
}

// RewardCategory is one earning category of a card. Owned exclusively by
// its Card; never shared across cards.
type RewardCategory struct {
	Name      string   `json:"category_name" yaml:"category_name"`
	Rate      float64  `json:"reward_rate" yaml:"reward_rate"`
	Type      string   `json:"reward_type,omitempty" yaml:"reward_type,omitempty"`
	AnnualCap *float64 `json:"annual_cap,omitempty" yaml:"annual_cap,omitempty"`
	Details   string   `json:"details,omitempty" yaml:"details,omitempty"`
}

// HasSource reports whether the given source contributed to this card.
func (c *Card) HasSource(id sources.ID) bool {
	for _, s := range c.Sources {
		if s == id {
			return true
		}
	}
	return false
}

// Category returns the reward category with the given canonical name.
func (c *Card) Category(name string) (RewardCategory, bool) {
	for _, rc := range c.RewardCategories {
		if rc.Name == name {
			return rc, true
		}
	}
	return RewardCategory{}, false
}
