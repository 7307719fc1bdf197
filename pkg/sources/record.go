package sources

import (
	"github.com/agentstation/utc"
)

// Record is a raw per-source card record, immutable once produced by an
// adapter. The set of implementations is closed: one variant per source
// schema, so consumers can type-switch exhaustively instead of probing a
// field bag. Values are already coerced to primitive types by the
// adapter; absence is expressed with nil pointers, never zero values.
type Record interface {
	// Source returns the source tag of this record
	Source() ID

	// Key returns the source-native id or name identifying the record
	Key() string

	// ScrapedAt returns when the record was captured
	ScrapedAt() utc.Time

	// record seals the interface to this package's variants
	record()
}

// BonusOffer is one welcome-bonus offer from the CreditCardBonuses API
// export (current or historical).
type BonusOffer struct {
	Amount float64 `json:"amount"`
	Spend  float64 `json:"spend"`
	Days   float64 `json:"days"`
}

// StatementCredit is a recurring credit attached to an API card record.
type StatementCredit struct {
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
}

// BonusesAPIRecord is the CreditCardBonuses API export variant. It is
// the only source with full field coverage, including network and
// reward-currency codes.
type BonusesAPIRecord struct {
	CardKey                  string // upstream cardId
	Name                     string
	Issuer                   string // upper-snake spelling, e.g. "AMERICAN_EXPRESS"
	Network                  string
	Currency                 string
	IsBusiness               *bool
	AnnualFee                *float64
	AnnualFeeWaived          *bool
	UniversalCashbackPercent *float64
	OfferURL                 string
	ImageURL                 string
	Discontinued             *bool
	Offers                   []BonusOffer
	HistoricalOffers         []BonusOffer
	Credits                  []StatementCredit
	FetchedAt                utc.Time
}

// Source returns the source tag of this record.
func (r *BonusesAPIRecord) Source() ID { return CreditCardBonusesID }

// Key returns the upstream cardId, falling back to the card name.
func (r *BonusesAPIRecord) Key() string {
	if r.CardKey != "" {
		return r.CardKey
	}
	return r.Name
}

// ScrapedAt returns when the export was fetched.
func (r *BonusesAPIRecord) ScrapedAt() utc.Time { return r.FetchedAt }

func (r *BonusesAPIRecord) record() {}

// ScrapedRate is one reward rate extracted from issuer page text.
type ScrapedRate struct {
	Rate float64 // multiplier or percent, as printed
	Type string  // "cashback" or "points", as detected by the scraper
}

// IssuerScrapeRecord is the variant shared by the Chase and Discover
// issuer-site scrapers, which emit the same shape.
type IssuerScrapeRecord struct {
	From          ID // ChaseID or DiscoverID
	Name          string
	Issuer        string
	AnnualFee     *float64
	WelcomeBonus  string // raw bonus text, e.g. "60,000 points"
	BonusAmount   *float64
	BonusSpend    *float64
	BonusDays     *float64
	BonusValueUSD *float64
	RewardRates   map[string]ScrapedRate // raw category -> rate
	OfferURL      string
	ImageURL      string
	At            utc.Time
}

// Source returns the source tag of this record.
func (r *IssuerScrapeRecord) Source() ID { return r.From }

// Key returns the scraped card name.
func (r *IssuerScrapeRecord) Key() string { return r.Name }

// ScrapedAt returns when the page was scraped.
func (r *IssuerScrapeRecord) ScrapedAt() utc.Time { return r.At }

func (r *IssuerScrapeRecord) record() {}

// NerdWalletRecord is the NerdWallet aggregator variant. Coverage is the
// thinnest of the four sources; issuer is frequently missing and names
// are sometimes category labels rather than card names.
type NerdWalletRecord struct {
	Name            string
	Issuer          string
	AnnualFee       *float64
	BaseRewardRate  *float64
	ListingCategory string   // listing page context, e.g. "travel"
	RewardTiers     []string // raw reward tier text
	APR             string
	At              utc.Time
}

// Source returns the source tag of this record.
func (r *NerdWalletRecord) Source() ID { return NerdWalletID }

// Key returns the listed card name.
func (r *NerdWalletRecord) Key() string { return r.Name }

// ScrapedAt returns when the listing was scraped.
func (r *NerdWalletRecord) ScrapedAt() utc.Time { return r.At }

func (r *NerdWalletRecord) record() {}
