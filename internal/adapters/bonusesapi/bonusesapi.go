// Package bonusesapi fetches the creditcard-bonuses-api export feed and
// converts it into source records. The feed is the highest-priority
// source: structured, versioned, and already keyed by card.
package bonusesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// DefaultURL is the published JSON export of the bonuses API project.
const DefaultURL = "https://raw.githubusercontent.com/andenacitelli/credit-card-bonuses-api/main/exports/data.json"

// Client fetches and parses the bonuses API export.
type Client struct {
	url string
	hc  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the export URL.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New creates a client for the bonuses API export.
func New(opts ...Option) *Client {
	c := &Client{
		url: DefaultURL,
		hc:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID implements sources.Source.
func (c *Client) ID() sources.ID { return sources.CreditCardBonusesID }

// Fetch implements sources.Source. Records that parsed cleanly are
// returned even when others in the feed did not.
func (c *Client) Fetch(ctx context.Context) ([]sources.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.WrapIO("request", c.url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.WrapIO("fetch", c.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapIO("fetch", c.url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return Parse(resp.Body, utc.Now())
}

// apiCard mirrors the export's JSON shape. Offer amounts are nested
// one level deep because some offers pay out in multiple currencies.
type apiCard struct {
	CardID                   string     `json:"cardId"`
	Name                     string     `json:"name"`
	Issuer                   string     `json:"issuer"`
	Network                  string     `json:"network"`
	Currency                 string     `json:"currency"`
	IsBusiness               *bool      `json:"isBusiness"`
	AnnualFee                *float64   `json:"annualFee"`
	IsAnnualFeeWaived        *bool      `json:"isAnnualFeeWaived"`
	UniversalCashbackPercent *float64   `json:"universalCashbackPercent"`
	URL                      string     `json:"url"`
	ImageURL                 string     `json:"imageUrl"`
	Discontinued             *bool      `json:"discontinued"`
	Offers                   []apiOffer `json:"offers"`
	HistoricalOffers         []apiOffer `json:"historicalOffers"`
	Credits                  []struct {
		Description string  `json:"description"`
		Value       float64 `json:"value"`
	} `json:"credits"`
}

type apiOffer struct {
	Amount []struct {
		Amount float64 `json:"amount"`
	} `json:"amount"`
	Spend float64 `json:"spend"`
	Days  float64 `json:"days"`
}

// Parse decodes the export JSON into source records. fetchedAt stamps
// every record; the export itself carries no timestamps.
func Parse(r io.Reader, fetchedAt utc.Time) ([]sources.Record, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.WrapParse("json", "bonuses api export", err)
	}

	records := make([]sources.Record, 0, len(raw))
	var errs []error
	for i, msg := range raw {
		var ac apiCard
		if err := json.Unmarshal(msg, &ac); err != nil {
			errs = append(errs, errors.NewStructuralError(
				sources.CreditCardBonusesID.String(),
				fmt.Sprintf("index %d", i),
				"malformed card entry", err))
			continue
		}
		if ac.CardID == "" && ac.Name == "" {
			errs = append(errs, errors.NewStructuralError(
				sources.CreditCardBonusesID.String(),
				fmt.Sprintf("index %d", i),
				"entry has neither cardId nor name", nil))
			continue
		}
		records = append(records, convert(&ac, fetchedAt))
	}
	return records, errors.Join(errs...)
}

func convert(ac *apiCard, fetchedAt utc.Time) *sources.BonusesAPIRecord {
	rec := &sources.BonusesAPIRecord{
		CardKey:                  ac.CardID,
		Name:                     ac.Name,
		Issuer:                   ac.Issuer,
		Network:                  ac.Network,
		Currency:                 ac.Currency,
		IsBusiness:               ac.IsBusiness,
		AnnualFee:                ac.AnnualFee,
		AnnualFeeWaived:          ac.IsAnnualFeeWaived,
		UniversalCashbackPercent: ac.UniversalCashbackPercent,
		OfferURL:                 ac.URL,
		ImageURL:                 ac.ImageURL,
		Discontinued:             ac.Discontinued,
		Offers:                   convertOffers(ac.Offers),
		HistoricalOffers:         convertOffers(ac.HistoricalOffers),
		FetchedAt:                fetchedAt,
	}
	for _, cr := range ac.Credits {
		rec.Credits = append(rec.Credits, sources.StatementCredit{
			Description: cr.Description,
			Value:       cr.Value,
		})
	}
	return rec
}

// convertOffers flattens the nested amount list. Multi-currency offers
// keep only the first amount, which the export lists as primary.
func convertOffers(offers []apiOffer) []sources.BonusOffer {
	if len(offers) == 0 {
		return nil
	}
	out := make([]sources.BonusOffer, 0, len(offers))
	for _, o := range offers {
		bo := sources.BonusOffer{Spend: o.Spend, Days: o.Days}
		if len(o.Amount) > 0 {
			bo.Amount = o.Amount[0].Amount
		}
		out = append(out, bo)
	}
	return out
}
