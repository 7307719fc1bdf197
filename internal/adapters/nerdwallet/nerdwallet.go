// Package nerdwallet converts NerdWallet listing-page scrape dumps into
// source records. Coverage is thin and noisy: issuer is often missing
// and listing headers like "Best Travel Cards" leak in as card names,
// so downstream validation does the filtering, not this adapter.
package nerdwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// Client fetches the NerdWallet listings dump.
type Client struct {
	url string
	hc  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets the dump URL.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New creates a NerdWallet listings client.
func New(opts ...Option) *Client {
	c := &Client{hc: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID implements sources.Source.
func (c *Client) ID() sources.ID { return sources.NerdWalletID }

// Fetch implements sources.Source.
func (c *Client) Fetch(ctx context.Context) ([]sources.Record, error) {
	if c.url == "" {
		return nil, errors.New("nerdwallet: no feed url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.WrapIO("request", c.url, err)
	}
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

// listingRow mirrors the listing scrape's output shape.
type listingRow struct {
	Name            string   `json:"name"`
	Issuer          string   `json:"issuer"`
	AnnualFee       *float64 `json:"annual_fee"`
	BaseRewardRate  *float64 `json:"base_reward_rate"`
	ListingCategory string   `json:"listing_category"`
	RewardTiers     []string `json:"reward_tiers"`
	APR             string   `json:"apr"`
	ScrapedAt       string   `json:"scraped_at"`
}

// Parse decodes the listings dump into source records.
func Parse(r io.Reader, fallback utc.Time) ([]sources.Record, error) {
	var rows []listingRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.WrapParse("json", "nerdwallet dump", err)
	}

	records := make([]sources.Record, 0, len(rows))
	var errs []error
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			errs = append(errs, errors.NewStructuralError(
				sources.NerdWalletID.String(),
				fmt.Sprintf("index %d", i), "row has no card name", nil))
			continue
		}
		at := fallback
		if row.ScrapedAt != "" {
			if t, err := time.Parse(time.RFC3339, row.ScrapedAt); err == nil {
				at = utc.Time{Time: t.UTC()}
			}
		}
		records = append(records, &sources.NerdWalletRecord{
			Name:            row.Name,
			Issuer:          row.Issuer,
			AnnualFee:       row.AnnualFee,
			BaseRewardRate:  row.BaseRewardRate,
			ListingCategory: row.ListingCategory,
			RewardTiers:     row.RewardTiers,
			APR:             row.APR,
			At:              at,
		})
	}
	return records, errors.Join(errs...)
}
