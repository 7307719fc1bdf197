// Package issuerscrape converts issuer-site scrape dumps (Chase,
// Discover) into source records. The scrape jobs emit one JSON array
// per issuer; card fields arrive as display text, so the bonus line is
// decomposed here into amount, spend requirement, and window.
package issuerscrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// PointValueUSD is the flat planning value of one point or mile, in
// dollars. Transferable currencies trade above this and fixed-value
// ones below; the flat rate keeps cross-source bonus values comparable.
const PointValueUSD = 0.015

// Feed fetches one issuer's scrape dump.
type Feed struct {
	id  sources.ID
	url string
	hc  *http.Client
}

// Option configures a Feed.
type Option func(*Feed)

// WithURL sets the dump URL.
func WithURL(url string) Option {
	return func(f *Feed) { f.url = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Feed) { f.hc = hc }
}

// New creates a feed for the given issuer scrape source. id must be
// sources.ChaseID or sources.DiscoverID.
func New(id sources.ID, opts ...Option) (*Feed, error) {
	if id != sources.ChaseID && id != sources.DiscoverID {
		return nil, errors.New("issuerscrape: unsupported source " + id.String())
	}
	f := &Feed{
		id: id,
		hc: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ID implements sources.Source.
func (f *Feed) ID() sources.ID { return f.id }

// Fetch implements sources.Source.
func (f *Feed) Fetch(ctx context.Context) ([]sources.Record, error) {
	if f.url == "" {
		return nil, errors.New("issuerscrape: no feed url configured for " + f.id.String())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, errors.WrapIO("request", f.url, err)
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, errors.WrapIO("fetch", f.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapIO("fetch", f.url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return Parse(f.id, resp.Body, utc.Now())
}

// scrapeRow mirrors the scrape job's output shape.
type scrapeRow struct {
	Name         string   `json:"name"`
	Issuer       string   `json:"issuer"`
	AnnualFee    *float64 `json:"annual_fee"`
	WelcomeBonus string   `json:"welcome_bonus"`
	RewardRates  map[string]struct {
		Rate float64 `json:"rate"`
		Type string  `json:"type"`
	} `json:"reward_rates"`
	OfferURL  string `json:"url"`
	ImageURL  string `json:"image_url"`
	ScrapedAt string `json:"scraped_at"`
}

// Parse decodes one issuer dump into source records. Rows without a
// card name are structural failures; everything else passes through
// with whatever the bonus decomposition could extract.
func Parse(id sources.ID, r io.Reader, fallback utc.Time) ([]sources.Record, error) {
	var rows []scrapeRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.WrapParse("json", id.String()+" scrape dump", err)
	}

	records := make([]sources.Record, 0, len(rows))
	var errs []error
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			errs = append(errs, errors.NewStructuralError(
				id.String(), fmt.Sprintf("index %d", i), "row has no card name", nil))
			continue
		}
		rec := &sources.IssuerScrapeRecord{
			From:         id,
			Name:         row.Name,
			Issuer:       row.Issuer,
			AnnualFee:    row.AnnualFee,
			WelcomeBonus: row.WelcomeBonus,
			OfferURL:     row.OfferURL,
			ImageURL:     row.ImageURL,
			At:           parseTime(row.ScrapedAt, fallback),
		}
		if len(row.RewardRates) > 0 {
			rec.RewardRates = make(map[string]sources.ScrapedRate, len(row.RewardRates))
			for cat, rr := range row.RewardRates {
				rec.RewardRates[cat] = sources.ScrapedRate{Rate: rr.Rate, Type: rr.Type}
			}
		}
		DecomposeBonus(rec)
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

func parseTime(s string, fallback utc.Time) utc.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return utc.Time{Time: t.UTC()}
}

var (
	bonusAmountRe = regexp.MustCompile(`(?i)(?:earn\s+)?([\d,]+)\s+(?:bonus\s+)?(points?|miles?)`)
	bonusCashRe   = regexp.MustCompile(`(?i)(?:earn\s+)?\$([\d,]+(?:\.\d+)?)\s+(?:bonus|cash\s*back|statement\s+credit)`)
	bonusSpendRe  = regexp.MustCompile(`(?i)spend(?:ing)?\s+\$([\d,]+)`)
	bonusDaysRe   = regexp.MustCompile(`(?i)(?:first|within)\s+(\d+)\s+(days?|months?)`)
)

// DecomposeBonus extracts amount, spend requirement, window, and dollar
// value from the raw welcome bonus text. Points and miles are valued at
// PointValueUSD each; cash bonuses at face value. Partial extraction is
// expected, every field stays nil unless its phrase matched.
func DecomposeBonus(rec *sources.IssuerScrapeRecord) {
	text := rec.WelcomeBonus
	if strings.TrimSpace(text) == "" {
		return
	}

	if m := bonusAmountRe.FindStringSubmatch(text); m != nil {
		if amount, ok := parseNumber(m[1]); ok {
			rec.BonusAmount = &amount
			value := amount * PointValueUSD
			rec.BonusValueUSD = &value
		}
	} else if m := bonusCashRe.FindStringSubmatch(text); m != nil {
		if amount, ok := parseNumber(m[1]); ok {
			rec.BonusAmount = &amount
			value := amount
			rec.BonusValueUSD = &value
		}
	}

	if m := bonusSpendRe.FindStringSubmatch(text); m != nil {
		if spend, ok := parseNumber(m[1]); ok {
			rec.BonusSpend = &spend
		}
	}

	if m := bonusDaysRe.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			days := n
			if strings.HasPrefix(strings.ToLower(m[2]), "month") {
				days = n * 30
			}
			rec.BonusDays = &days
		}
	}
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
