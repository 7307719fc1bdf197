package nerdwallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardsense/cardmap/pkg/sources"
)

const sampleDump = `[
  {
    "name": "Chase Sapphire Preferred",
    "issuer": "Chase",
    "annual_fee": 95,
    "base_reward_rate": 1,
    "listing_category": "travel",
    "reward_tiers": ["5x on travel through the portal", "3x on dining"],
    "apr": "20.49%-27.49%",
    "scraped_at": "2026-08-01T12:00:00Z"
  },
  {
    "name": "Best Travel Cards of 2026",
    "listing_category": "travel"
  },
  {
    "issuer": "Chase"
  }
]`

func TestParse(t *testing.T) {
	fallback := utc.Time{Time: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)}
	records, err := Parse(strings.NewReader(sampleDump), fallback)

	// The nameless third row fails structurally. The listing-header
	// second row parses fine here; validation rejects it later.
	require.Error(t, err)
	require.Len(t, records, 2)

	rec, ok := records[0].(*sources.NerdWalletRecord)
	require.True(t, ok)
	assert.Equal(t, sources.NerdWalletID, rec.Source())
	assert.Equal(t, "Chase Sapphire Preferred", rec.Key())
	require.NotNil(t, rec.AnnualFee)
	assert.Equal(t, 95.0, *rec.AnnualFee)
	require.NotNil(t, rec.BaseRewardRate)
	assert.Equal(t, 1.0, *rec.BaseRewardRate)
	assert.Equal(t, "travel", rec.ListingCategory)
	assert.Len(t, rec.RewardTiers, 2)
	assert.Equal(t, "2026-08-01T12:00:00Z", rec.ScrapedAt().Format(time.RFC3339))

	header := records[1].(*sources.NerdWalletRecord)
	assert.Equal(t, "Best Travel Cards of 2026", header.Name)
	assert.Equal(t, fallback, header.ScrapedAt())
}

func TestFetchRequiresURL(t *testing.T) {
	c := New()
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name": "Chase Sapphire Preferred", "issuer": "Chase"}]`))
	}))
	defer srv.Close()

	c := New(WithURL(srv.URL), WithHTTPClient(srv.Client()))
	records, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, sources.NerdWalletID, c.ID())
}
