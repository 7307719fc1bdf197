package reconcile

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/sources"
)

func ts(day int) utc.Time {
	return utc.Time{Time: time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)}
}

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func apiRecord(day int) *sources.BonusesAPIRecord {
	return &sources.BonusesAPIRecord{
		CardKey:   "CHASE_SAPPHIRE_PREFERRED",
		Name:      "Chase Sapphire Preferred",
		Issuer:    "CHASE",
		Network:   "VISA",
		Currency:  "ULTIMATE REWARDS",
		Offers:    []sources.BonusOffer{{Amount: 60000, Spend: 4000, Days: 90}},
		FetchedAt: ts(day),
	}
}

func chaseRecord(day int) *sources.IssuerScrapeRecord {
	return &sources.IssuerScrapeRecord{
		From:      sources.ChaseID,
		Name:      "Chase Sapphire Preferred",
		Issuer:    "Chase",
		AnnualFee: fptr(95),
		ImageURL:  "https://chase.example/csp.png",
		At:        ts(day),
	}
}

func mustEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestReconcilePriorityFallback(t *testing.T) {
	// The API record carries no annual fee or image; both should fall
	// back to the Chase scrape even though the API outranks it.
	e := mustEngine(t)
	result, err := e.Reconcile(context.Background(), []sources.Record{
		apiRecord(2),
		chaseRecord(1),
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Catalog.Len() != 1 {
		t.Fatalf("catalog has %d cards, want 1 merged card", result.Catalog.Len())
	}

	card := result.Catalog.List()[0]
	if card.AnnualFee == nil || *card.AnnualFee != 95 {
		t.Errorf("AnnualFee = %v, want 95 from chase scrape", card.AnnualFee)
	}
	if card.ImageURL != "https://chase.example/csp.png" {
		t.Errorf("ImageURL = %q, want chase scrape value", card.ImageURL)
	}
	// Fields both sources carry resolve to the API value.
	if card.RewardCurrency != "CHASE_UR" {
		t.Errorf("RewardCurrency = %q, want CHASE_UR from api", card.RewardCurrency)
	}
	if !card.HasSource(sources.CreditCardBonusesID) || !card.HasSource(sources.ChaseID) {
		t.Errorf("Sources = %v, want both contributors", card.Sources)
	}
	// Latest capture time wins.
	if !card.ScrapedAt.Equal(ts(2)) {
		t.Errorf("ScrapedAt = %v, want %v", card.ScrapedAt, ts(2))
	}
}

func TestReconcileSameSourceTieBreaksOnRecency(t *testing.T) {
	older := chaseRecord(1)
	newer := chaseRecord(5)
	newer.AnnualFee = fptr(0)

	e := mustEngine(t)
	result, err := e.Reconcile(context.Background(), []sources.Record{older, newer})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	card := result.Catalog.List()[0]
	if card.AnnualFee == nil || *card.AnnualFee != 0 {
		t.Errorf("AnnualFee = %v, want 0 from the newer capture", card.AnnualFee)
	}
}

func TestReconcileCategoryTieBreaksOnRecency(t *testing.T) {
	// Two captures from the same scraper disagree on the dining rate.
	// The newer capture must win whichever record comes first.
	newer := chaseRecord(5)
	newer.RewardRates = map[string]sources.ScrapedRate{
		"dining": {Rate: 5, Type: "points"},
	}
	older := chaseRecord(1)
	older.RewardRates = map[string]sources.ScrapedRate{
		"dining": {Rate: 3, Type: "points"},
	}

	for _, order := range [][]sources.Record{
		{newer, older},
		{older, newer},
	} {
		e := mustEngine(t)
		result, err := e.Reconcile(context.Background(), order)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		card := result.Catalog.List()[0]
		var dining *float64
		for _, rc := range card.RewardCategories {
			if rc.Name == "dining" {
				dining = &rc.Rate
			}
		}
		if dining == nil {
			t.Fatalf("merged card has no dining category: %+v", card.RewardCategories)
		}
		if *dining != 5 {
			t.Errorf("dining rate = %g, want 5 from the newer capture", *dining)
		}
	}
}

func TestReconcileExplicitZeroBeatsAbsent(t *testing.T) {
	// A fee waiver flag of false from a lower-priority source must
	// survive when higher-priority sources are silent.
	api := apiRecord(2)
	scrape := chaseRecord(1)

	e := mustEngine(t)
	result, err := e.Reconcile(context.Background(), []sources.Record{api, scrape})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	card := result.Catalog.List()[0]
	if card.AnnualFee == nil || *card.AnnualFee != 95 {
		t.Fatalf("AnnualFee = %v, want 95", card.AnnualFee)
	}

	api.AnnualFeeWaived = bptr(false)
	result, err = e.Reconcile(context.Background(), []sources.Record{api, scrape})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	card = result.Catalog.List()[0]
	if card.AnnualFeeWaived == nil || *card.AnnualFeeWaived != false {
		t.Errorf("AnnualFeeWaived = %v, want explicit false", card.AnnualFeeWaived)
	}
}

func TestReconcileSingletonIdempotence(t *testing.T) {
	e := mustEngine(t)
	rec := apiRecord(1)

	result, err := e.Reconcile(context.Background(), []sources.Record{rec})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Catalog.Len() != 1 {
		t.Fatalf("catalog has %d cards, want 1", result.Catalog.Len())
	}
	card := result.Catalog.List()[0]
	if card.Name != "Chase Sapphire Preferred" {
		t.Errorf("Name = %q, unchanged singleton expected", card.Name)
	}
	if card.WelcomeBonusAmount == nil || *card.WelcomeBonusAmount != 60000 {
		t.Errorf("WelcomeBonusAmount = %v, want 60000", card.WelcomeBonusAmount)
	}
	if len(card.Sources) != 1 || card.Sources[0] != sources.CreditCardBonusesID {
		t.Errorf("Sources = %v, want only the api", card.Sources)
	}
}

func TestReconcileDeterminism(t *testing.T) {
	records := []sources.Record{
		apiRecord(2),
		chaseRecord(1),
		&sources.NerdWalletRecord{
			Name:           "Chase Sapphire Preferred",
			Issuer:         "Chase",
			AnnualFee:      fptr(95),
			BaseRewardRate: fptr(1),
			At:             ts(3),
		},
	}

	e := mustEngine(t)
	first, err := e.Reconcile(context.Background(), records)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	firstYAML, err := first.Catalog.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error = %v", err)
	}

	for range 5 {
		again, err := e.Reconcile(context.Background(), records)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		againYAML, err := again.Catalog.MarshalYAML()
		if err != nil {
			t.Fatalf("MarshalYAML() error = %v", err)
		}
		if string(stripGeneratedAt(firstYAML)) != string(stripGeneratedAt(againYAML)) {
			t.Fatal("catalog output differs between identical runs")
		}
	}
}

func TestReconcileCardIDUnique(t *testing.T) {
	e := mustEngine(t)
	result, err := e.Reconcile(context.Background(), []sources.Record{
		apiRecord(1),
		chaseRecord(2),
		&sources.NerdWalletRecord{
			Name:   "Discover it Cash Back",
			Issuer: "Discover",
			At:     ts(1),
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, card := range result.Catalog.List() {
		if card.ID == "" {
			t.Error("card with empty ID in catalog")
		}
		if seen[card.ID.String()] {
			t.Errorf("duplicate card ID %s", card.ID)
		}
		seen[card.ID.String()] = true
	}
}

func TestReconcileRejectionsAudited(t *testing.T) {
	e := mustEngine(t)
	result, err := e.Reconcile(context.Background(), []sources.Record{
		apiRecord(1),
		&sources.NerdWalletRecord{
			Name:   "Best Travel Cards of 2026",
			Issuer: "Chase",
			At:     ts(1),
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Catalog.Len() != 1 {
		t.Errorf("catalog has %d cards, want 1", result.Catalog.Len())
	}
	if len(result.Audit.Rejections) != 1 {
		t.Fatalf("audit has %d rejections, want 1", len(result.Audit.Rejections))
	}
	rej := result.Audit.Rejections[0]
	if rej.Source != sources.NerdWalletID {
		t.Errorf("rejection source = %s, want nerdwallet", rej.Source)
	}
	if len(rej.Rules) == 0 {
		t.Error("rejection carries no rule names")
	}
}

func TestReconcileGapsAudited(t *testing.T) {
	e := mustEngine(t)
	rec := apiRecord(1)
	rec.Network = "DINERS_CLUB"

	result, err := e.Reconcile(context.Background(), []sources.Record{rec})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	found := false
	for _, gap := range result.Audit.Gaps {
		if gap.Field == "network" && gap.Raw == "DINERS_CLUB" {
			found = true
		}
	}
	if !found {
		t.Errorf("audit gaps = %v, want network DINERS_CLUB gap", result.Audit.Gaps)
	}
}

func TestReconcileCustomPriority(t *testing.T) {
	api := apiRecord(1)
	fee := 550.0
	api.AnnualFee = &fee
	scrape := chaseRecord(2)

	e := mustEngine(t, WithPriority(sources.ChaseID, sources.CreditCardBonusesID))
	result, err := e.Reconcile(context.Background(), []sources.Record{api, scrape})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	card := result.Catalog.List()[0]
	if card.AnnualFee == nil || *card.AnnualFee != 95 {
		t.Errorf("AnnualFee = %v, want 95 with chase outranking api", card.AnnualFee)
	}
}

func TestReconcileProvenance(t *testing.T) {
	e := mustEngine(t, WithProvenance(true))
	result, err := e.Reconcile(context.Background(), []sources.Record{
		apiRecord(2),
		chaseRecord(1),
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(result.Provenance) == 0 {
		t.Fatal("provenance map is empty with tracking enabled")
	}
	card := result.Catalog.List()[0]
	entries := result.Provenance["card:"+card.ID.String()+":annual_fee"]
	if len(entries) == 0 {
		t.Fatal("no provenance for annual_fee")
	}
	if entries[0].Source != sources.ChaseID {
		t.Errorf("annual_fee provenance = %s, want chase", entries[0].Source)
	}
}

func TestReconcileCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := mustEngine(t)
	if _, err := e.Reconcile(ctx, []sources.Record{apiRecord(1)}); err == nil {
		t.Fatal("Reconcile() with canceled context succeeded, want error")
	}
}

func TestReconcileCounters(t *testing.T) {
	e := mustEngine(t)
	result, err := e.Reconcile(context.Background(), []sources.Record{
		apiRecord(1),
		chaseRecord(2),
		&sources.NerdWalletRecord{Name: "Travel", Issuer: "Chase", At: ts(1)},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	c := result.Audit.Counters
	if c.RecordsIn != 3 {
		t.Errorf("RecordsIn = %d, want 3", c.RecordsIn)
	}
	if c.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", c.Rejected)
	}
	if c.Clusters != 1 {
		t.Errorf("Clusters = %d, want 1", c.Clusters)
	}
	if c.CatalogCards != 1 {
		t.Errorf("CatalogCards = %d, want 1", c.CatalogCards)
	}
}

// stripGeneratedAt drops the timestamp line so two runs compare equal.
func stripGeneratedAt(yaml []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(yaml, []byte("\n")) {
		if bytes.Contains(line, []byte("generated_at")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}
