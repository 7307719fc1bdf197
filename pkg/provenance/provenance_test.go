package provenance

import (
	"strings"
	"testing"

	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/sources"
)

const testCardID = cards.CardID("chase--sapphire-preferred")

func TestTrackerRoundTrip(t *testing.T) {
	tr := NewTracker(true)
	tr.Track(testCardID, "annual_fee", Provenance{
		Source: sources.ChaseID,
		Value:  95.0,
		Reason: "source-order",
	})
	tr.Track(testCardID, "image_url", Provenance{
		Source: sources.CreditCardBonusesID,
		Value:  "https://example.com/csp.png",
	})

	byField := tr.FindByField(testCardID, "annual_fee")
	if len(byField) != 1 || byField[0].Source != sources.ChaseID {
		t.Errorf("FindByField() = %v, want one chase entry", byField)
	}
	if byField[0].Field != "annual_fee" {
		t.Errorf("Field = %q, want filled from key", byField[0].Field)
	}

	byCard := tr.FindByCard(testCardID)
	if len(byCard) != 2 {
		t.Errorf("FindByCard() = %v, want 2 fields", byCard)
	}

	if got := len(tr.Map()); got != 2 {
		t.Errorf("Map() has %d keys, want 2", got)
	}

	tr.Clear()
	if len(tr.Map()) != 0 {
		t.Error("Clear() left entries behind")
	}
}

func TestDisabledTrackerDiscards(t *testing.T) {
	tr := NewTracker(false)
	tr.Track(testCardID, "annual_fee", Provenance{Source: sources.ChaseID})

	if tr.Map() != nil {
		t.Error("disabled tracker returned a map")
	}
	if tr.FindByField(testCardID, "annual_fee") != nil {
		t.Error("disabled tracker returned entries")
	}
}

func TestMapString(t *testing.T) {
	tr := NewTracker(true)
	tr.Track(testCardID, "annual_fee", Provenance{Source: sources.ChaseID, Value: 95.0})

	report := tr.Map().String()
	if !strings.Contains(report, "chase--sapphire-preferred") {
		t.Errorf("report missing card id:\n%s", report)
	}
	if !strings.Contains(report, "annual_fee") {
		t.Errorf("report missing field:\n%s", report)
	}
}

func TestMapCopyIsolation(t *testing.T) {
	tr := NewTracker(true)
	tr.Track(testCardID, "annual_fee", Provenance{Source: sources.ChaseID})

	m := tr.Map()
	for k := range m {
		m[k] = append(m[k], Provenance{Source: sources.NerdWalletID})
	}
	if got := tr.FindByField(testCardID, "annual_fee"); len(got) != 1 {
		t.Errorf("mutating the returned map changed the tracker: %v", got)
	}
}
