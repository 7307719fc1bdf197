// Package provenance tracks which source contributed each retained field
// of a merged card. The merger records one entry per field it sets, so
// the audit trail can answer "where did this annual fee come from" even
// when the field was back-filled from a lower-priority source.
package provenance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// Provenance records the origin of one field value on one card.
type Provenance struct {
	Source    sources.ID `json:"source" yaml:"source"`
	Field     string     `json:"field" yaml:"field"`
	Value     any        `json:"value,omitempty" yaml:"value,omitempty"`
	ScrapedAt utc.Time   `json:"scraped_at" yaml:"scraped_at"`
	Reason    string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Map holds provenance for many cards, keyed "card:<id>:<field>".
type Map map[string][]Provenance

// Tracker collects provenance during a merge run.
type Tracker interface {
	// Track records provenance for a field of a card
	Track(cardID cards.CardID, field string, p Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(cardID cards.CardID, field string) []Provenance

	// FindByCard retrieves all provenance for one card, keyed by field
	FindByCard(cardID cards.CardID) map[string][]Provenance

	// Map returns a copy of the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation. A disabled tracker accepts and
// discards everything, so merge code never branches on tracking.
type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field of a card.
func (t *tracker) Track(cardID cards.CardID, field string, p Provenance) {
	if !t.enabled {
		return
	}
	if p.Field == "" {
		p.Field = field
	}
	key := makeKey(cardID, field)
	t.provenance[key] = append(t.provenance[key], p)
}

// FindByField retrieves provenance for a specific field.
func (t *tracker) FindByField(cardID cards.CardID, field string) []Provenance {
	if !t.enabled {
		return nil
	}
	return t.provenance[makeKey(cardID, field)]
}

// FindByCard retrieves all provenance for one card, keyed by field.
func (t *tracker) FindByCard(cardID cards.CardID) map[string][]Provenance {
	if !t.enabled {
		return nil
	}

	result := make(map[string][]Provenance)
	prefix := "card:" + cardID.String() + ":"
	for key, entries := range t.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = entries
		}
	}
	return result
}

// Map returns a copy of the complete provenance map.
func (t *tracker) Map() Map {
	if !t.enabled {
		return nil
	}
	result := make(Map, len(t.provenance))
	for k, v := range t.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Clear removes all provenance data.
func (t *tracker) Clear() {
	t.provenance = make(Map)
}

func makeKey(cardID cards.CardID, field string) string {
	return fmt.Sprintf("card:%s:%s", cardID, field)
}

// String renders a provenance map as a human-readable report, grouped by
// card and sorted for stable output.
func (m Map) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	lastCard := ""
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		cardID, field := parts[1], parts[2]
		if cardID != lastCard {
			fmt.Fprintf(&sb, "%s\n", cardID)
			lastCard = cardID
		}
		for _, p := range m[key] {
			fmt.Fprintf(&sb, "  %s: %v (from %s)\n", field, p.Value, p.Source)
		}
	}
	return sb.String()
}
