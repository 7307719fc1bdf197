package cards

import (
	"github.com/agentstation/utc"

	"github.com/rewardsense/cardmap/pkg/sources"
)

// Draft is a normalized but not-yet-merged per-source candidate record.
// Fields absent from the source stay unset on Card; the match keys carry
// the whitespace-collapsed, lower-cased forms used for clustering.
type Draft struct {
	Source    sources.ID
	Key       string // source-native id or name, for audit
	ScrapedAt utc.Time

	// Card holds the normalized field values. Card.ID is never set on a
	// draft; identity is minted by the merger.
	Card Card

	// Match keys for exact and fuzzy clustering.
	NameKey   string
	IssuerKey string

	// Unnormalized lists raw labels that had no normalization table
	// entry and were passed through unchanged. Diagnostic, not an error.
	Unnormalized []FieldFlag
}

// FieldFlag marks one field whose raw value could not be normalized.
type FieldFlag struct {
	Field string `json:"field" yaml:"field"`
	Raw   string `json:"raw" yaml:"raw"`
}

// HasGaps reports whether any field of the draft escaped normalization.
func (d *Draft) HasGaps() bool {
	return len(d.Unnormalized) > 0
}
