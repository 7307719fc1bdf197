// Package sources defines the data sources feeding the reconciliation
// engine and the raw record shapes they emit.
//
// Each source publishes card offers in its own ad-hoc schema with its own
// field coverage and reliability. Adapters turn source payloads into
// Record values; the engine consumes those records without knowing
// anything about HTTP, HTML parsing, or request pacing.
package sources

import (
	"context"
	"slices"
)

// ID represents the identifier of a data source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Known sources, in rough order of data quality. The CreditCardBonuses
// API export has near-complete field coverage; the scrapers fill gaps.
const (
	CreditCardBonusesID ID = "creditcardbonuses"
	ChaseID             ID = "chase"
	DiscoverID          ID = "discover"
	NerdWalletID        ID = "nerdwallet"
)

// IDs returns all known source IDs.
func IDs() []ID {
	return []ID{
		CreditCardBonusesID,
		ChaseID,
		DiscoverID,
		NerdWalletID,
	}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// DefaultPriority returns the fixed source precedence used to resolve
// field-level conflicts during merge. Earlier elements win.
func DefaultPriority() []ID {
	return []ID{
		CreditCardBonusesID,
		ChaseID,
		DiscoverID,
		NerdWalletID,
	}
}

// Source is a per-source adapter collaborator. Implementations own all
// I/O concerns (files, HTTP, request pacing); the engine only sees the
// records they return.
type Source interface {
	// ID returns the identifier of this source
	ID() ID

	// Fetch retrieves all raw records from this source. A non-nil error
	// alongside a non-empty record slice means partial success: the
	// returned records are usable and the error describes the records
	// that were not.
	Fetch(ctx context.Context) ([]Record, error)
}
