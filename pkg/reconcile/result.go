package reconcile

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/rewardsense/cardmap/pkg/audit"
	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/provenance"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// Result is the complete output of one reconciliation run: the merged
// catalog, the audit trail, field-level provenance, and run metadata.
type Result struct {
	// RunID uniquely identifies this run in logs and saved artifacts.
	RunID string

	// Catalog holds the merged canonical cards.
	Catalog *cards.Catalog

	// Audit records everything the run rejected or could not resolve.
	Audit *audit.Log

	// Provenance maps each retained field to its winning source. Nil
	// unless tracking was enabled.
	Provenance provenance.Map

	// Metadata describes the run itself.
	Metadata Metadata

	// Errors are failures worth surfacing that did not abort the run.
	Errors []error

	// Warnings are non-fatal notes, one per skipped record or cluster.
	Warnings []string
}

// Metadata captures timing and scale for one run.
type Metadata struct {
	StartTime utc.Time      `json:"start_time" yaml:"start_time"`
	EndTime   utc.Time      `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Sources   []sources.ID  `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// NewResult creates an empty result with a fresh run ID.
func NewResult() *Result {
	return &Result{
		RunID:   uuid.New().String(),
		Catalog: cards.NewCatalog(),
		Audit:   audit.NewLog(),
		Metadata: Metadata{
			StartTime: utc.Now(),
		},
	}
}

// AddError records a non-fatal error.
func (r *Result) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// AddWarning records a non-fatal warning.
func (r *Result) AddWarning(msg string) {
	if msg != "" {
		r.Warnings = append(r.Warnings, msg)
	}
}

// HasErrors reports whether any non-fatal errors were recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Finalize stamps the end time and duration. Safe to call once.
func (r *Result) Finalize() {
	r.Metadata.EndTime = utc.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// Summary returns a one-line human-readable overview of the run.
func (r *Result) Summary() string {
	c := r.Audit.Counters
	return fmt.Sprintf("run %s: %d records in, %d rejected, %d clusters, %d conflicts, %d cards (%s)",
		r.RunID, c.RecordsIn, c.Rejected, c.Clusters, c.Conflicts, c.CatalogCards,
		r.Metadata.Duration.Round(time.Millisecond))
}
