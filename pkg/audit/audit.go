// Package audit collects everything one reconciliation run could not
// confidently resolve: rejected drafts with the rules they failed,
// raw labels that escaped normalization, and clusters whose merged
// output was contradictory. The log is diagnostic output for operators
// and downstream consumers, never a reason to abort a run.
package audit

import (
	"os"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// Rejection is one draft excluded from clustering, with the rules it
// failed and the raw offending values.
type Rejection struct {
	Source  sources.ID `json:"source" yaml:"source"`
	Key     string     `json:"key" yaml:"key"`
	Rules   []string   `json:"rules" yaml:"rules"`
	Details []Detail   `json:"details,omitempty" yaml:"details,omitempty"`
}

// Detail pairs a failed field with its offending value.
type Detail struct {
	Field   string `json:"field" yaml:"field"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Gap is one raw label with no normalization table entry. The value was
// passed through unchanged, not discarded.
type Gap struct {
	Source sources.ID `json:"source" yaml:"source"`
	Key    string     `json:"key" yaml:"key"`
	Field  string     `json:"field" yaml:"field"`
	Raw    string     `json:"raw" yaml:"raw"`
}

// Conflict is one cluster whose merged output failed post-merge
// validation and was dropped from the catalog.
type Conflict struct {
	CardID  string       `json:"card_id" yaml:"card_id"`
	Sources []sources.ID `json:"sources" yaml:"sources"`
	Reasons []string     `json:"reasons" yaml:"reasons"`
}

// Structural is one raw record that never became a draft.
type Structural struct {
	Source  string `json:"source" yaml:"source"`
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Counters summarizes the run, mirroring the shape of the original
// pipeline's cleaning report.
type Counters struct {
	RecordsIn    int `json:"records_in" yaml:"records_in"`
	Normalized   int `json:"normalized" yaml:"normalized"`
	Rejected     int `json:"rejected" yaml:"rejected"`
	Clusters     int `json:"clusters" yaml:"clusters"`
	Conflicts    int `json:"conflicts" yaml:"conflicts"`
	CatalogCards int `json:"catalog_cards" yaml:"catalog_cards"`
}

// Log accumulates audit entries for one run.
type Log struct {
	GeneratedAt utc.Time     `json:"generated_at" yaml:"generated_at"`
	Rejections  []Rejection  `json:"rejections,omitempty" yaml:"rejections,omitempty"`
	Gaps        []Gap        `json:"normalization_gaps,omitempty" yaml:"normalization_gaps,omitempty"`
	Conflicts   []Conflict   `json:"merge_conflicts,omitempty" yaml:"merge_conflicts,omitempty"`
	Structurals []Structural `json:"structural_failures,omitempty" yaml:"structural_failures,omitempty"`
	Counters    Counters     `json:"counters" yaml:"counters"`
}

// NewLog creates an empty audit log.
func NewLog() *Log {
	return &Log{GeneratedAt: utc.Now()}
}

// AddRejection records a rejected draft.
func (l *Log) AddRejection(r Rejection) {
	l.Rejections = append(l.Rejections, r)
	l.Counters.Rejected++
}

// AddGap records a normalization gap.
func (l *Log) AddGap(g Gap) {
	l.Gaps = append(l.Gaps, g)
}

// AddConflict records a merge conflict.
func (l *Log) AddConflict(c Conflict) {
	l.Conflicts = append(l.Conflicts, c)
	l.Counters.Conflicts++
}

// AddStructural records a record that could not be parsed at all.
func (l *Log) AddStructural(s Structural) {
	l.Structurals = append(l.Structurals, s)
}

// Empty reports whether the run resolved everything.
func (l *Log) Empty() bool {
	return len(l.Rejections) == 0 && len(l.Gaps) == 0 &&
		len(l.Conflicts) == 0 && len(l.Structurals) == 0
}

// Save writes the audit log to a YAML file.
func (l *Log) Save(path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
