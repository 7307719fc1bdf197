// Package normalize maps raw per-source vocabulary (issuer, network,
// reward currency, category spellings) onto the canonical label sets and
// turns raw source records into normalized card drafts.
//
// Tables are loaded once at process start and read-only afterwards; the
// normalizer itself is pure and does no I/O.
package normalize

import (
	_ "embed"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/goccy/go-yaml"

	"github.com/rewardsense/cardmap/pkg/errors"
)

//go:embed tables.yaml
var embeddedTables []byte

// Table is an immutable mapping of normalized raw-label keys to one
// canonical label.
type Table map[string]string

// Tables bundles the four normalization tables used by the engine.
type Tables struct {
	Issuers    Table `yaml:"issuers"`
	Networks   Table `yaml:"networks"`
	Currencies Table `yaml:"currencies"`
	Categories Table `yaml:"categories"`

	canonicalIssuers  map[string]struct{}
	canonicalNetworks map[string]struct{}
}

var (
	defaultTables     *Tables
	defaultTablesErr  error
	defaultTablesOnce sync.Once
)

// Default returns the tables embedded in the binary, parsed once.
func Default() (*Tables, error) {
	defaultTablesOnce.Do(func() {
		defaultTables, defaultTablesErr = parse(embeddedTables)
	})
	return defaultTables, defaultTablesErr
}

// Load reads tables from a YAML document, e.g. an operator override file.
func Load(r io.Reader) (*Tables, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "normalization tables", err)
	}
	return parse(data)
}

func parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.WrapParse("yaml", "normalization tables", err)
	}
	if len(t.Issuers) == 0 {
		return nil, &errors.ValidationError{
			Field:   "issuers",
			Message: "normalization tables define no issuers",
		}
	}

	// Re-key every table through the same key function used at lookup
	// time, so table authors don't have to pre-normalize spellings.
	t.Issuers = rekey(t.Issuers)
	t.Networks = rekey(t.Networks)
	t.Currencies = rekey(t.Currencies)
	t.Categories = rekey(t.Categories)

	t.canonicalIssuers = canonicalSet(t.Issuers)
	t.canonicalNetworks = canonicalSet(t.Networks)
	return &t, nil
}

func rekey(t Table) Table {
	out := make(Table, len(t))
	for raw, canonical := range t {
		out[Key(raw)] = canonical
	}
	return out
}

func canonicalSet(t Table) map[string]struct{} {
	set := make(map[string]struct{}, len(t))
	for _, canonical := range t {
		set[canonical] = struct{}{}
	}
	return set
}

// Lookup resolves a raw label to its canonical form. The match is
// case-insensitive, trimmed, and punctuation-tolerant. Raw labels that
// already equal a canonical label also resolve, so normalization is
// idempotent.
func (t Table) Lookup(raw string) (string, bool) {
	canonical, ok := t[Key(raw)]
	return canonical, ok
}

// IsCanonicalIssuer reports whether label is a member of the canonical
// issuer set.
func (t *Tables) IsCanonicalIssuer(label string) bool {
	_, ok := t.canonicalIssuers[label]
	return ok
}

// IsCanonicalNetwork reports whether label is one of the four canonical
// networks.
func (t *Tables) IsCanonicalNetwork(label string) bool {
	_, ok := t.canonicalNetworks[label]
	return ok
}

// Key normalizes a raw label into its lookup key: lower-cased, trimmed,
// punctuation stripped, whitespace collapsed.
func Key(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-' || r == '.' || r == '&' || r == '\'' || r == ',' || r == '/':
			pendingSpace = true
		}
	}
	return b.String()
}

// Slug converts a raw category label into the passthrough form used when
// no table entry exists: lower-cased, spaces to underscores.
func Slug(raw string) string {
	return strings.ReplaceAll(Key(raw), " ", "_")
}
