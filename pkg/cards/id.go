package cards

import (
	"strings"
	"unicode"
)

// CardID is the deterministic identity of a canonical card, derived from
// the normalized card name and issuer. Re-running the engine on the same
// input never mints a new ID for the same card.
type CardID string

// String returns the string representation of a card ID.
func (id CardID) String() string {
	return string(id)
}

// NewCardID derives a card ID from a normalized card name and issuer.
// Both inputs are slugged (lower-cased, runs of non-alphanumerics
// collapsed to single hyphens) and joined, so cosmetic spelling
// differences that survive normalization do not change identity.
func NewCardID(name, issuer string) CardID {
	return CardID(slug(issuer) + "--" + slug(name))
}

// slug lower-cases s and collapses every run of non-alphanumeric runes
// into a single hyphen.
func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
