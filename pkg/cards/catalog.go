package cards

import (
	"os"
	"sort"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/rewardsense/cardmap/pkg/errors"
)

// Catalog is the ordered collection of canonical cards produced by one
// reconciliation run. IDs are unique within a catalog; insertion of a
// duplicate ID is an error, never a silent overwrite. A catalog is
// built once per run and read-only afterwards.
type Catalog struct {
	cards []Card
	byID  map[CardID]int

	// GeneratedAt records when the catalog was assembled.
	GeneratedAt utc.Time
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:        make(map[CardID]int),
		GeneratedAt: utc.Now(),
	}
}

// Add appends a card to the catalog. Returns ErrAlreadyExists if a card
// with the same ID is already present.
func (c *Catalog) Add(card Card) error {
	if card.ID == "" {
		return &errors.ValidationError{
			Field:   "card_id",
			Message: "cannot be empty",
		}
	}
	if _, exists := c.byID[card.ID]; exists {
		return errors.ErrAlreadyExists
	}
	c.byID[card.ID] = len(c.cards)
	c.cards = append(c.cards, card)
	return nil
}

// Get returns the card with the given ID.
func (c *Catalog) Get(id CardID) (Card, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Card{}, false
	}
	return c.cards[idx], true
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// List returns the cards sorted by ID. Sorting here, rather than at
// insertion, keeps output order deterministic regardless of merge order.
func (c *Catalog) List() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// catalogFile is the on-disk representation of a catalog.
type catalogFile struct {
	GeneratedAt utc.Time `yaml:"generated_at"`
	Count       int      `yaml:"count"`
	Cards       []Card   `yaml:"cards"`
}

// MarshalYAML implements yaml.Marshaler with deterministic card order.
func (c *Catalog) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(catalogFile{
		GeneratedAt: c.GeneratedAt,
		Count:       c.Len(),
		Cards:       c.List(),
	})
}

// Save writes the catalog to a YAML file.
func (c *Catalog) Save(path string) error {
	data, err := c.MarshalYAML()
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
