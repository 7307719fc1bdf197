package cards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

func TestNewCardID(t *testing.T) {
	tests := []struct {
		name, issuer string
		want         CardID
	}{
		{"Chase Sapphire Preferred", "Chase", "chase--chase-sapphire-preferred"},
		{"Discover it Cash Back", "Discover", "discover--discover-it-cash-back"},
		{"Blue Cash Preferred", "American Express", "american-express--blue-cash-preferred"},
		{"  Freedom   Flex  ", "Chase", "chase--freedom-flex"},
		{"Venture X", "Capital One", "capital-one--venture-x"},
	}
	for _, tt := range tests {
		if got := NewCardID(tt.name, tt.issuer); got != tt.want {
			t.Errorf("NewCardID(%q, %q) = %q, want %q", tt.name, tt.issuer, got, tt.want)
		}
	}
}

func TestNewCardIDDeterministic(t *testing.T) {
	first := NewCardID("Chase Sapphire Preferred", "Chase")
	for range 3 {
		if got := NewCardID("Chase Sapphire Preferred", "Chase"); got != first {
			t.Fatalf("NewCardID() = %q, want stable %q", got, first)
		}
	}
}

func TestCatalogAdd(t *testing.T) {
	cat := NewCatalog()
	card := Card{ID: "chase--sapphire-preferred", Name: "Sapphire Preferred", Issuer: "Chase"}

	if err := cat.Add(card); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := cat.Add(card); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("Add(duplicate) error = %v, want ErrAlreadyExists", err)
	}
	if err := cat.Add(Card{Name: "No ID"}); !errors.IsValidationError(err) {
		t.Errorf("Add(no id) error = %v, want validation error", err)
	}
	if cat.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cat.Len())
	}
}

func TestCatalogGet(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Add(Card{ID: "chase--freedom-flex", Name: "Freedom Flex"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, ok := cat.Get("chase--freedom-flex")
	if !ok || got.Name != "Freedom Flex" {
		t.Errorf("Get() = %v, %v", got, ok)
	}
	if _, ok := cat.Get("missing"); ok {
		t.Error("Get(missing) = true, want false")
	}
}

func TestCatalogListSortedByID(t *testing.T) {
	cat := NewCatalog()
	for _, id := range []CardID{"c--z", "a--m", "b--a"} {
		if err := cat.Add(Card{ID: id}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	list := cat.List()
	for i := 1; i < len(list); i++ {
		if list[i-1].ID > list[i].ID {
			t.Fatalf("List() not sorted: %v before %v", list[i-1].ID, list[i].ID)
		}
	}
}

func TestCatalogSave(t *testing.T) {
	cat := NewCatalog()
	fee := 95.0
	if err := cat.Add(Card{
		ID:        "chase--sapphire-preferred",
		Name:      "Sapphire Preferred",
		Issuer:    "Chase",
		AnnualFee: &fee,
		Sources:   []sources.ID{sources.ChaseID},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := cat.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"card_id: chase--sapphire-preferred", "annual_fee: 95", "count: 1"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("saved catalog missing %q:\n%s", want, data)
		}
	}
}

func TestCardHelpers(t *testing.T) {
	card := Card{
		Sources: []sources.ID{sources.ChaseID},
		RewardCategories: []RewardCategory{
			{Name: "dining", Rate: 3},
		},
	}
	if !card.HasSource(sources.ChaseID) || card.HasSource(sources.NerdWalletID) {
		t.Error("HasSource() gave wrong membership")
	}
	if rc, ok := card.Category("dining"); !ok || rc.Rate != 3 {
		t.Errorf("Category(dining) = %v, %v", rc, ok)
	}
	if _, ok := card.Category("travel"); ok {
		t.Error("Category(travel) = true, want false")
	}
}
