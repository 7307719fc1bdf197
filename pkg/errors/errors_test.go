package errors

import (
	stderrors "errors"
	"testing"
)

func TestStructuralError(t *testing.T) {
	err := NewStructuralError("chase", "row 7", "no card name", nil)
	if !Is(err, ErrStructural) {
		t.Error("StructuralError does not match ErrStructural")
	}
	if !IsStructural(err) {
		t.Error("IsStructural() = false")
	}
	if msg := err.Error(); msg == "" {
		t.Error("empty error message")
	}

	wrapped := NewStructuralError("chase", "row 7", "bad json", stderrors.New("unexpected token"))
	var serr *StructuralError
	if !As(wrapped, &serr) {
		t.Fatal("As() failed for StructuralError")
	}
	if serr.Unwrap() == nil {
		t.Error("Unwrap() = nil, want inner error")
	}
}

func TestRejectionError(t *testing.T) {
	err := &RejectionError{Source: "nerdwallet", Key: "Best Travel Cards", Rules: []string{"card_name_category_label"}}
	if !Is(err, ErrRejected) || !IsRejection(err) {
		t.Error("RejectionError does not match ErrRejected")
	}
}

func TestMergeConflictError(t *testing.T) {
	err := &MergeConflictError{CardID: "chase--sapphire", Reasons: []string{"annual_fee_range"}}
	if !Is(err, ErrMergeConflict) || !IsMergeConflict(err) {
		t.Error("MergeConflictError does not match ErrMergeConflict")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "card_id", Message: "cannot be empty"}
	if !Is(err, ErrInvalidInput) || !IsValidationError(err) {
		t.Error("ValidationError does not match ErrInvalidInput")
	}
}

func TestWrapHelpers(t *testing.T) {
	inner := stderrors.New("boom")

	perr := WrapParse("yaml", "catalog.yaml", inner)
	if !Is(perr, inner) {
		t.Error("WrapParse() lost the inner error")
	}

	ioerr := WrapIO("write", "/tmp/x", inner)
	if !Is(ioerr, inner) {
		t.Error("WrapIO() lost the inner error")
	}
}
