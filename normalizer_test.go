package testforge

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeRequirements_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t\n"} {
		_, err := NormalizeRequirements(input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: expected ErrEmptyInput, got %v", input, err)
		}
	}
}

func TestNormalizeRequirements_NumberedList(t *testing.T) {
	input := "1. The system shall accept uploads.\n2. The system shall reject files over 10MB.\n3) Uploads must be logged."

	units, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}

	wantIDs := []string{"1", "2", "3"}
	for i, u := range units {
		if u.ID != wantIDs[i] {
			t.Errorf("unit %d: expected ID %q, got %q", i, wantIDs[i], u.ID)
		}
	}
	if units[1].Text != "The system shall reject files over 10MB." {
		t.Errorf("unit 1: marker not stripped: %q", units[1].Text)
	}
}

func TestNormalizeRequirements_SentenceSplit(t *testing.T) {
	input := "The system shall persist sessions. Sessions expire after one hour."

	units, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
	if units[0].ID != "R1" || units[1].ID != "R2" {
		t.Errorf("expected sequential R-IDs, got %q and %q", units[0].ID, units[1].ID)
	}
	if units[0].Text != "The system shall persist sessions." {
		t.Errorf("unexpected first sentence: %q", units[0].Text)
	}
	if units[1].Text != "Sessions expire after one hour." {
		t.Errorf("unexpected second sentence: %q", units[1].Text)
	}
}

func TestNormalizeRequirements_ParagraphBlocks(t *testing.T) {
	input := "Users log in with a password.\n\nPasswords rotate every 90 days."

	units, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
}

func TestNormalizeRequirements_Offsets(t *testing.T) {
	input := "  1. Padded requirement here.  \n\nA free-form sentence follows."

	units, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, u := range units {
		if u.Start < 0 || u.End > len(input) || u.Start >= u.End {
			t.Fatalf("unit %q: bad offsets [%d,%d)", u.ID, u.Start, u.End)
		}
		if got := input[u.Start:u.End]; got != u.Text {
			t.Errorf("unit %q: offsets point at %q, text is %q", u.ID, got, u.Text)
		}
	}
}

func TestNormalizeRequirements_Deterministic(t *testing.T) {
	input := "1. First.\n2. Second.\n\nSome prose requirement. Another one here."

	first, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("same input produced different units")
	}
}

func TestNormalizeRequirements_DuplicateIDs(t *testing.T) {
	input := "1. First occurrence.\n\n1. Second occurrence."

	units, err := NormalizeRequirements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].ID != "1" {
		t.Errorf("first unit: expected ID %q, got %q", "1", units[0].ID)
	}
	if units[1].ID != "1.2" {
		t.Errorf("second unit: expected deduped ID %q, got %q", "1.2", units[1].ID)
	}
}

func TestNormalizeRequirements_NonEmptyGuarantee(t *testing.T) {
	// Any non-blank input yields at least one unit, even without
	// recognizable structure.
	units, err := NormalizeRequirements("just one fragment without punctuation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) == 0 {
		t.Fatal("expected at least one unit")
	}
}
