package state

import (
	"errors"
	"testing"
	"time"
)

func TestSetFieldValueAppendOnly(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := NewCallRecord("CA1", Company{}, "", now)

	set, err := rec.SetFieldValue(FieldCallerName, "  Jane  ")
	if err != nil {
		t.Fatalf("SetFieldValue() error = %v", err)
	}
	if !set || rec.Fields.Name != "Jane" {
		t.Fatalf("expected trimmed value stored, got set=%v name=%q", set, rec.Fields.Name)
	}

	set, err = rec.SetFieldValue(FieldCallerName, "Robert")
	if err != nil {
		t.Fatalf("SetFieldValue() second write error = %v", err)
	}
	if set {
		t.Fatal("second write must report not-set")
	}
	if rec.Fields.Name != "Jane" {
		t.Fatalf("field overwritten: %q", rec.Fields.Name)
	}
}

func TestSetFieldValueRejectsEmpty(t *testing.T) {
	t.Parallel()

	rec := NewCallRecord("CA1", Company{}, "", time.Now())
	if _, err := rec.SetFieldValue(FieldBackground, "   "); err == nil {
		t.Fatal("expected error for empty value")
	}
	if _, err := rec.SetFieldValue("bogus", "x"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseIntentType(t *testing.T) {
	t.Parallel()

	cases := map[string]IntentType{
		"scam":        IntentScam,
		" SCAM ":      IntentScam,
		"opportunity": IntentOpportunity,
		"other":       IntentOther,
		"gibberish":   IntentOther,
		"":            IntentOther,
	}
	for raw, want := range cases {
		if got := ParseIntentType(raw); got != want {
			t.Fatalf("ParseIntentType(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	var nilRec *CallRecord
	if err := nilRec.Validate(); !errors.Is(err, ErrNilRecord) {
		t.Fatalf("expected ErrNilRecord, got %v", err)
	}

	rec := NewCallRecord("  ", Company{}, "", time.Now())
	if err := rec.Validate(); !errors.Is(err, ErrInvalidCallID) {
		t.Fatalf("expected ErrInvalidCallID, got %v", err)
	}

	rec = NewCallRecord("CA1", Company{}, "", time.Now())
	rec.History = []Turn{{Speaker: "robot", Text: "hi"}}
	if err := rec.Validate(); err == nil {
		t.Fatal("expected error for unknown speaker")
	}

	rec = NewCallRecord("CA1", Company{}, "", time.Now())
	rec.Intent = &Intent{Type: "weird"}
	if err := rec.Validate(); err == nil {
		t.Fatal("expected error for unknown intent type")
	}
}
