package core

import (
	"errors"
	"testing"
	"time"
)

func filledDraft() DraftRecord {
	return DraftRecord{
		Date:        "2024-03-05",
		Amount:      "42.10",
		Details:     "plein",
		FuelCost:    "1.89",
		Category:    "Transport",
		Type:        "Dépense",
		Account:     "Courant",
		Beneficiary: "Total",
		Frequency:   "Ponctuelle",
	}
}

func TestReconcileKeepsExistingValues(t *testing.T) {
	e, err := Reconcile(filledDraft(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Entry{
		Date: "2024-03-05", Category: "Transport", Type: "Dépense", Amount: "42.10",
		Account: "Courant", Beneficiary: "Total", Frequency: "Ponctuelle",
		Details: "plein", FuelCost: "1.89",
	}
	if e != want {
		t.Fatalf("got %+v, want %+v", e, want)
	}
}

func TestReconcileNewValueWithPendingText(t *testing.T) {
	d := filledDraft()
	d.Category = NewValue
	e, err := Reconcile(d, PendingNewValues{FieldCategory: "Loisirs"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Category != "Loisirs" {
		t.Fatalf("category = %q, want pending value", e.Category)
	}
}

func TestReconcileTrimsPendingText(t *testing.T) {
	d := filledDraft()
	d.Beneficiary = NewValue
	e, err := Reconcile(d, PendingNewValues{FieldBeneficiary: "  Boulangerie Martin \t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Beneficiary != "Boulangerie Martin" {
		t.Fatalf("beneficiary = %q, want trimmed pending value", e.Beneficiary)
	}
}

func TestReconcileNewValueWithBlankPendingSendsSentinel(t *testing.T) {
	d := filledDraft()
	d.Account = NewValue
	for _, pending := range []PendingNewValues{nil, {FieldAccount: ""}, {FieldAccount: "   "}} {
		e, err := Reconcile(d, pending)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Account != NewValue {
			t.Fatalf("account = %q, want literal sentinel", e.Account)
		}
	}
	if got := UnresolvedNewValues(d, nil); len(got) != 1 || got[0] != FieldAccount {
		t.Fatalf("unresolved = %v", got)
	}
}

func TestReconcileIgnoresPendingWhenSlotIsNotSentinel(t *testing.T) {
	e, err := Reconcile(filledDraft(), PendingNewValues{FieldCategory: "Ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Category != "Transport" {
		t.Fatalf("category = %q", e.Category)
	}
}

func TestReconcileDoesNotMutateDraft(t *testing.T) {
	d := filledDraft()
	d.Frequency = NewValue
	if _, err := Reconcile(d, PendingNewValues{FieldFrequency: "Mensuelle"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Frequency != NewValue {
		t.Fatalf("draft mutated: %q", d.Frequency)
	}
}

func TestReconcileInvalidDate(t *testing.T) {
	d := filledDraft()
	d.Date = ""
	if _, err := Reconcile(d, nil); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestFormatEntryDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{" 2024-12-31 ", "2024-12-31", true},
		{"2024-03-05T23:30:00+02:00", "2024-03-05", true},
		{"2024-03-06T01:30:00+02:00", "2024-03-05", true},
		{"2024-03-05T10:00:00Z", "2024-03-05", true},
		{"", "", false},
		{"05/03/2024", "", false},
		{"2024-02-30", "", false},
	}
	for _, tc := range cases {
		got, err := FormatEntryDate(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q err=%v, want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error, got %q", tc.in, got)
		}
	}
}

func TestFormatEntryDateLocalDateTimeUsesUTCDay(t *testing.T) {
	old := time.Local
	time.Local = time.FixedZone("UTC+2", 2*60*60)
	defer func() { time.Local = old }()

	got, err := FormatEntryDate("2024-03-06T01:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024-03-05" {
		t.Fatalf("got %q, want the UTC calendar day", got)
	}
}

func TestCheckDateInput(t *testing.T) {
	if err := CheckDateInput(""); err != nil {
		t.Fatalf("empty should be accepted: %v", err)
	}
	if err := CheckDateInput("2024-03-05"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckDateInput("yesterday"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
