package core

import (
	"errors"
	"testing"
)

func TestFieldsDeclaredOrder(t *testing.T) {
	want := []FieldKey{FieldCategory, FieldType, FieldAccount, FieldBeneficiary, FieldFrequency}
	got := Fields()
	if len(got) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(got))
	}
	for i, f := range got {
		if f.Key != want[i] {
			t.Fatalf("field %d = %s, want %s", i, f.Key, want[i])
		}
		if f.Label == "" || f.SourceKey == "" {
			t.Fatalf("field %s missing label or source key", f.Key)
		}
	}
}

func TestFieldsReturnsCopy(t *testing.T) {
	f := Fields()
	f[0].Label = "changed"
	if Fields()[0].Label == "changed" {
		t.Fatalf("Fields exposes internal table")
	}
}

func TestDraftSlots(t *testing.T) {
	var d DraftRecord
	for _, f := range Fields() {
		if err := d.SetSlot(f.Key, "v-"+string(f.Key)); err != nil {
			t.Fatalf("SetSlot(%s): %v", f.Key, err)
		}
	}
	for _, f := range Fields() {
		if got := d.Slot(f.Key); got != "v-"+string(f.Key) {
			t.Fatalf("Slot(%s) = %q", f.Key, got)
		}
	}
	if err := d.SetSlot("titre", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if d.IsNew(FieldCategory) {
		t.Fatalf("slot is not the sentinel")
	}
	_ = d.SetSlot(FieldCategory, NewValue)
	if !d.IsNew(FieldCategory) {
		t.Fatalf("slot should be the sentinel")
	}
}

func TestPendingClone(t *testing.T) {
	p := PendingNewValues{FieldAccount: "Livret"}
	c := p.Clone()
	c[FieldAccount] = "other"
	if p[FieldAccount] != "Livret" {
		t.Fatalf("clone shares storage")
	}
}

func TestEntryValue(t *testing.T) {
	e := Entry{Category: "A", Frequency: "F"}
	if e.Value(FieldCategory) != "A" || e.Value(FieldFrequency) != "F" {
		t.Fatalf("unexpected values: %+v", e)
	}
	if e.Value("unknown") != "" {
		t.Fatalf("unknown key should be empty")
	}
}

func TestEntryRow(t *testing.T) {
	r := EntryRow{"titre": " Courses ", "amount": 12.5, "ID": float64(3)}
	if r.Category() != "Courses" {
		t.Fatalf("category fallback = %q", r.Category())
	}
	if r.Get("ID") != "3" || r.Get("amount") != "12.5" {
		t.Fatalf("numbers: id=%q amount=%q", r.Get("ID"), r.Get("amount"))
	}
	rows := []EntryRow{{"ID": "1"}, {"ID": "2"}, {"ID": "3"}}
	got := Recent(rows, 2)
	if len(got) != 2 || got[0].Get("ID") != "3" || got[1].Get("ID") != "2" {
		t.Fatalf("recent = %v", got)
	}
	if Recent(rows, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}
