package core

import (
	"errors"
	"strings"
)

// NewValue is the dropdown value meaning "the user is typing a new option".
const NewValue = "new"

// FieldKey is the payload key of a categorical field.
type FieldKey string

const (
	FieldCategory    FieldKey = "categorie"
	FieldType        FieldKey = "type_transaction"
	FieldAccount     FieldKey = "compte"
	FieldBeneficiary FieldKey = "beneficiaire"
	FieldFrequency   FieldKey = "frequence"
)

// Keys of the non-categorical draft inputs.
const (
	KeyDate     = "date"
	KeyAmount   = "amount"
	KeyDetails  = "details"
	KeyFuelCost = "fuel_cost"
)

type (
	// Field is one dropdown-backed dimension of a transaction.
	Field struct {
		Key       FieldKey
		Label     string
		SourceKey string // key of the raw list in the options payload

		slot  func(*DraftRecord) *string
		value func(*Entry) *string
	}

	// DraftRecord is the transaction being composed. Values are kept as the
	// user typed them; categorical slots hold an option, NewValue or "".
	DraftRecord struct {
		Date        string
		Amount      string
		Details     string
		FuelCost    string
		Category    string
		Type        string
		Account     string
		Beneficiary string
		Frequency   string
	}

	// PendingNewValues holds the text typed for fields whose slot is NewValue.
	PendingNewValues map[FieldKey]string

	// Entry is the reconciled record sent to the entry sink.
	Entry struct {
		Date        string `json:"date"`
		Category    string `json:"categorie"`
		Type        string `json:"type_transaction"`
		Amount      string `json:"amount"`
		Account     string `json:"compte"`
		Beneficiary string `json:"beneficiaire"`
		Frequency   string `json:"frequence"`
		Details     string `json:"details"`
		FuelCost    string `json:"fuel_cost"`
	}
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidNumber = errors.New("invalid number")
)

// fields is the declared order used for rendering and reconciliation.
var fields = [...]Field{
	{
		Key: FieldCategory, Label: "Catégorie", SourceKey: "categories",
		slot:  func(d *DraftRecord) *string { return &d.Category },
		value: func(e *Entry) *string { return &e.Category },
	},
	{
		Key: FieldType, Label: "Type", SourceKey: "types_frais",
		slot:  func(d *DraftRecord) *string { return &d.Type },
		value: func(e *Entry) *string { return &e.Type },
	},
	{
		Key: FieldAccount, Label: "Compte", SourceKey: "comptes",
		slot:  func(d *DraftRecord) *string { return &d.Account },
		value: func(e *Entry) *string { return &e.Account },
	},
	{
		Key: FieldBeneficiary, Label: "Bénéficiaire", SourceKey: "beneficiaires",
		slot:  func(d *DraftRecord) *string { return &d.Beneficiary },
		value: func(e *Entry) *string { return &e.Beneficiary },
	},
	{
		Key: FieldFrequency, Label: "Fréquence", SourceKey: "frequences",
		slot:  func(d *DraftRecord) *string { return &d.Frequency },
		value: func(e *Entry) *string { return &e.Frequency },
	},
}

// Fields returns the categorical fields in declared order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields[:])
	return out
}

// LookupField returns the categorical field with the given key.
func LookupField(key FieldKey) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Slot returns the value held by the draft for field key.
func (d DraftRecord) Slot(key FieldKey) string {
	f, ok := LookupField(key)
	if !ok {
		return ""
	}
	return *f.slot(&d)
}

// SetSlot assigns a categorical slot.
func (d *DraftRecord) SetSlot(key FieldKey, value string) error {
	f, ok := LookupField(key)
	if !ok {
		return ErrUnknownField
	}
	*f.slot(d) = value
	return nil
}

// IsNew reports whether the slot of key holds the NewValue sentinel.
func (d DraftRecord) IsNew(key FieldKey) bool {
	return d.Slot(key) == NewValue
}

// Clone returns an independent copy.
func (p PendingNewValues) Clone() PendingNewValues {
	out := make(PendingNewValues, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Value returns the categorical value of the entry for field key.
func (e Entry) Value(key FieldKey) string {
	f, ok := LookupField(key)
	if !ok {
		return ""
	}
	return *f.value(&e)
}

// isBlank reports whether a pending value carries no text.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
