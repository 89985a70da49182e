package core

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Reconcile builds the submission payload from a draft.
//
// A slot holding NewValue is replaced by its pending text when that text is
// not blank; otherwise the sentinel is sent as is. The text is trimmed, so
// " Foo " is sent as "Foo" and whitespace alone counts as blank. The date
// is reduced to YYYY-MM-DD by FormatEntryDate.
func Reconcile(draft DraftRecord, pending PendingNewValues) (Entry, error) {
	working := draft
	for _, f := range fields {
		slot := f.slot(&working)
		if *slot != NewValue {
			continue
		}
		if v := pending[f.Key]; !isBlank(v) {
			*slot = strings.TrimSpace(v)
		}
	}

	date, err := FormatEntryDate(working.Date)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Date:        date,
		Category:    working.Category,
		Type:        working.Type,
		Amount:      working.Amount,
		Account:     working.Account,
		Beneficiary: working.Beneficiary,
		Frequency:   working.Frequency,
		Details:     working.Details,
		FuelCost:    working.FuelCost,
	}, nil
}

// UnresolvedNewValues lists the fields left on NewValue with no usable text.
func UnresolvedNewValues(draft DraftRecord, pending PendingNewValues) []FieldKey {
	var out []FieldKey
	for _, f := range fields {
		if *f.slot(&draft) == NewValue && isBlank(pending[f.Key]) {
			out = append(out, f.Key)
		}
	}
	return out
}

// FormatEntryDate reduces a date input to YYYY-MM-DD.
//
// Calendar dates pass through unchanged. Instants (RFC 3339 or a
// datetime-local value read in the local zone) are converted to UTC and
// truncated, so an evening time east of UTC keeps the UTC calendar day.
func FormatEntryDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(dateLayout), nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC().Format(dateLayout), nil
		}
	}
	return "", ErrInvalidDate
}

// CheckDateInput applies the constraint of a date input: empty or YYYY-MM-DD.
func CheckDateInput(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}
