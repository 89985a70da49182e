package core

import (
	"fmt"
	"strings"
)

// EntryRow is one row returned by the entry lister. Keys are the sheet
// headers, values are whatever the sheet holds.
type EntryRow map[string]any

// Get returns the value under key as trimmed text.
func (r EntryRow) Get(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Category returns the category column, which older sheets call "titre".
func (r EntryRow) Category() string {
	if v := r.Get(string(FieldCategory)); v != "" {
		return v
	}
	return r.Get("titre")
}

// Recent returns the last n rows, newest first.
func Recent(rows []EntryRow, n int) []EntryRow {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]EntryRow, 0, n)
	for i := len(rows) - 1; i >= len(rows)-n; i-- {
		out = append(out, rows[i])
	}
	return out
}
