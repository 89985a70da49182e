package google

import (
	"fmt"
	"strings"

	"finform/internal/core"
)

// columnAliases lists extra header names accepted for a field.
var columnAliases = map[core.FieldKey][]string{
	core.FieldCategory: {"titre"},
}

// columnOptions collects the unique non-empty values of every categorical
// column, in sheet order. Columns missing from the header give no key.
func columnOptions(values [][]any) map[string][]string {
	if len(values) == 0 {
		return map[string][]string{}
	}
	headers := toStrings(values[0])
	out := make(map[string][]string)
	for _, f := range core.Fields() {
		col := findColumn(headers, f.Key)
		if col == -1 {
			continue
		}
		seen := map[string]struct{}{}
		list := []string{}
		for _, raw := range values[1:] {
			v := safeGet(toStrings(raw), col)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			list = append(list, v)
		}
		out[f.SourceKey] = list
	}
	return out
}

// rowsFromValues maps each data row onto the header row. Rows with no
// content are skipped.
func rowsFromValues(values [][]any) []core.EntryRow {
	if len(values) == 0 {
		return nil
	}
	headers := toStrings(values[0])
	rows := make([]core.EntryRow, 0, len(values)-1)
	for _, raw := range values[1:] {
		cols := toStrings(raw)
		row := core.EntryRow{}
		empty := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			v := safeGet(cols, i)
			if v != "" {
				empty = false
			}
			row[h] = v
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows
}

func findColumn(headers []string, key core.FieldKey) int {
	if i := indexOf(headers, string(key)); i != -1 {
		return i
	}
	for _, alias := range columnAliases[key] {
		if i := indexOf(headers, alias); i != -1 {
			return i
		}
	}
	return -1
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
