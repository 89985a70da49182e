package core

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Language drives option casing and ordering.
var Language = language.French

type (
	// OptionList is the ordered set of choices shown for one field.
	OptionList []string

	// Options holds the option lists of one load, keyed by field.
	Options map[FieldKey]OptionList
)

// For returns the list for key, or an empty list.
func (o Options) For(key FieldKey) OptionList {
	if l, ok := o[key]; ok {
		return l
	}
	return OptionList{}
}

// Contains reports whether v is one of the options.
func (l OptionList) Contains(v string) bool {
	for _, o := range l {
		if o == v {
			return true
		}
	}
	return false
}

// NormalizeOptions turns a raw backend list into display options.
//
// Steps run in this order: exact-match dedup, drop empty values, impose
// "Xxxx" casing, then sort with a collator that ignores case but keeps
// diacritics significant. Because dedup runs before casing, "lyon" and
// "LYON" both survive as "Lyon".
func NormalizeOptions(raw []string) OptionList {
	seen := make(map[string]struct{}, len(raw))
	out := make(OptionList, 0, len(raw))

	upper := cases.Upper(Language)
	lower := cases.Lower(Language)
	for _, v := range raw {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if v == "" {
			continue
		}
		out = append(out, capitalize(v, upper, lower))
	}

	c := collate.New(Language, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i], out[j]) < 0
	})
	return out
}

// NormalizeAll normalizes every field's raw list found in payload. Missing
// source keys give empty lists.
func NormalizeAll(payload map[string][]string) Options {
	opts := make(Options, len(fields))
	for _, f := range fields {
		opts[f.Key] = NormalizeOptions(payload[f.SourceKey])
	}
	return opts
}

// EmptyOptions returns an empty list for every field.
func EmptyOptions() Options {
	return NormalizeAll(nil)
}

func capitalize(s string, upper, lower cases.Caser) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return lower.String(s)
	}
	return upper.String(s[:size]) + lower.String(s[size:])
}
