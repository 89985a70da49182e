package core

import "testing"

func TestCheckNumberInput(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"", true},
		{"12", true},
		{"12.50", true},
		{"12,50", true},
		{" 3 ", true},
		{"-4.2", true},
		{"abc", false},
		{"1.2.3", false},
	}
	for _, tc := range cases {
		err := CheckNumberInput(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestNormalizeNumberInput(t *testing.T) {
	if got := NormalizeNumberInput(" 12,50 "); got != "12.50" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatEuros(t *testing.T) {
	cases := map[string]string{
		"12.5":  "12,50 €",
		"3":     "3,00 €",
		"1,239": "1,24 €",
		"":      "",
		"n/a":   "n/a",
	}
	for in, want := range cases {
		if got := FormatEuros(in); got != want {
			t.Fatalf("FormatEuros(%q) = %q, want %q", in, got, want)
		}
	}
}
