package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_FormData(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("categorie=new&new_categorie=+Vacances+&details="))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.IsJSON() {
		t.Fatalf("form body parsed as JSON")
	}
	if got := p.Get("new_categorie"); got != "Vacances" {
		t.Errorf("new_categorie = %q", got)
	}
	if !p.Has("details") || p.Get("details") != "" {
		t.Errorf("empty values must still be present")
	}
	if p.Has("amount") {
		t.Errorf("amount was not posted")
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"field":"amount","amount":12.5,"details":"a\u0007b"}`))
	r.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.IsJSON() {
		t.Fatalf("expected JSON")
	}
	if p.Get("amount") != "12.5" {
		t.Errorf("amount = %q", p.Get("amount"))
	}
	if p.Get("details") != "ab" {
		t.Errorf("control characters should be dropped, got %q", p.Get("details"))
	}
	if p.Has("date") {
		t.Errorf("date was not posted")
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"field":`},
		{"too large", "details=" + strings.Repeat("x", maxFormBytes)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(tt.body))
			p := NewRequestBodyParser(r)
			if resp := ParseBodyOrFail(p); resp == nil {
				t.Fatalf("expected failure")
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/ui/reload", nil)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Get("anything") != "" || p.Has("anything") {
		t.Errorf("empty body should have no values")
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		method  string
		allowed []string
		wantNil bool
	}{
		{http.MethodPost, []string{http.MethodPost}, true},
		{http.MethodGet, []string{http.MethodGet, http.MethodHead}, true},
		{http.MethodGet, []string{http.MethodPost}, false},
		{http.MethodDelete, []string{http.MethodGet, http.MethodHead}, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, "/", nil)
		if got := RequireMethod(r, tt.allowed...) == nil; got != tt.wantNil {
			t.Errorf("RequireMethod(%s, %v) nil = %v, want %v", tt.method, tt.allowed, got, tt.wantNil)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  Courses  ":     "Courses",
		"a\x00b":          "ab",
		"ligne\nsuivante": "ligne\nsuivante",
		"\t":              "",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
