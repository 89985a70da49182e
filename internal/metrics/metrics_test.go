package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveOptionLoad(time.Millisecond, nil)
	m.ObserveOptionLoad(time.Millisecond, errors.New("down"))
	m.ObserveSubmission(OutcomeSuccess, 10*time.Millisecond)
	m.ObserveSubmission(OutcomeSuccess, 10*time.Millisecond)
	m.ObserveSubmission(OutcomeError, 0)

	if got := m.OptionFailureCount(); got != 1 {
		t.Fatalf("option failures = %v", got)
	}
	if got := m.SubmissionCount(OutcomeSuccess); got != 2 {
		t.Fatalf("successes = %v", got)
	}
	if got := m.SubmissionCount(OutcomeError); got != 1 {
		t.Fatalf("errors = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOptionLoad(time.Second, nil)
	m.ObserveSubmission(OutcomeSuccess, time.Second)
	m.IncNewValue("compte")
	m.IncCacheHit("entries")
	m.IncHTTPRequest("GET", "2xx")
	m.IncPublishFailure()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetOptionCount("categorie", 4)
	m.IncNewValue("compte")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{`finform_options{field="categorie"} 4`, `finform_new_values_total{field="compte"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in exposition", want)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveSubmission(OutcomeSuccess, 0)
	if b.SubmissionCount(OutcomeSuccess) != 0 {
		t.Fatalf("registries share state")
	}
}
