package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyHTML([]byte("test")).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerEntryAdded("2024-03-05").
		TriggerFormReset().
		TriggerSuccessNotification("Entrée ajoutée").
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if string(triggers[EventEntryAdded]) != `{"date":"2024-03-05"}` {
		t.Errorf("entry:added = %s", triggers[EventEntryAdded])
	}
	if string(triggers[EventFormReset]) != `{}` {
		t.Errorf("form:reset = %s", triggers[EventFormReset])
	}

	var notif struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(triggers[EventNotify], &notif); err != nil {
		t.Fatalf("notification: %v", err)
	}
	if notif.Type != "success" || notif.Message != "Entrée ajoutée" || notif.Duration != 3000 {
		t.Errorf("notification = %+v", notif)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("x"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
		{"not found", NotFoundError("x"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(w.Body.String(), `class="notice error"`) {
				t.Errorf("Body = %q", w.Body.String())
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError("<script>alert('x')</script>").Write(w)
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %q", w.Body.String())
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("GET, HEAD").Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d", w.Code)
	}
	if w.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
}
