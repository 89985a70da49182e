package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finform/internal/core"
	"finform/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks the backing service answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"sessions":     s.sessions.size(),
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients(), "rejected": s.limiter.Rejected()},
	}
	if s.deps.Pinger == nil {
		checks["backend"] = "not_configured"
	} else if err := s.deps.Pinger.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex mounts the session and renders the form page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page introuvable").Write(w)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessions.get(w, r)
	s.writeTemplate(w, r, NewHTMXResponse(), "index.html", pageView{Form: buildForm(sess, nil)})
}

// handleOptions returns the option lists of the session as JSON.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessions.get(w, r)
	opts := sess.Options()
	out := make(map[string][]string, len(opts))
	for _, f := range core.Fields() {
		out[string(f.Key)] = opts.For(f.Key)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReload re-mounts the session: options are fetched again, the draft
// is kept.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessions.get(w, r)
	s.sessions.remount(r.Context(), sess)
	s.writeTemplate(w, r, NewHTMXResponse(), "fields", buildForm(sess, nil))
}

// handleField applies one input of the form and re-renders its block.
// The posted "field" names the input; its value is read under its own name,
// and a categorical field's new-value text under "new_<field>".
func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if resp := ParseBodyOrFail(p); resp != nil {
		resp.Write(w)
		return
	}
	sess := s.sessions.get(w, r)
	key := p.Get("field")

	if f, ok := core.LookupField(core.FieldKey(key)); ok {
		errs := map[string]string{}
		if p.Has(key) {
			if err := sess.composer.SetField(key, p.Get(key)); err != nil {
				errs[key] = inputMessage(err)
			}
		}
		if p.Has(pendingPrefix + key) {
			_ = sess.composer.SetPendingNew(f.Key, p.Get(pendingPrefix+key))
		}
		form := buildForm(sess, errs)
		s.writeTemplate(w, r, NewHTMXResponse(), "field", fieldByKey(form, key))
		return
	}

	in, ok := inputByKey(buildForm(sess, nil), key)
	if !ok {
		BadRequestError(msgUnknownField).Write(w)
		return
	}
	if err := sess.composer.SetField(key, p.Get(key)); err != nil {
		in.Value = p.Get(key)
		in.Error = inputMessage(err)
	} else {
		in, _ = inputByKey(buildForm(sess, nil), key)
	}
	s.writeTemplate(w, r, NewHTMXResponse(), "input", in)
}

func fieldByKey(form formView, key string) fieldView {
	for _, f := range form.Fields {
		if f.Key == key {
			return f
		}
	}
	return fieldView{}
}

func inputByKey(form formView, key string) (inputView, bool) {
	for _, in := range []inputView{form.Date, form.Amount, form.Details, form.FuelCost} {
		if in.Key == key {
			return in, true
		}
	}
	return inputView{}, false
}

func inputMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return msgInvalidDate
	case errors.Is(err, core.ErrInvalidNumber):
		return msgInvalidNumber
	default:
		return msgUnknownField
	}
}

// writeTemplate renders a template into resp and sends it. Rendering happens
// before anything is written so a failure still yields a clean 500.
func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender, log.LogFields{"template": name})
		InternalServerError("Erreur interne").Write(w)
		return
	}
	resp.BodyHTML(buf.Bytes()).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
