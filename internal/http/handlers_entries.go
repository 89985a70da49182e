package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finform/internal/amqp"
	"finform/internal/composer"
	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/sheets"

	"github.com/sony/gobreaker"
)

const publishTimeout = 5 * time.Second

// handleSubmit applies the posted form to the session's composer and submits
// it. The notice replaces #notice; in the resetting variant the cleared
// fields are swapped out of band.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if resp := ParseBodyOrFail(p); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess := s.sessions.get(w, r)

	if errs := applyForm(sess.composer, p); len(errs) > 0 {
		form := buildForm(sess, errs)
		msg := msgInvalidNumber
		if _, ok := errs[core.KeyDate]; ok {
			msg = msgInvalidDate
		}
		s.writeTemplate(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity),
			"submit", submitView{Notice: noticeView{Kind: NotificationError, Message: msg}, Form: &form})
		return
	}

	draft := sess.composer.Draft()
	res, err := sess.composer.Submit(ctx)
	if err != nil {
		s.writeSubmitError(w, r, sess, err)
		return
	}

	newValues := 0
	for _, f := range core.Fields() {
		if draft.IsNew(f.Key) {
			newValues++
		}
	}
	s.events.LogEntryAdded(ctx, sess.id, res.Entry.Date, res.Entry.Amount, res.Entry.Category, newValues)

	view := submitView{Notice: noticeView{Kind: NotificationSuccess, Message: res.Message}}
	resp := NewHTMXResponse().TriggerEntryAdded(res.Entry.Date).TriggerSuccessNotification(res.Message)
	if res.Reset {
		form := buildForm(sess, nil)
		view.Form = &form
		resp.TriggerFormReset()
	}
	s.writeTemplate(w, r, resp, "submit", view)
	s.publishAsync(ctx, sess.id, res)
}

// applyForm copies every posted input into c. It returns the messages of
// the inputs that were refused, keyed by input.
func applyForm(c *composer.Composer, p *RequestBodyParser) map[string]string {
	errs := map[string]string{}
	for _, key := range []string{core.KeyDate, core.KeyAmount, core.KeyDetails, core.KeyFuelCost} {
		if !p.Has(key) {
			continue
		}
		if err := c.SetField(key, p.Get(key)); err != nil {
			errs[key] = inputMessage(err)
		}
	}
	for _, f := range core.Fields() {
		key := string(f.Key)
		if p.Has(key) {
			_ = c.SetField(key, p.Get(key))
		}
		if p.Has(pendingPrefix + key) {
			_ = c.SetPendingNew(f.Key, p.Get(pendingPrefix+key))
		}
	}
	return errs
}

func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, sess *session, err error) {
	status := http.StatusBadGateway
	msg := composer.GenericErrorMessage

	var subErr *composer.SubmissionError
	var apiErr *sheets.APIError
	switch {
	case errors.Is(err, composer.ErrSubmitInProgress):
		status, msg = http.StatusConflict, msgInProgress
	case errors.As(err, &subErr):
		msg = subErr.UserMessage()
		switch {
		case errors.Is(err, composer.ErrBlankNewValue), errors.Is(err, core.ErrInvalidDate):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, sheets.ErrNotConfigured):
			status = http.StatusServiceUnavailable
		case errors.As(err, &apiErr) && apiErr.Status < 500:
			status = http.StatusUnprocessableEntity
		}
	}

	if status >= 500 {
		s.events.LogError(r.Context(), "Entry submission failed", err, log.ComponentComposer, log.OpSubmit,
			log.NewFields().WithSessionID(sess.id))
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Entry refused",
			log.FieldSessionID, sess.id,
			log.FieldError, err)
	}
	s.writeTemplate(w, r, NewHTMXResponse().Status(status).TriggerErrorNotification(msg),
		"submit", submitView{Notice: noticeView{Kind: NotificationError, Message: msg}})
}

// publishAsync announces the entry once the response is written. Shutdown
// waits for pending publishes.
func (s *Server) publishAsync(ctx context.Context, sessionID string, res composer.Result) {
	if s.deps.Publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.publish(ctx, sessionID, res)
	}()
}

// publish announces the entry. Failures are logged and counted only.
func (s *Server) publish(ctx context.Context, sessionID string, res composer.Result) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	msg := amqp.NewEntryAddedMessage(res.Message, res.Entry, sessionID)
	if err := s.deps.Publisher.PublishEntryAdded(pctx, msg); err != nil {
		s.deps.Metrics.IncPublishFailure()
		s.events.LogError(ctx, "Failed to publish entry added event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithSessionID(sessionID))
	}
}

// handleEntries renders the most recent entries, newest first.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	view := entriesView{}
	if s.deps.Lister != nil {
		rows, err := s.recentRows(r.Context())
		if err != nil {
			s.events.LogError(r.Context(), "Failed to list entries", err, log.ComponentSheets, log.OpList, nil)
			view.Error = msgEntriesFailed
		} else {
			view.Rows = buildEntries(core.Recent(rows, s.settings.RecentEntries))
		}
	}
	s.writeTemplate(w, r, NewHTMXResponse(), "entries", view)
}

func (s *Server) recentRows(ctx context.Context) ([]core.EntryRow, error) {
	if rows, ok := s.entries.Get(recentEntriesKey); ok {
		s.deps.Metrics.IncCacheHit("entries")
		return rows, nil
	}
	s.deps.Metrics.IncCacheMiss("entries")
	rows, err := s.deps.Lister.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	s.entries.Set(recentEntriesKey, rows)
	return rows, nil
}
