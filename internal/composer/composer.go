// Package composer holds one in-progress transaction and its submission
// lifecycle.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/metrics"
	ports "finform/internal/sheets"
)

// State of a composer with respect to submission.
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// GenericErrorMessage is shown when the sink gave no detail.
const GenericErrorMessage = "Erreur lors de l'ajout de la transaction. Veuillez réessayer."

var (
	// ErrSubmitInProgress is returned by Submit while another submission of
	// the same composer is pending.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrBlankNewValue is returned in strict mode when a field is left on
	// the new-value sentinel without text.
	ErrBlankNewValue = errors.New("new value left blank")
)

// SubmissionError wraps any failure to record an entry.
type SubmissionError struct {
	Err    error
	Fields []core.FieldKey // fields left blank, for ErrBlankNewValue
}

func (e *SubmissionError) Error() string { return "submit entry: " + e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

// UserMessage is the text to show the user.
func (e *SubmissionError) UserMessage() string {
	var apiErr *ports.APIError
	switch {
	case errors.As(e.Err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(e.Err, ErrBlankNewValue):
		labels := make([]string, 0, len(e.Fields))
		for _, k := range e.Fields {
			if f, ok := core.LookupField(k); ok {
				labels = append(labels, f.Label)
			}
		}
		return "Veuillez saisir la nouvelle valeur : " + strings.Join(labels, ", ")
	case errors.Is(e.Err, core.ErrInvalidDate):
		return "Veuillez saisir une date valide."
	default:
		return GenericErrorMessage
	}
}

// Result of a successful submission.
type Result struct {
	Message string
	Entry   core.Entry
	// Reset reports whether the draft was cleared.
	Reset bool
}

// Outcome is the single value delivered by SubmitAsync.
type Outcome struct {
	Result Result
	Err    error
}

// Composer owns one DraftRecord and its PendingNewValues. It is safe for
// concurrent use.
type Composer struct {
	sink    ports.EntrySink
	onAdded func()
	reset   bool
	strict  bool
	logger  *log.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	draft   core.DraftRecord
	pending core.PendingNewValues
	edits   uint64
}

// Option configures a Composer.
type Option func(*Composer)

// WithOnAdded registers the host callback run once after each success.
func WithOnAdded(fn func()) Option {
	return func(c *Composer) { c.onAdded = fn }
}

// WithResetOnSuccess clears the draft after a successful submission.
func WithResetOnSuccess(reset bool) Option {
	return func(c *Composer) { c.reset = reset }
}

// WithRejectBlankNewValues refuses to submit a sentinel without text
// instead of sending the sentinel itself.
func WithRejectBlankNewValues(strict bool) Option {
	return func(c *Composer) { c.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) { c.logger = l.WithComponent(log.ComponentComposer) }
}

// WithMetrics records submission outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Composer) { c.metrics = m }
}

// New creates an empty composer submitting to sink.
func New(sink ports.EntrySink, opts ...Option) *Composer {
	c := &Composer{
		sink:    sink,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentComposer),
		pending: core.PendingNewValues{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetField assigns one draft input. Dates and numbers must satisfy the
// constraint of their input type; categorical values are taken as is.
func (c *Composer) SetField(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch key {
	case core.KeyDate:
		if err := core.CheckDateInput(value); err != nil {
			return err
		}
		c.draft.Date = value
	case core.KeyAmount:
		if err := core.CheckNumberInput(value); err != nil {
			return err
		}
		c.draft.Amount = core.NormalizeNumberInput(value)
	case core.KeyFuelCost:
		if err := core.CheckNumberInput(value); err != nil {
			return err
		}
		c.draft.FuelCost = core.NormalizeNumberInput(value)
	case core.KeyDetails:
		c.draft.Details = value
	default:
		if err := c.draft.SetSlot(core.FieldKey(key), value); err != nil {
			return fmt.Errorf("%w: %s", err, key)
		}
	}
	c.edits++
	return nil
}

// SetPendingNew records the text typed for a new value of field. It only
// matters while the field's slot holds the sentinel.
func (c *Composer) SetPendingNew(field core.FieldKey, value string) error {
	if _, ok := core.LookupField(field); !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownField, field)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[field] = value
	c.edits++
	return nil
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() core.DraftRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Pending returns a copy of the pending new values.
func (c *Composer) Pending() core.PendingNewValues {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Clone()
}

// State reports whether a submission is pending.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset clears the draft and pending values.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = core.DraftRecord{}
	c.pending = core.PendingNewValues{}
}

// Submit reconciles the draft and sends it to the sink.
//
// On success the host callback runs once and, in the resetting variant, the
// draft is cleared unless it was edited while the submission was pending.
// On failure the draft is kept and the error is a
// *SubmissionError. A call made while another is pending returns
// ErrSubmitInProgress without reaching the sink.
func (c *Composer) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		c.metrics.ObserveSubmission(metrics.OutcomeInProgress, 0)
		return Result{}, ErrSubmitInProgress
	}
	draft, pending, edits := c.draft, c.pending.Clone(), c.edits

	unresolved := core.UnresolvedNewValues(draft, pending)
	if len(unresolved) > 0 && c.strict {
		c.mu.Unlock()
		c.metrics.ObserveSubmission(metrics.OutcomeRejected, 0)
		return Result{}, &SubmissionError{Err: ErrBlankNewValue, Fields: unresolved}
	}
	entry, err := core.Reconcile(draft, pending)
	if err != nil {
		c.mu.Unlock()
		c.metrics.ObserveSubmission(metrics.OutcomeRejected, 0)
		return Result{}, &SubmissionError{Err: err}
	}
	c.state = Submitting
	c.mu.Unlock()

	if len(unresolved) > 0 {
		c.logger.WarnContext(ctx, "Submitting new-value sentinel without text", log.FieldField, fieldNames(unresolved))
	}

	start := time.Now()
	msg, err := c.sink.AddEntry(ctx, entry)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.state = Idle
	reset := err == nil && c.reset && c.edits == edits
	if reset {
		c.draft = core.DraftRecord{}
		c.pending = core.PendingNewValues{}
	}
	c.mu.Unlock()

	if err != nil {
		c.metrics.ObserveSubmission(metrics.OutcomeError, elapsed)
		c.logger.ErrorContext(ctx, "Erreur lors de l'ajout", log.FieldError, err, log.FieldOperation, log.OpSubmit)
		return Result{}, &SubmissionError{Err: err}
	}

	c.metrics.ObserveSubmission(metrics.OutcomeSuccess, elapsed)
	for _, f := range core.Fields() {
		if draft.IsNew(f.Key) && entry.Value(f.Key) != core.NewValue {
			c.metrics.IncNewValue(string(f.Key))
		}
	}
	if c.onAdded != nil {
		c.onAdded()
	}
	return Result{Message: msg, Entry: entry, Reset: reset}, nil
}

// SubmitAsync runs Submit in the background. The returned channel yields
// exactly one Outcome and is then closed.
func (c *Composer) SubmitAsync(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := c.Submit(ctx)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

func fieldNames(keys []core.FieldKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}
