// Package options loads the dropdown choices of the entry form.
package options

import (
	"context"
	"time"

	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/metrics"
	ports "finform/internal/sheets"

	"golang.org/x/sync/singleflight"
)

// Loader fetches raw lists from an option source and normalizes them.
// Concurrent loads share one fetch.
type Loader struct {
	source  ports.OptionSource
	logger  *log.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the operator log channel.
func WithLogger(l *log.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l.WithComponent(log.ComponentOptions) }
}

// WithMetrics records load outcomes.
func WithMetrics(m *metrics.Metrics) LoaderOption {
	return func(ld *Loader) { ld.metrics = m }
}

// NewLoader creates a loader reading from source.
func NewLoader(source ports.OptionSource, opts ...LoaderOption) *Loader {
	ld := &Loader{
		source: source,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentOptions),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load returns the normalized options of every field. It never fails: when
// the source errors, the failure is logged and every list is empty; a
// missing source key gives an empty list for that field only.
//
// The shared fetch is detached from the caller's context, so a caller that
// goes away only gives up its own result.
func (ld *Loader) Load(ctx context.Context) core.Options {
	fetchCtx := context.WithoutCancel(ctx)
	ch := ld.group.DoChan("options", func() (any, error) {
		return ld.fetch(fetchCtx), nil
	})
	select {
	case res := <-ch:
		return clone(res.Val.(core.Options))
	case <-ctx.Done():
		ld.logger.WarnContext(ctx, "Option load abandoned", log.FieldError, ctx.Err(), log.FieldOperation, log.OpLoad)
		return core.EmptyOptions()
	}
}

func (ld *Loader) fetch(ctx context.Context) core.Options {
	start := time.Now()
	raw, err := ld.source.RawOptions(ctx)
	ld.metrics.ObserveOptionLoad(time.Since(start), err)
	if err != nil {
		ld.logger.ErrorContext(ctx, "Erreur lors de la récupération des options", log.FieldError, err, log.FieldOperation, log.OpLoad)
		return core.EmptyOptions()
	}

	opts := core.NormalizeAll(raw)
	for _, f := range core.Fields() {
		if _, ok := raw[f.SourceKey]; !ok {
			ld.logger.DebugContext(ctx, "Option list missing from payload", log.FieldSourceKey, f.SourceKey)
		}
		ld.metrics.SetOptionCount(string(f.Key), len(opts[f.Key]))
	}
	ld.logger.DebugContext(ctx, "Options loaded", log.FieldDuration, time.Since(start).Milliseconds())
	return opts
}

// clone gives each caller its own snapshot; a shared fetch result must not
// be aliased between sessions.
func clone(in core.Options) core.Options {
	out := make(core.Options, len(in))
	for k, v := range in {
		out[k] = append(core.OptionList(nil), v...)
		if out[k] == nil {
			out[k] = core.OptionList{}
		}
	}
	return out
}
