package options

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/metrics"
)

type fakeSource struct {
	raw   map[string][]string
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeSource) RawOptions(ctx context.Context) (map[string][]string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.raw, f.err
}

func newLoader(src *fakeSource, m *metrics.Metrics) *Loader {
	return NewLoader(src, WithLogger(log.Discard()), WithMetrics(m))
}

func TestLoadNormalizesEachField(t *testing.T) {
	src := &fakeSource{raw: map[string][]string{
		"categories":  {"b", "a", "a"},
		"comptes":     {"paris", "LYON", "", "lyon"},
		"types_frais": {"élan", "Eau", "zèbre"},
	}}
	got := newLoader(src, nil).Load(context.Background())

	want := map[core.FieldKey]core.OptionList{
		core.FieldCategory:    {"A", "B"},
		core.FieldAccount:     {"Lyon", "Lyon", "Paris"},
		core.FieldType:        {"Eau", "Élan", "Zèbre"},
		core.FieldBeneficiary: {},
		core.FieldFrequency:   {},
	}
	for k, w := range want {
		if !reflect.DeepEqual(got.For(k), w) {
			t.Fatalf("%s = %q, want %q", k, got.For(k), w)
		}
	}
}

func TestLoadFailureGivesEmptyLists(t *testing.T) {
	m := metrics.New()
	src := &fakeSource{err: errors.New("connection refused")}
	got := newLoader(src, m).Load(context.Background())

	for _, f := range core.Fields() {
		l, ok := got[f.Key]
		if !ok || len(l) != 0 {
			t.Fatalf("%s: expected empty list, got %q (present=%v)", f.Key, l, ok)
		}
	}
	if m.OptionFailureCount() != 1 {
		t.Fatalf("failure not counted")
	}
}

func TestLoadSharesConcurrentFetches(t *testing.T) {
	src := &fakeSource{raw: map[string][]string{"categories": {"x"}}, gate: make(chan struct{})}
	ld := newLoader(src, nil)

	var wg sync.WaitGroup
	results := make([]core.Options, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ld.Load(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if n := src.calls.Load(); n < 1 || n > 5 {
		t.Fatalf("unexpected fetch count %d", n)
	}
	results[0][core.FieldCategory][0] = "changed"
	for i := 1; i < len(results); i++ {
		if results[i].For(core.FieldCategory)[0] != "X" {
			t.Fatalf("snapshots are aliased")
		}
	}
}

func TestLoadRefetchesAfterCompletion(t *testing.T) {
	src := &fakeSource{raw: map[string][]string{}}
	ld := newLoader(src, nil)
	ld.Load(context.Background())
	ld.Load(context.Background())
	if src.calls.Load() != 2 {
		t.Fatalf("each mount should fetch, got %d calls", src.calls.Load())
	}
}

func TestCancelledCallerDoesNotEmptyOthers(t *testing.T) {
	src := &fakeSource{raw: map[string][]string{"categories": {"x"}}, gate: make(chan struct{})}
	ld := newLoader(src, nil)

	gone, cancel := context.WithCancel(context.Background())
	cancel()

	first := make(chan core.Options, 1)
	go func() { first <- ld.Load(gone) }()
	time.Sleep(20 * time.Millisecond)

	second := make(chan core.Options, 1)
	go func() { second <- ld.Load(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(src.gate)

	if got := (<-first).For(core.FieldCategory); len(got) != 0 {
		t.Fatalf("cancelled caller got %q, want empty", got)
	}
	if got := (<-second).For(core.FieldCategory); len(got) != 1 || got[0] != "X" {
		t.Fatalf("live caller got %q, want [X]", got)
	}
}
