package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"finform/internal/core"
	ports "finform/internal/sheets"
)

// AddedMessage is the confirmation returned for every stored entry.
const AddedMessage = "Entrée ajoutée avec succès !"

var (
	_ ports.OptionSource = (*Store)(nil)
	_ ports.EntrySink    = (*Store)(nil)
	_ ports.EntryLister  = (*Store)(nil)
	_ ports.Pinger       = (*Store)(nil)
)

var defaultSeeds = map[string][]string{
	"categories":    {"Courses", "Logement", "Transport", "Loisirs"},
	"types_frais":   {"Dépense", "Revenu", "Virement"},
	"comptes":       {"Compte courant", "Livret A"},
	"beneficiaires": {"Supermarché", "Propriétaire", "Station-service"},
	"frequences":    {"Ponctuelle", "Mensuelle", "Annuelle"},
}

// Store keeps options and entries in process. Values of stored entries are
// offered as options, the way a sheet-backed service derives them from its
// rows.
type Store struct {
	mu    sync.Mutex
	seeds map[string][]string
	items []core.Entry
}

// New creates a store seeded with raw option lists keyed by source key.
func New(seeds map[string][]string) *Store {
	cp := make(map[string][]string, len(seeds))
	for k, v := range seeds {
		cp[k] = append([]string(nil), v...)
	}
	return &Store{seeds: cp}
}

// NewFromFiles seeds each field from base/seed_<source key>.txt, one option
// per line. Missing or empty files fall back to built-in defaults.
func NewFromFiles(base string) *Store {
	seeds := make(map[string][]string, len(defaultSeeds))
	for _, f := range core.Fields() {
		lines := readLines(filepath.Join(base, "seed_"+f.SourceKey+".txt"))
		if len(lines) == 0 {
			lines = defaultSeeds[f.SourceKey]
		}
		seeds[f.SourceKey] = lines
	}
	return New(seeds)
}

// RawOptions returns the seeds followed by the values of stored entries.
// Duplicates are left for the caller to remove.
func (s *Store) RawOptions(_ context.Context) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.seeds))
	for k, v := range s.seeds {
		out[k] = append([]string(nil), v...)
	}
	for _, e := range s.items {
		for _, f := range core.Fields() {
			if v := e.Value(f.Key); v != "" && v != core.NewValue {
				out[f.SourceKey] = append(out[f.SourceKey], v)
			}
		}
	}
	return out, nil
}

// AddEntry stores the entry.
func (s *Store) AddEntry(_ context.Context, e core.Entry) (string, error) {
	if e.Date == "" {
		return "", fmt.Errorf("add entry: %w", core.ErrInvalidDate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return AddedMessage, nil
}

// ListEntries returns the stored entries as rows, oldest first.
func (s *Store) ListEntries(_ context.Context) ([]core.EntryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]core.EntryRow, 0, len(s.items))
	for i, e := range s.items {
		rows = append(rows, core.EntryRow{
			"ID":                          float64(i + 1),
			core.KeyDate:                  e.Date,
			string(core.FieldCategory):    e.Category,
			string(core.FieldType):        e.Type,
			core.KeyAmount:                e.Amount,
			string(core.FieldAccount):     e.Account,
			string(core.FieldBeneficiary): e.Beneficiary,
			string(core.FieldFrequency):   e.Frequency,
			core.KeyDetails:               e.Details,
			core.KeyFuelCost:              e.FuelCost,
		})
	}
	return rows, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
