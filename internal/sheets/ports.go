package sheets

import (
	"context"
	"errors"
	"fmt"

	"finform/internal/core"
)

// Ports for outbound adapters. The transactions live in a spreadsheet behind
// the finance service; adapters reach it through the service or directly.
type (
	// OptionSource returns the raw dropdown lists keyed by source key
	// ("categories", "types_frais", ...). Values are unordered and may be
	// duplicated or empty.
	OptionSource interface {
		RawOptions(ctx context.Context) (map[string][]string, error)
	}

	// EntrySink records a reconciled entry and returns the confirmation
	// message to show the user.
	EntrySink interface {
		AddEntry(ctx context.Context, e core.Entry) (message string, err error)
	}

	// EntryLister returns the recorded entries in sheet order.
	EntryLister interface {
		ListEntries(ctx context.Context) ([]core.EntryRow, error)
	}

	// Pinger checks that the backing service answers.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// ErrNotConfigured is returned by adapters built without a backing service.
var ErrNotConfigured = errors.New("sheets service not initialized")

// APIError is a non-2xx answer from the finance service. Detail carries the
// service's own explanation when it sent one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("finance service returned status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("finance service returned status %d", e.Status)
}
