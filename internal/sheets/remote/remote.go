// Package remote is the HTTP client of the finance service: dropdown
// options, entry submission and entry listing.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finform/internal/core"
	ports "finform/internal/sheets"

	"github.com/sony/gobreaker"
)

const (
	pathOptions = "/get_dropdown_options"
	pathAdd     = "/add_entry"
	pathEntries = "/get_entries"

	maxBodyBytes = 4 << 20
)

// Ensure interface conformance
var (
	_ ports.OptionSource = (*Client)(nil)
	_ ports.EntrySink    = (*Client)(nil)
	_ ports.EntryLister  = (*Client)(nil)
	_ ports.Pinger       = (*Client)(nil)
)

// Client talks to the finance service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.cb = cb }
}

// WithTimeout bounds every call. Zero leaves calls bounded only by their
// context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		cb:         NewBreaker("finance-api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewBreaker creates the breaker guarding the finance service. Answers the
// service gave on purpose (4xx) do not count as failures.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *ports.APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// RawOptions fetches the raw dropdown lists. Numbers read from the sheet are
// converted to text; keys whose value is not a list are skipped.
func (c *Client) RawOptions(ctx context.Context) (map[string][]string, error) {
	var payload map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, pathOptions, nil, &payload); err != nil {
		return nil, fmt.Errorf("get dropdown options: %w", err)
	}
	out := make(map[string][]string, len(payload))
	for key, raw := range payload {
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			slog.WarnContext(ctx, "Ignoring non-list dropdown key", "key", key)
			continue
		}
		values := make([]string, 0, len(items))
		for _, it := range items {
			values = append(values, textValue(it))
		}
		out[key] = values
	}
	return out, nil
}

// AddEntry posts the entry and returns the service's confirmation message.
func (c *Client) AddEntry(ctx context.Context, e core.Entry) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode entry: %w", err)
	}
	var resp struct {
		Message *string `json:"message"`
		ID      any     `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, pathAdd, body, &resp); err != nil {
		return "", fmt.Errorf("add entry: %w", err)
	}
	if resp.Message == nil {
		return "", errors.New("add entry: response without message")
	}
	slog.DebugContext(ctx, "Entry accepted by finance service", "id", resp.ID)
	return *resp.Message, nil
}

// ListEntries returns every recorded row.
func (c *Client) ListEntries(ctx context.Context) ([]core.EntryRow, error) {
	var rows []core.EntryRow
	if err := c.do(ctx, http.MethodGet, pathEntries, nil, &rows); err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	return rows, nil
}

// Ping checks the service root answers 2xx.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/", nil, nil); err != nil {
		return fmt.Errorf("ping finance service: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c.baseURL == "" {
		return ports.ErrNotConfigured
	}
	_, err := c.cb.Execute(func() (any, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &ports.APIError{Status: resp.StatusCode, Detail: parseDetail(data)}
		}
		if out == nil {
			return nil, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, nil
	})
	return err
}

// parseDetail extracts the "detail" of an error body. Validation errors carry
// a list of {"msg": ...} objects, which are joined.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// textValue renders a JSON scalar; null, false and 0 become "" so they are
// dropped with the other empty values.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if !t {
			return ""
		}
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
