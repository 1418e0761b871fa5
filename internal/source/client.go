// Package source fetches current tariffs from the provider's HTTP API.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tariffsync/internal/core"
)

// DefaultTariffsURL is the provider endpoint for box tariffs.
const DefaultTariffsURL = "https://common-api.wildberries.ru/api/v1/tariffs/box"

const defaultTimeout = 30 * time.Second

// ErrMissingToken is returned by FetchAll when no API token is configured.
// It is checked before any network I/O.
var ErrMissingToken = errors.New("tariffs API token is not configured")

// TransportError reports a network failure or a non-2xx HTTP response.
// Status is zero when the request never produced a response.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tariffs API transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("tariffs API transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that does not parse as the expected
// flat JSON array of tariff objects.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tariffs API decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client fetches tariffs from the provider API using bearer-token auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a tariff source client. An empty baseURL falls back to
// DefaultTariffsURL; a non-positive timeout falls back to 30s so a hung
// provider cannot block a run indefinitely.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultTariffsURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
	}
}

// tariffWire is the known subset of a provider tariff object. Everything
// else stays in the raw payload.
type tariffWire struct {
	TariffID string      `json:"tariff_id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
}

// FetchAll retrieves the current tariff list. It returns ErrMissingToken
// before any I/O when no credential is configured, a *TransportError on
// network failure or a non-2xx status, and a *DecodeError when the body is
// not a parseable array of tariff objects. There is no retry at this layer.
func (c *Client) FetchAll(ctx context.Context) ([]core.Tariff, error) {
	if strings.TrimSpace(c.token) == "" {
		return nil, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build tariffs request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("response is not a tariff array: %w", err)}
	}

	tariffs := make([]core.Tariff, 0, len(raws))
	for i, raw := range raws {
		var wire tariffWire
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("tariff %d: %w", i, err)}
		}
		cents, err := core.ParsePriceToCents(wire.Price.String())
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("tariff %d: price %q: %w", i, wire.Price.String(), err)}
		}
		tariff := core.Tariff{
			TariffID: wire.TariffID,
			Name:     wire.Name,
			Price:    core.Money{Cents: cents},
			Raw:      raw,
		}
		if err := tariff.Validate(); err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("tariff %d: %w", i, err)}
		}
		tariffs = append(tariffs, tariff)
	}

	slog.InfoContext(ctx, "Fetched tariffs from provider", "count", len(tariffs))
	return tariffs, nil
}
