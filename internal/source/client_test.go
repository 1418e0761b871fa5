package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchAll_Success(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"tariff_id":"T1","name":"Box Small","price":12.5,"zone":"EU","delivery_days":3},
			{"tariff_id":"T2","name":"Box Large","price":"99,90"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token", 5*time.Second)
	tariffs, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization header = %q, want bearer token", gotAuth)
	}
	if len(tariffs) != 2 {
		t.Fatalf("got %d tariffs, want 2", len(tariffs))
	}
	if tariffs[0].TariffID != "T1" || tariffs[0].Name != "Box Small" || tariffs[0].Price.Cents != 1250 {
		t.Errorf("unexpected first tariff: %+v", tariffs[0])
	}
	if tariffs[1].Price.Cents != 9990 {
		t.Errorf("comma-separated price not parsed: %+v", tariffs[1])
	}
	// Provider-specific fields must survive in the raw payload
	if !strings.Contains(string(tariffs[0].Raw), `"zone":"EU"`) {
		t.Errorf("raw payload dropped provider fields: %s", tariffs[0].Raw)
	}
}

func TestFetchAll_MissingToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.FetchAll(context.Background())
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if calls != 0 {
		t.Errorf("no request should be sent without a token, got %d calls", calls)
	}
}

func TestFetchAll_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", 5*time.Second)
	_, err := c.FetchAll(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if te.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want %d", te.Status, http.StatusTooManyRequests)
	}
}

func TestFetchAll_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "token", time.Second)
	_, err := c.FetchAll(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if te.Status != 0 {
		t.Errorf("Status = %d, want 0 for pre-response failure", te.Status)
	}
}

func TestFetchAll_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>maintenance</html>`},
		{name: "object instead of array", body: `{"tariffs":[]}`},
		{name: "bad price", body: `[{"tariff_id":"T1","name":"Box","price":"free"}]`},
		{name: "missing id", body: `[{"name":"Box","price":1}]`},
		{name: "missing price", body: `[{"tariff_id":"T1","name":"Box"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "token", 5*time.Second)
			_, err := c.FetchAll(context.Background())

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T: %v", err, err)
			}
		})
	}
}

func TestFetchAll_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", 5*time.Second)
	tariffs, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(tariffs) != 0 {
		t.Errorf("got %d tariffs, want 0", len(tariffs))
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "token", 0)
	if c.baseURL != DefaultTariffsURL {
		t.Errorf("baseURL = %q, want default", c.baseURL)
	}
	if c.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, defaultTimeout)
	}
}
