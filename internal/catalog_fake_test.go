package internal

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type catalogHandler func(q url.Values) (int, any)

// fakeCatalog serves canned records endpoint responses and records every query.
type fakeCatalog struct {
	server *httptest.Server

	mu       sync.Mutex
	handler  catalogHandler
	requests []url.Values
}

func newFakeCatalog(t *testing.T, handler catalogHandler) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{handler: handler}
	fc.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		fc.mu.Lock()
		fc.requests = append(fc.requests, q)
		h := fc.handler
		fc.mu.Unlock()

		status, body := h(q)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if s, ok := body.(string); ok {
			_, _ = w.Write([]byte(s))
			return
		}
		data, err := json.Marshal(body)
		require.NoError(t, err)
		_, _ = w.Write(data)
	}))
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCatalog) client() CatalogClient {
	return NewCatalogClient(ClientOptions{
		BaseURL:  fc.server.URL,
		TimeZone: "Europe/Paris",
		Timeout:  2 * time.Second,
		SSLCheck: true,
	}, zerolog.Nop())
}

func (fc *fakeCatalog) setHandler(h catalogHandler) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.handler = h
}

func (fc *fakeCatalog) Requests() []url.Values {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]url.Values(nil), fc.requests...)
}

func (fc *fakeCatalog) reset() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.requests = nil
}

func records(total int, rows ...map[string]any) map[string]any {
	if rows == nil {
		rows = []map[string]any{}
	}
	return map[string]any{"total_count": total, "results": rows}
}

func stationRow(id int, lat, lon float64) map[string]any {
	return map[string]any{
		"id":        id,
		"latitude":  lat * coordinateScale,
		"longitude": lon * coordinateScale,
		"cp":        "75012",
		"adresse":   "12 RUE DE BERCY",
		"ville":     "PARIS",
	}
}
