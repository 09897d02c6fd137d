// internal/api/handler/api/signals_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/storage/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *signal.MemoryStore {
	t.Helper()
	store := signal.NewMemoryStore(signal.Options{})
	t.Cleanup(store.Close)
	return store
}

type countingRecorder struct {
	ingested map[string]int
	ticks    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ingested: map[string]int{}, ticks: map[string]int{}}
}

func (c *countingRecorder) RecordIngested(source string) { c.ingested[source]++ }
func (c *countingRecorder) RecordTick(symbol string)     { c.ticks[symbol]++ }

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestSignalsHandler_Ingest(t *testing.T) {
	store := newStore(t)
	rec := newCountingRecorder()
	h := NewSignalsHandler(store, rec, nil)

	w := post(h.Ingest, `{"id":"s1","symbol":"mnq","direction":"long","signal_type":"entry","entry_price":19000,"confidence":82}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "s1", resp.SignalID)
	assert.Equal(t, "entry", resp.SignalType)
	assert.False(t, resp.DryRun)
	assert.True(t, resp.Created)
	assert.False(t, resp.Timestamp.IsZero())

	sig, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "MNQ", sig.Symbol)
	assert.InDelta(t, 0.82, sig.Confidence, 1e-9)
	assert.Equal(t, 1, rec.ingested[SourceHTTP])
}

func TestSignalsHandler_IngestDryRun(t *testing.T) {
	store := newStore(t)
	h := NewSignalsHandler(store, nil, nil)

	w := post(h.Ingest, `{"id":"s1","symbol":"NQ","direction":"short","dry_run":true}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.DryRun)
	assert.Equal(t, "signal", resp.SignalType)
	assert.Zero(t, store.Len(), "dry run never touches the board")
}

func TestSignalsHandler_IngestErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"missing fields", `{"symbol":"NQ"}`, http.StatusBadRequest, "id is required"},
		{"bad direction", `{"id":"a","symbol":"NQ","direction":"sideways"}`, http.StatusBadRequest, "direction"},
		{"bad json", `{"id":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			h := NewSignalsHandler(store, nil, nil)

			w := post(h.Ingest, tt.body)
			assert.Equal(t, tt.status, w.Code)

			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			if tt.detail != "" {
				assert.Contains(t, resp.Details, tt.detail)
			}
			assert.Zero(t, store.Len())
		})
	}
}

func TestSignalsHandler_IngestBodyTooLarge(t *testing.T) {
	h := NewSignalsHandler(newStore(t), nil, nil)

	body := `{"id":"a","symbol":"NQ","direction":"long","reason":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	w := post(h.Ingest, body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func seed(t *testing.T, store *signal.MemoryStore) {
	t.Helper()
	now := time.Now().UTC()
	store.Upsert(core.Signal{ID: "a", Symbol: "NQ", Direction: core.DirectionLong, Status: core.StatusConfirmed, Killzone: "ny_am", EntryTime: now})
	store.Upsert(core.Signal{ID: "b", Symbol: "MNQ", Direction: core.DirectionShort, Status: core.StatusPending, Killzone: "london", EntryTime: now})
	store.Upsert(core.Signal{ID: "c", Symbol: "NQ", Direction: core.DirectionShort, Status: core.StatusPending, Killzone: "ny_am", EntryTime: now})
}

func listIDs(t *testing.T, h *SignalsHandler, query string) []string {
	t.Helper()

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/signals"+query, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Signals []core.Signal `json:"signals"`
		Count   int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, len(resp.Signals), resp.Count)

	ids := make([]string, 0, len(resp.Signals))
	for _, s := range resp.Signals {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestSignalsHandler_List(t *testing.T) {
	store := newStore(t)
	seed(t, store)
	h := NewSignalsHandler(store, nil, nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"c", "b", "a"}},
		{"?symbol=nq", []string{"c", "a"}},
		{"?killzone=NY_AM", []string{"c", "a"}},
		{"?status=pending", []string{"c", "b"}},
		{"?confirmed_only=true", []string{"a"}},
		{"?confirmed_only=true&status=pending", []string{"a"}},
		{"?limit=1", []string{"c"}},
		{"?symbol=ES", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, listIDs(t, h, tt.query))
		})
	}

	assert.Equal(t, 3, store.Len(), "filters never mutate the board")
}

func TestSignalsHandler_ListBadStatus(t *testing.T) {
	h := NewSignalsHandler(newStore(t), nil, nil)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/signals?status=filled", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignalsHandler_GetByID(t *testing.T) {
	store := newStore(t)
	seed(t, store)
	h := NewSignalsHandler(store, nil, nil)

	w := httptest.NewRecorder()
	h.GetByID(w, httptest.NewRequest(http.MethodGet, "/api/signals/b", nil), "b")
	require.Equal(t, http.StatusOK, w.Code)

	var sig core.Signal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sig))
	assert.Equal(t, "MNQ", sig.Symbol)

	w = httptest.NewRecorder()
	h.GetByID(w, httptest.NewRequest(http.MethodGet, "/api/signals/zzz", nil), "zzz")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
