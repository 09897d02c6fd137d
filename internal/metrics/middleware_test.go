package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRoutedHandler(status int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/signals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	return mux
}

func TestHTTPMiddleware_LabelsByPattern(t *testing.T) {
	reg := NewRegistry()
	wrapped := HTTPMiddleware(reg)(newRoutedHandler(http.StatusOK))

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/api/signals/"+id, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/api/signals/{id}", "2xx"))
	if got != 3 {
		t.Errorf("expected 3 requests on one series, got %v", got)
	}
	if n := testutil.CollectAndCount(reg.httpRequestDuration); n != 1 {
		t.Errorf("expected one duration series, got %d", n)
	}
}

func TestHTTPMiddleware_UnmatchedPath(t *testing.T) {
	reg := NewRegistry()
	wrapped := HTTPMiddleware(reg)(http.NotFoundHandler())

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/nope/123", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "unmatched", "4xx"))
	if got != 1 {
		t.Errorf("expected unmatched 4xx count 1, got %v", got)
	}
}

func TestHTTPMiddleware_TracksInFlight(t *testing.T) {
	reg := NewRegistry()

	during := float64(-1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(reg.httpRequestsInFlight)
	})

	HTTPMiddleware(reg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/stream", nil))

	if during != 1 {
		t.Errorf("expected in-flight 1 during request, got %v", during)
	}
	if after := testutil.ToFloat64(reg.httpRequestsInFlight); after != 0 {
		t.Errorf("expected in-flight 0 after request, got %v", after)
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	reg := NewRegistry()

	flushed := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer must implement http.Flusher")
		}
		w.Write([]byte("event: status\n\n"))
		f.Flush()
		flushed = true
	})

	w := httptest.NewRecorder()
	HTTPMiddleware(reg)(handler).ServeHTTP(w, httptest.NewRequest("GET", "/api/stream", nil))

	if !flushed || !w.Flushed {
		t.Error("expected flush to reach the underlying recorder")
	}
}
