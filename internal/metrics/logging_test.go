package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)), &buf
}

func serveLogged(t *testing.T, req *http.Request, status int) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	logger, buf := captureLogger()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	w := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	return w, entry
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/signals", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	w, entry := serveLogged(t, req, http.StatusBadRequest)

	if entry["msg"] != "http request" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
	if entry["method"] != "POST" || entry["path"] != "/api/signals" {
		t.Errorf("unexpected method/path %v %v", entry["method"], entry["path"])
	}
	if entry["status"].(float64) != http.StatusBadRequest {
		t.Errorf("expected status 400, got %v", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
	if id := w.Header().Get("X-Request-ID"); id == "" || entry["request_id"] != id {
		t.Errorf("request id mismatch: header %q, log %v", id, entry["request_id"])
	}
}

func TestLoggingMiddleware_KeepsCallerRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("X-Request-ID", "dash-42")

	w, entry := serveLogged(t, req, http.StatusOK)

	if got := w.Header().Get("X-Request-ID"); got != "dash-42" {
		t.Errorf("expected caller id echoed, got %q", got)
	}
	if entry["request_id"] != "dash-42" {
		t.Errorf("expected request_id dash-42, got %v", entry["request_id"])
	}
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "10.0.0.1:54321"},
		{"single proxy", "203.0.113.50", "203.0.113.50"},
		{"proxy chain", "198.51.100.7, 10.1.1.1", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/health", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			_, entry := serveLogged(t, req, http.StatusOK)

			if entry["client_ip"] != tt.want {
				t.Errorf("expected client_ip %s, got %v", tt.want, entry["client_ip"])
			}
		})
	}
}
