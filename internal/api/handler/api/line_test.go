// internal/api/handler/api/line_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	configured bool
	err        error
	sent       []core.Signal
	tests      []*core.Signal
}

func (f *fakeLine) Configured() bool { return f.configured }

func (f *fakeLine) Send(_ context.Context, sig core.Signal) error {
	f.sent = append(f.sent, sig)
	return f.err
}

func (f *fakeLine) SendTest(_ context.Context, sig *core.Signal) error {
	f.tests = append(f.tests, sig)
	return f.err
}

const lineBody = `{"signal":{"id":"s1","symbol":"NQ","direction":"long","status":"confirmed","entry_price":17000}}`

func TestLineHandler_SendNotification(t *testing.T) {
	line := &fakeLine{configured: true}
	h := NewLineHandler(line, nil)

	w := post(h.SendNotification, lineBody)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, line.sent, 1)
	assert.Equal(t, "s1", line.sent[0].ID)
	assert.Equal(t, core.StatusConfirmed, line.sent[0].Status)
}

func TestLineHandler_NotConfigured(t *testing.T) {
	for _, h := range []*LineHandler{
		NewLineHandler(nil, nil),
		NewLineHandler(&fakeLine{}, nil),
	} {
		w := post(h.SendNotification, lineBody)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		w = post(h.SendTest, ``)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
}

func TestLineHandler_SignalRequired(t *testing.T) {
	line := &fakeLine{configured: true}
	h := NewLineHandler(line, nil)

	w := post(h.SendNotification, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, line.sent)
}

func TestLineHandler_UpstreamStatusMirrored(t *testing.T) {
	line := &fakeLine{
		configured: true,
		err: core.WrapError(core.ErrNotifierFailed, &notifier.StatusError{
			Notifier:   "line",
			StatusCode: http.StatusUnauthorized,
			Body:       `{"message":"Authentication failed"}`,
		}),
	}
	h := NewLineHandler(line, nil)

	w := post(h.SendNotification, lineBody)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LINE API error", resp.Error)
	assert.Contains(t, resp.Details, "Authentication failed")
}

func TestLineHandler_TransportFailure(t *testing.T) {
	line := &fakeLine{configured: true, err: core.WrapError(core.ErrNotifierFailed, errors.New("dial tcp: refused"))}
	h := NewLineHandler(line, nil)

	w := post(h.SendNotification, lineBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLineHandler_SendTest(t *testing.T) {
	line := &fakeLine{configured: true}
	h := NewLineHandler(line, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/test-line", nil)
	w := httptest.NewRecorder()
	h.SendTest(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, line.tests, 1)
	assert.Nil(t, line.tests[0], "no body sends placeholders")

	w = post(h.SendTest, lineBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, line.tests, 2)
	require.NotNil(t, line.tests[1])
	assert.Equal(t, "NQ", line.tests[1].Symbol)
}
