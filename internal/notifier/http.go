package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/orion/internal/core"
)

// DefaultTimeout bounds a single outbound notification request.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Notifier   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Notifier, e.StatusCode, e.Body)
}

// UpstreamStatus extracts the upstream HTTP status from err, if any.
func UpstreamStatus(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// NewHTTPClient returns the client used by HTTP notifiers.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// PostJSON sends payload as JSON and turns transport failures and non-2xx
// responses into ErrNotifierFailed.
func PostJSON(ctx context.Context, client *http.Client, name, url string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", name, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("%s: request failed: %w", name, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.WrapError(core.ErrNotifierFailed, &StatusError{
			Notifier:   name,
			StatusCode: resp.StatusCode,
			Body:       string(text),
		})
	}

	return nil
}
