// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/notifier"
	"github.com/newthinker/orion/internal/rr"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  notifier.NewHTTPClient(),
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg config.NotifierConfig) error {
	if cfg.URL != "" {
		w.url = cfg.URL
	}
	if cfg.Headers != nil {
		w.headers = cfg.Headers
	}

	if w.url == "" {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("webhook: url is required"))
	}

	if w.client == nil {
		w.client = notifier.NewHTTPClient()
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, signal core.Signal) error {
	return notifier.PostJSON(ctx, w.client, w.Name(), w.url, w.headers, w.signalToPayload(signal))
}

func (w *Webhook) signalToPayload(signal core.Signal) map[string]any {
	return map[string]any{
		"type":         "signal",
		"id":           signal.ID,
		"symbol":       signal.Symbol,
		"direction":    signal.Direction,
		"status":       signal.Status,
		"entry_price":  signal.EntryPrice,
		"stop_loss":    signal.StopLoss,
		"take_profits": signal.TakeProfits,
		"tp_modes":     signal.TPModes,
		"tp_rr":        rr.Targets(signal),
		"confidence":   signal.Confidence,
		"rr_target":    signal.RRTarget,
		"killzone":     signal.Killzone,
		"reason":       signal.Reason,
		"entry_time":   signal.EntryTime.Format(time.RFC3339),
	}
}
