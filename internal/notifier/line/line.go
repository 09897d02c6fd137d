// Package line implements a LINE Messaging API notifier
package line

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/format"
	"github.com/newthinker/orion/internal/notifier"
	"github.com/newthinker/orion/internal/rr"
)

// DefaultBaseURL is the LINE Messaging API root.
const DefaultBaseURL = "https://api.line.me"

const maxTakeProfits = 3

// Colours used in the flex bubble
const (
	colorConfirmed = "#00C851"
	colorPending   = "#FFB04D"
	colorNegative  = "#FF4444"
	colorMuted     = "#666666"
	colorText      = "#111111"
)

// Line implements the Notifier interface for the LINE Messaging API.
// Without a user id messages are broadcast to all followers.
type Line struct {
	token        string
	userID       string
	baseURL      string
	dashboardURL string
	client       *http.Client
	now          func() time.Time
}

// New creates a new LINE notifier
func New(token, userID string) *Line {
	return &Line{
		token:   token,
		userID:  userID,
		baseURL: DefaultBaseURL,
		client:  notifier.NewHTTPClient(),
		now:     time.Now,
	}
}

func (l *Line) Name() string { return "line" }

func (l *Line) Init(cfg config.NotifierConfig) error {
	if cfg.Token != "" {
		l.token = cfg.Token
	}
	if cfg.UserID != "" {
		l.userID = cfg.UserID
	}
	if cfg.BaseURL != "" {
		l.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if l.baseURL == "" {
		l.baseURL = DefaultBaseURL
	}
	if l.client == nil {
		l.client = notifier.NewHTTPClient()
	}
	if l.now == nil {
		l.now = time.Now
	}

	if l.token == "" {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("line: token is required"))
	}
	return nil
}

// SetDashboardURL sets the target of the bubble's footer button.
func (l *Line) SetDashboardURL(u string) { l.dashboardURL = u }

// Configured reports whether a channel token is present.
func (l *Line) Configured() bool { return l.token != "" }

// Send pushes the signal as a flex bubble.
func (l *Line) Send(ctx context.Context, signal core.Signal) error {
	return l.push(ctx, FlexMessage(signal, l.dashboardURL))
}

// SendText pushes a plain text message.
func (l *Line) SendText(ctx context.Context, text string) error {
	return l.push(ctx, map[string]any{"type": "text", "text": text})
}

// SendTest pushes the test message. A nil signal uses placeholder values.
func (l *Line) SendTest(ctx context.Context, signal *core.Signal) error {
	return l.SendText(ctx, TestMessage(signal, l.now()))
}

// SendConnectionStatus reports a feed status change.
func (l *Line) SendConnectionStatus(ctx context.Context, status core.ConnectionStatus) error {
	emoji := "🔴"
	switch status {
	case core.StatusConnected:
		emoji = "🟢"
	case core.StatusConnecting:
		emoji = "🟡"
	}
	text := fmt.Sprintf("%s ORION Dashboard\n📡 %s\n⏰ %s",
		emoji, strings.ToUpper(string(status)), format.Stamp(l.now()))
	return l.SendText(ctx, text)
}

func (l *Line) push(ctx context.Context, message map[string]any) error {
	if l.token == "" {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("line: token is required"))
	}

	payload := map[string]any{"messages": []any{message}}
	endpoint := "/v2/bot/message/broadcast"
	if l.userID != "" {
		payload["to"] = l.userID
		endpoint = "/v2/bot/message/push"
	}

	headers := map[string]string{"Authorization": "Bearer " + l.token}
	return notifier.PostJSON(ctx, l.client, l.Name(), l.baseURL+endpoint, headers, payload)
}

// TestMessage renders the text used by the test endpoint.
func TestMessage(signal *core.Signal, now time.Time) string {
	symbol, direction := "TEST", "LONG"
	entry, stop, confidence, ratio := "1.0950", "1.0900", "85%", "3"
	if signal != nil {
		symbol = signal.Symbol
		direction = strings.ToUpper(string(signal.Direction))
		entry = format.Price(signal.Symbol, signal.EntryPrice)
		stop = format.Price(signal.Symbol, signal.StopLoss)
		confidence = format.Percent(signal.Confidence)
		ratio = fmt.Sprintf("%.2f", signal.RRTarget)
	}

	return fmt.Sprintf("🚨 ORION SIGNAL 🚨\n\n📊 %s\n🎯 %s\n\n💰 Entry: %s\n🛑 Stop: %s\n\n⚡ Confidence: %s\n🎲 R:R: %s:1\n\n⏰ %s",
		symbol, direction, entry, stop, confidence, ratio, format.Stamp(now))
}

// FlexMessage builds the flex bubble for a signal.
func FlexMessage(s core.Signal, dashboardURL string) map[string]any {
	statusColor := colorNegative
	switch s.Status {
	case core.StatusConfirmed:
		statusColor = colorConfirmed
	case core.StatusPending:
		statusColor = colorPending
	}

	directionEmoji, directionColor := "📈", colorConfirmed
	if !s.IsLong() {
		directionEmoji, directionColor = "📉", colorNegative
	}
	direction := strings.ToUpper(string(s.Direction))

	entry := "Market"
	if s.EntryPrice != 0 {
		entry = format.Price(s.Symbol, s.EntryPrice)
	}
	stop := "-"
	if s.StopLoss != 0 {
		stop = format.Price(s.Symbol, s.StopLoss)
	}

	body := []any{
		row(text(directionEmoji+" "+s.Symbol, "xl", directionColor, true),
			text(direction, "xl", directionColor, true, "align", "end")),
		separator(),
		labelRow("💰 Entry", entry, "sm", colorText, "md"),
		labelRow("🛑 Stop Loss", stop, "sm", colorNegative, "sm"),
	}

	if len(s.TakeProfits) > 0 {
		body = append(body, separator(), text("🎯 Take Profits", "sm", "", true, "margin", "md"))
		perTP := rr.Targets(s)
		for i, tp := range s.TakeProfits {
			if i == maxTakeProfits {
				break
			}
			value := format.Price(s.Symbol, tp)
			if i < len(perTP) && perTP[i] > 0 {
				value = fmt.Sprintf("%s (%.2fR)", value, perTP[i])
			}
			body = append(body, labelRow(s.TPLabel(i), value, "xs", colorConfirmed, "xs"))
		}
	}

	reason := s.Reason
	if reason == "" {
		reason = "Technical Analysis"
	}
	info := []any{labelRow("💡 Setup", reason, "xs", colorText, "none")}
	if s.Confidence > 0 {
		info = append(info, labelRow("📊 Confidence", format.Percent(s.Confidence), "xs", colorText, "xs"))
	}
	if s.RRTarget > 0 {
		info = append(info, labelRow("⚖️ R:R Ratio", fmt.Sprintf("%.2f:1", s.RRTarget), "xs", colorText, "xs"))
	}
	body = append(body, separator(), map[string]any{
		"type":     "box",
		"layout":   "vertical",
		"contents": info,
		"margin":   "md",
	})

	footer := []any{}
	if dashboardURL != "" {
		footer = append(footer, map[string]any{
			"type":   "button",
			"style":  "primary",
			"height": "sm",
			"color":  statusColor,
			"action": map[string]any{
				"type":  "uri",
				"label": "📊 Open Dashboard",
				"uri":   dashboardURL,
			},
		})
	}
	footer = append(footer, text("⏰ "+format.Stamp(s.EntryTime), "xs", colorMuted, false, "align", "center", "margin", "sm"))

	return map[string]any{
		"type":    "flex",
		"altText": fmt.Sprintf("🎯 ORION Signal: %s %s", s.Symbol, direction),
		"contents": map[string]any{
			"type": "bubble",
			"size": "kilo",
			"header": map[string]any{
				"type":   "box",
				"layout": "vertical",
				"contents": []any{
					row(text("🎯 ORION SIGNAL", "md", "#FFFFFF", true),
						text(strings.ToUpper(string(s.Status)), "sm", "#FFFFFF", true, "align", "end")),
				},
				"backgroundColor": statusColor,
				"paddingAll":      "lg",
			},
			"body": map[string]any{
				"type":       "box",
				"layout":     "vertical",
				"contents":   body,
				"paddingAll": "lg",
			},
			"footer": map[string]any{
				"type":       "box",
				"layout":     "vertical",
				"contents":   footer,
				"paddingAll": "sm",
			},
		},
	}
}

// text builds a text component; extra holds key/value pairs.
func text(s, size, color string, bold bool, extra ...string) map[string]any {
	c := map[string]any{"type": "text", "text": s, "size": size}
	if color != "" {
		c["color"] = color
	}
	if bold {
		c["weight"] = "bold"
	}
	for i := 0; i+1 < len(extra); i += 2 {
		c[extra[i]] = extra[i+1]
	}
	return c
}

func row(contents ...any) map[string]any {
	return map[string]any{"type": "box", "layout": "horizontal", "contents": contents}
}

func labelRow(label, value, size, color, margin string) map[string]any {
	v := text(value, size, color, true, "align", "end")
	v["wrap"] = true
	r := row(text(label, size, colorMuted, false), v)
	r["margin"] = margin
	return r
}

func separator() map[string]any {
	return map[string]any{"type": "separator", "margin": "md"}
}
