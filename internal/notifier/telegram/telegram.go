package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/format"
	"github.com/newthinker/orion/internal/notifier"
)

// DefaultAPIURL is the Telegram Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram. It posts to the
// Bot API when a bot token is set, or to a relay webhook URL otherwise.
type Telegram struct {
	botToken   string
	chatID     string
	webhookURL string
	apiURL     string
	client     *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   DefaultAPIURL,
		client:   notifier.NewHTTPClient(),
	}
}

// NewWebhook creates a Telegram notifier that posts to a relay URL.
func NewWebhook(url string) *Telegram {
	return &Telegram{
		webhookURL: url,
		apiURL:     DefaultAPIURL,
		client:     notifier.NewHTTPClient(),
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg config.NotifierConfig) error {
	if cfg.BotToken != "" {
		t.botToken = cfg.BotToken
	}
	if cfg.ChatID != "" {
		t.chatID = cfg.ChatID
	}
	if cfg.URL != "" {
		t.webhookURL = cfg.URL
	}
	if cfg.BaseURL != "" {
		t.apiURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if t.apiURL == "" {
		t.apiURL = DefaultAPIURL
	}
	if t.client == nil {
		t.client = notifier.NewHTTPClient()
	}

	if t.webhookURL != "" {
		return nil
	}
	if t.botToken == "" {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("telegram: bot_token or url is required"))
	}
	if t.chatID == "" {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("telegram: chat_id is required"))
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, signal core.Signal) error {
	return t.sendMessage(ctx, t.formatSignal(signal))
}

func (t *Telegram) formatSignal(s core.Signal) string {
	var sb strings.Builder

	sb.WriteString("🚨 *ORION SIGNAL CONFIRMED*\n\n")
	sb.WriteString(fmt.Sprintf("Symbol: *%s*\n", s.Symbol))
	sb.WriteString(fmt.Sprintf("Direction: *%s*", strings.ToUpper(string(s.Direction))))

	if s.EntryPrice != 0 {
		sb.WriteString(fmt.Sprintf("\nEntry Price: *$%s*", format.Price(s.Symbol, s.EntryPrice)))
	}
	if s.StopLoss != 0 {
		sb.WriteString(fmt.Sprintf("\nStop Loss: *$%s*", format.Price(s.Symbol, s.StopLoss)))
	}
	if len(s.TakeProfits) > 0 {
		sb.WriteString("\nTake Profits:")
		for i, tp := range s.TakeProfits {
			sb.WriteString(fmt.Sprintf("\n  %s: *$%s*", s.TPLabel(i), format.Price(s.Symbol, tp)))
		}
	}

	sb.WriteString(fmt.Sprintf("\nConfidence: *%s*", format.Percent(s.Confidence)))

	if s.RRTarget > 0 {
		sb.WriteString(fmt.Sprintf("\nOverall R:R: *%.2f:1*", s.RRTarget))
	}
	if s.Killzone != "" {
		sb.WriteString(fmt.Sprintf("\nKillzone: *%s*", strings.ToUpper(s.Killzone)))
	}
	if s.Reason != "" {
		sb.WriteString(fmt.Sprintf("\nReason: %s", s.Reason))
	}

	sb.WriteString(fmt.Sprintf("\n\nTime: %s", format.Stamp(s.EntryTime)))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	if t.webhookURL != "" {
		payload := map[string]any{
			"text":       text,
			"parse_mode": "Markdown",
		}
		return notifier.PostJSON(ctx, t.client, t.Name(), t.webhookURL, nil, payload)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)
	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	return notifier.PostJSON(ctx, t.client, t.Name(), url, nil, payload)
}
