package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Name(t *testing.T) {
	tg := New("token", "chatid")
	if tg.Name() != "telegram" {
		t.Errorf("expected 'telegram', got '%s'", tg.Name())
	}
}

func TestTelegram_Init(t *testing.T) {
	tg := &Telegram{}

	err := tg.Init(config.NotifierConfig{BotToken: "test-token", ChatID: "test-chat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tg.botToken != "test-token" {
		t.Errorf("expected bot_token 'test-token', got '%s'", tg.botToken)
	}
	if tg.chatID != "test-chat" {
		t.Errorf("expected chat_id 'test-chat', got '%s'", tg.chatID)
	}
	if tg.apiURL != DefaultAPIURL {
		t.Errorf("expected default api url, got '%s'", tg.apiURL)
	}
}

func TestTelegram_Init_MissingToken(t *testing.T) {
	tg := &Telegram{}

	err := tg.Init(config.NotifierConfig{ChatID: "test-chat"})
	if err == nil {
		t.Error("expected error for missing bot_token")
	}
}

func TestTelegram_Init_MissingChatID(t *testing.T) {
	tg := &Telegram{}

	err := tg.Init(config.NotifierConfig{BotToken: "test-token"})
	if err == nil {
		t.Error("expected error for missing chat_id")
	}
}

func TestTelegram_Init_WebhookOnly(t *testing.T) {
	tg := &Telegram{}

	if err := tg.Init(config.NotifierConfig{URL: "https://relay.example/hook"}); err != nil {
		t.Fatalf("webhook url alone should be enough: %v", err)
	}
}

func testSignal() core.Signal {
	return core.Signal{
		ID:          "sig-1",
		Symbol:      "NQ",
		Direction:   core.DirectionShort,
		Status:      core.StatusConfirmed,
		EntryTime:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EntryPrice:  17250.5,
		StopLoss:    17280,
		TakeProfits: []float64{17200, 17150},
		TPModes:     []string{"TP1 60%"},
		Reason:      "Liquidity sweep",
		Confidence:  0.85,
		RRTarget:    3.4,
		Killzone:    "london",
	}
}

func TestTelegram_SendBotAPI(t *testing.T) {
	var path string
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	tg := New("test-token", "test-chat")
	if err := tg.Init(config.NotifierConfig{BaseURL: server.URL}); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := tg.Send(context.Background(), testSignal()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if path != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if payload["chat_id"] != "test-chat" {
		t.Errorf("expected chat_id test-chat, got %v", payload["chat_id"])
	}
	if payload["parse_mode"] != "Markdown" {
		t.Errorf("expected Markdown parse mode, got %v", payload["parse_mode"])
	}
}

func TestTelegram_SendWebhook(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg := NewWebhook(server.URL)
	if err := tg.Send(context.Background(), testSignal()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, ok := payload["chat_id"]; ok {
		t.Error("webhook payload should not carry chat_id")
	}
	text, _ := payload["text"].(string)
	if !strings.Contains(text, "ORION SIGNAL CONFIRMED") {
		t.Errorf("unexpected text: %s", text)
	}
}

func TestTelegram_SendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	tg := NewWebhook(server.URL)
	err := tg.Send(context.Background(), testSignal())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if status, ok := notifier.UpstreamStatus(err); !ok || status != http.StatusBadRequest {
		t.Errorf("expected upstream status 400, got %d", status)
	}
}

func TestTelegram_FormatSignal(t *testing.T) {
	tg := New("token", "chat")
	formatted := tg.formatSignal(testSignal())

	for _, want := range []string{
		"ORION SIGNAL CONFIRMED",
		"Symbol: *NQ*",
		"Direction: *SHORT*",
		"Entry Price: *$17,250.50*",
		"Stop Loss: *$17,280.00*",
		"TP1 60%: *$17,200.00*",
		"TP2: *$17,150.00*",
		"Confidence: *85%*",
		"Overall R:R: *3.40:1*",
		"Killzone: *LONDON*",
		"Reason: Liquidity sweep",
		"Jan 15 10:30:00 UTC",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("formatted message missing %q:\n%s", want, formatted)
		}
	}
}

func TestTelegram_FormatSignal_Minimal(t *testing.T) {
	tg := New("token", "chat")
	formatted := tg.formatSignal(core.Signal{Symbol: "MES", Direction: core.DirectionLong, Confidence: 0.6})

	if strings.Contains(formatted, "Entry Price") {
		t.Error("unset entry price should be omitted")
	}
	if strings.Contains(formatted, "Take Profits") {
		t.Error("no take profits should be omitted")
	}
}
