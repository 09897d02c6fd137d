package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"go.uber.org/zap"
)

func TestConsoleSink_PrintsStatusChanges(t *testing.T) {
	var buf bytes.Buffer
	sink := consoleSink(&buf)

	pending := core.Signal{ID: "a", Symbol: "XAUUSD", Direction: core.DirectionLong, EntryPrice: 2650.5}
	sink(nil, []core.Signal{pending})
	if !strings.Contains(buf.String(), "pending") {
		t.Errorf("expected pending line, got %q", buf.String())
	}

	buf.Reset()
	sink([]core.Signal{pending}, []core.Signal{pending})
	if buf.Len() != 0 {
		t.Errorf("unchanged board should print nothing, got %q", buf.String())
	}

	confirmed := pending
	confirmed.Status = core.StatusConfirmed
	sink([]core.Signal{pending}, []core.Signal{confirmed})
	if !strings.Contains(buf.String(), "confirmed") || !strings.Contains(buf.String(), "XAUUSD") {
		t.Errorf("expected confirmed line, got %q", buf.String())
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv(config.EnvLineToken, "tok")
	t.Setenv(config.EnvLineUserID, "U1")
	t.Setenv(config.EnvSignalWSURL, "")
	t.Setenv(config.EnvTelegramWebhook, "")

	old := cfgFile
	cfgFile = ""
	defer func() { cfgFile = old }()

	cfg, err := loadConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.Notifiers["line"].Enabled || cfg.Notifiers["line"].UserID != "U1" {
		t.Errorf("line notifier not configured from env: %+v", cfg.Notifiers["line"])
	}
	if cfg.FeedType() != config.FeedSimulator {
		t.Errorf("FeedType() = %q, want simulator", cfg.FeedType())
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	old := cfgFile
	cfgFile = "does-not-exist.yaml"
	defer func() { cfgFile = old }()

	if _, err := loadConfig(zap.NewNop()); err == nil {
		t.Error("expected error for missing config file")
	}
}
