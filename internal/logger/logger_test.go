package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true, "")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false, "")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_Level(t *testing.T) {
	log, err := New(false, "warn")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zap.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(false, "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true, "debug")
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
