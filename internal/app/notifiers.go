package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/notifier"
	"github.com/newthinker/orion/internal/notifier/bell"
	"github.com/newthinker/orion/internal/notifier/email"
	"github.com/newthinker/orion/internal/notifier/line"
	"github.com/newthinker/orion/internal/notifier/telegram"
	"github.com/newthinker/orion/internal/notifier/webhook"
	"go.uber.org/zap"
)

// BuildNotifiers creates the enabled notifiers from config. The LINE client
// is returned separately whenever a token is configured, enabled or not,
// because the HTTP endpoints send through it directly.
func BuildNotifiers(cfg *config.Config, bellOut io.Writer, logger *zap.Logger) (*notifier.Registry, *line.Line, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := notifier.NewRegistry()

	var lineClient *line.Line
	if lc, ok := cfg.Notifiers["line"]; ok && lc.Token != "" {
		lineClient = line.New("", "")
		if err := lineClient.Init(lc); err != nil {
			return nil, nil, fmt.Errorf("init line: %w", err)
		}
		lineClient.SetDashboardURL(cfg.Server.DashboardURL)
	}

	names := make([]string, 0, len(cfg.Notifiers))
	for name := range cfg.Notifiers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nc := cfg.Notifiers[name]
		if !nc.Enabled {
			continue
		}

		var n notifier.Notifier
		switch name {
		case "line":
			if lineClient == nil {
				return nil, nil, fmt.Errorf("init line: token is required")
			}
			n = lineClient
		case "telegram":
			n = telegram.New("", "")
		case "webhook":
			n = webhook.New("", nil)
		case "email":
			n = email.New("", 0, "", "", "", nil)
		case "bell":
			n = bell.New(bellOut)
		default:
			logger.Warn("unknown notifier, skipping", zap.String("notifier", name))
			continue
		}

		if name != "line" {
			if err := n.Init(nc); err != nil {
				return nil, nil, fmt.Errorf("init %s: %w", name, err)
			}
		}
		if err := registry.Register(n); err != nil {
			return nil, nil, err
		}
		logger.Info("notifier enabled", zap.String("notifier", name))
	}

	return registry, lineClient, nil
}
