package main

import (
	"context"
	"fmt"

	"github.com/newthinker/orion/internal/app"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/logger"
	"github.com/newthinker/orion/internal/notifier"
	"github.com/spf13/cobra"
)

var notifyStatus string

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Send a LINE test message",
	RunE:  runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyStatus, "status", "", "send a connection status message instead (connected, connecting, disconnected)")
	rootCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug, "")
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	_, line, err := app.BuildNotifiers(cfg, nil, log)
	if err != nil {
		return err
	}
	if line == nil {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("line token is not set"))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), notifier.DefaultTimeout)
	defer cancel()

	switch core.ConnectionStatus(notifyStatus) {
	case "":
		err = line.SendTest(ctx, nil)
	case core.StatusConnected, core.StatusConnecting, core.StatusDisconnected:
		err = line.SendConnectionStatus(ctx, core.ConnectionStatus(notifyStatus))
	default:
		return fmt.Errorf("unknown status %q", notifyStatus)
	}
	if err != nil {
		if code, ok := notifier.UpstreamStatus(err); ok {
			return fmt.Errorf("LINE answered %d: %w", code, err)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "LINE message sent")
	return nil
}
