package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/orion/internal/app"
	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/format"
	"github.com/newthinker/orion/internal/logger"
	sigstore "github.com/newthinker/orion/internal/storage/signal"
	"github.com/spf13/cobra"
)

var (
	simDuration time.Duration
	simQuiet    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the simulator with a console sink and no HTTP server",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().DurationVar(&simDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	simulateCmd.Flags().BoolVar(&simQuiet, "quiet", false, "only print confirmations")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug, "warn")
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	cfg.Feed.Type = config.FeedSimulator
	cfg.Metrics.Enabled = false
	if cfg.Notifiers == nil {
		cfg.Notifiers = make(map[string]config.NotifierConfig)
	}
	bellCfg := cfg.Notifiers["bell"]
	bellCfg.Enabled = true
	cfg.Notifiers["bell"] = bellCfg

	out := cmd.OutOrStdout()
	a, err := app.New(cfg, log, app.WithBellOutput(out))
	if err != nil {
		return err
	}
	if !simQuiet {
		a.Store().Subscribe(consoleSink(out))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if simDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, simDuration)
		defer cancel()
	}

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Stop()

	fmt.Fprintf(out, "simulated %d signals\n", a.Simulator().Produced())
	return nil
}

// consoleSink prints every status change on the board.
func consoleSink(out io.Writer) sigstore.ListenerFunc {
	return func(prev, next []core.Signal) {
		before := make(map[string]core.Status, len(prev))
		for _, s := range prev {
			before[s.ID] = s.Status
		}
		for _, s := range next {
			if st, ok := before[s.ID]; ok && st == s.Status {
				continue
			}
			status := string(s.Status)
			if status == "" {
				status = "pending"
			}
			fmt.Fprintf(out, "%s %-11s %-7s %-5s @ %s %s\n",
				format.Clock(time.Now()),
				status,
				s.Symbol,
				s.Direction,
				format.Price(s.Symbol, s.EntryPrice),
				s.Killzone,
			)
		}
	}
}
