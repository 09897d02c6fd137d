package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/newthinker/orion/internal/app"
	"github.com/newthinker/orion/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Orion relay and HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug, "")
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if cfg.Log.Level != "" && !debug {
		log, err = logger.New(cfg.Log.Development, cfg.Log.Level)
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	log.Info("starting Orion server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("feed", cfg.FeedType()),
	)

	a, err := app.New(cfg, log, app.WithVersion(Version))
	if err != nil {
		return err
	}

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}
