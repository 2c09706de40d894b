package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meshmap-live/internal/admin"
	"meshmap-live/internal/config"
	"meshmap-live/internal/live"
	"meshmap-live/internal/logging"
	"meshmap-live/internal/viewer"
)

var (
	watchConfigPath string
	watchEndpoint   string
	watchTUI        bool
	watchPrintOnly  bool
	watchJSON       bool
	watchAdminAddr  string
	watchLogLevel   string
	watchRecord     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live position feed",
	Long:  "watch connects to the position feed, keeps the latest state per device and reconnects when the stream drops.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log, closeLog, err := newLogger(cfg.Logging, watchTUI)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer closeLog()

		writers, cleanup, err := newWriters(watchTUI, watchPrintOnly, watchJSON, watchRecord)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := live.OptionsFromConfig(cfg)
		opts.Logger = log
		engine, err := live.New(opts, writers...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		log.Info("watching position feed", "endpoint", cfg.Endpoint, "reconnect", cfg.Reconnect.Strategy)
		engine.Start(ctx)
		defer engine.Stop()

		g, gctx := errgroup.WithContext(ctx)
		if cfg.Admin.Addr != "" {
			srv := admin.NewServer(engine, log)
			g.Go(func() error { return srv.Start(gctx, cfg.Admin.Addr) })
		}
		if watchTUI {
			g.Go(func() error {
				defer stop()
				return viewer.Run(gctx, engine, cfg.Viewer.Refresh)
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
		err = g.Wait()
		log.Info("position feed stopped", "devices", engine.View().Len())
		return err
	},
}

// loadConfig reads the config file, then applies environment and flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(watchConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	cfg.ApplyEnv()
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = watchEndpoint
	}
	if flags.Changed("admin-addr") {
		cfg.Admin.Addr = watchAdminAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = watchLogLevel
	}
	return cfg, nil
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "", "Path to meshmap configuration YAML")
	watchCmd.Flags().StringVar(&watchEndpoint, "endpoint", config.DefaultEndpoint, "Position feed websocket URL")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show the terminal map instead of printing updates")
	watchCmd.Flags().BoolVar(&watchPrintOnly, "print-only", false, "Print updates to STDOUT even when the TUI is enabled")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print updates as JSON lines")
	watchCmd.Flags().StringVar(&watchAdminAddr, "admin-addr", "", "Serve the read-only HTTP API on this address")
	watchCmd.Flags().StringVar(&watchLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	watchCmd.Flags().StringVar(&watchRecord, "record", "", "Record accepted frames to a JSONL file for replay")
}
