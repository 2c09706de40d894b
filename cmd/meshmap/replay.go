package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meshmap-live/internal/config"
	"meshmap-live/internal/live"
	"meshmap-live/internal/logging"
)

var (
	replayInput    string
	replayInterval time.Duration
	replayJSON     bool
	replayLogLevel string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded position frames",
	Long:  "replay feeds frames from a JSONL file (one JSON array per line) through the same decode and merge path as the live feed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		logCfg := config.Default().Logging
		logCfg.Level = replayLogLevel
		log, closeLog, err := newLogger(logCfg, false)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer closeLog()

		writers, cleanup, err := newWriters(false, true, replayJSON, "")
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := live.New(live.Options{Logger: log}, writers...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		n, err := live.ReplayFile(ctx, replayInput, engine, replayInterval)
		st := engine.Stats()
		log.Info("replay finished", "frames", n, "decode_errors", st.DecodeErrors,
			"skipped_records", st.SkippedRecords, "devices", engine.View().Len())
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a recorded frame file")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0, "Delay between frames (e.g. 500ms)")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print updates as JSON lines")
	replayCmd.Flags().StringVar(&replayLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	replayCmd.MarkFlagRequired("input")
}
