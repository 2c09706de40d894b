package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"meshmap-live/internal/config"
	"meshmap-live/internal/logging"
	"meshmap-live/internal/sink"
)

// stdoutIsTerminal is replaced in tests.
var stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// newWriters picks the consumers fed by the engine. The TUI replaces stdout
// output unless printOnly is set; JSON is used when requested or when stdout
// is not a terminal. recordPath adds a frame recorder.
func newWriters(tui, printOnly, jsonOut bool, recordPath string) ([]any, func(), error) {
	cleanup := func() {}
	var writers []any

	if !tui || printOnly {
		if jsonOut || !stdoutIsTerminal() {
			writers = append(writers, sink.NewJSONStdoutWriter())
		} else {
			writers = append(writers, sink.NewColorStdoutWriter())
		}
	}
	if recordPath == "" {
		return writers, cleanup, nil
	}
	fw, err := sink.NewFileWriter(recordPath)
	if err != nil {
		return nil, nil, err
	}
	writers = append(writers, fw)
	cleanup = func() { fw.Close() }
	return writers, cleanup, nil
}

// newLogger builds the process logger. Logs go to the configured file, are
// dropped while the TUI owns the terminal, and go to STDERR otherwise.
func newLogger(cfg config.Logging, tui bool) (*slog.Logger, func(), error) {
	cleanup := func() {}
	var out io.Writer = os.Stderr
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		cleanup = func() { f.Close() }
	case tui:
		return logging.Discard(), cleanup, nil
	}
	l, err := logging.NewWithOptions(out, cfg.Level, cfg.Format)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return l, cleanup, nil
}
