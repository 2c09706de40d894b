package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"meshmap-live/internal/device"
)

// JSONStdoutWriter prints device records as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a single record in JSON format.
func (w *JSONStdoutWriter) Write(rec device.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteBatch outputs one line per record.
func (w *JSONStdoutWriter) WriteBatch(records []device.Record) error {
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
