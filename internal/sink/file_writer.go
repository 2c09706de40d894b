package sink

import (
	"encoding/json"
	"os"
	"sync"

	"meshmap-live/internal/device"
)

// FileWriter records accepted batches to a JSONL file, one JSON array per
// line. The output can be fed back through the replay command.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (or truncates) path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteBatch logs the batch as a single frame line. Empty batches are skipped.
func (f *FileWriter) WriteBatch(records []device.Record) error {
	if len(records) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(records)
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
