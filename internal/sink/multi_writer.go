package sink

import (
	"errors"

	"meshmap-live/internal/device"
	"meshmap-live/internal/stream"
)

// MultiWriter fans batches and status changes out to multiple writers.
type MultiWriter struct {
	batch  []BatchWriter
	status []StatusWriter
}

// NewMultiWriter sorts writers by the interfaces they implement. Values that
// implement neither are ignored.
func NewMultiWriter(writers ...any) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range writers {
		mw.Add(w)
	}
	return mw
}

// Add registers w as a batch writer, a status writer, or both.
func (mw *MultiWriter) Add(w any) {
	if bw, ok := w.(BatchWriter); ok {
		mw.batch = append(mw.batch, bw)
	}
	if sw, ok := w.(StatusWriter); ok {
		mw.status = append(mw.status, sw)
	}
}

// Len returns the number of distinct registrations (batch plus status).
func (mw *MultiWriter) Len() int {
	return len(mw.batch) + len(mw.status)
}

// WriteBatch sends records to every batch writer. A failing writer does not
// prevent delivery to the others; the errors are joined.
func (mw *MultiWriter) WriteBatch(records []device.Record) error {
	var errs []error
	for _, w := range mw.batch {
		if err := w.WriteBatch(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetPhase forwards a connectivity change to every status writer.
func (mw *MultiWriter) SetPhase(phase stream.Phase, fullyConnected bool) {
	for _, w := range mw.status {
		w.SetPhase(phase, fullyConnected)
	}
}
