// ColorStdoutWriter prints human-friendly, colorized device updates to STDOUT.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"meshmap-live/internal/device"
	"meshmap-live/internal/stream"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var devicePalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// ColorStdoutWriter prints device records and phase changes using ANSI colors.
// Each device key keeps the same color for the lifetime of the writer.
type ColorStdoutWriter struct {
	mu       sync.Mutex
	out      io.Writer
	colors   map[string]string
	colorIdx int
	now      func() time.Time
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return newColorWriter(os.Stdout)
}

func newColorWriter(out io.Writer) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		out:    out,
		colors: make(map[string]string),
		now:    time.Now,
	}
}

func (w *ColorStdoutWriter) deviceColor(key string) string {
	if c, ok := w.colors[key]; ok {
		return c
	}
	c := devicePalette[w.colorIdx%len(devicePalette)]
	w.colors[key] = c
	w.colorIdx++
	return c
}

// Write outputs a single record in colorized format.
func (w *ColorStdoutWriter) Write(rec device.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, w.now().UTC().Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sdevice=%s%s ", w.deviceColor(rec.Key), rec.Label(), colorReset)
	if rec.DisplayName != "" {
		fmt.Fprintf(w.out, "%smac=%s%s ", colorGray, rec.Key, colorReset)
	}
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, rec.Position.Latitude, colorReset)
	fmt.Fprintf(w.out, "%slon=%.5f%s ", colorYellow, rec.Position.Longitude, colorReset)
	fmt.Fprintf(w.out, "%salt=%.1f%s", colorMagenta, rec.Position.Altitude, colorReset)
	if hw, ok := rec.Hardware(); ok {
		fmt.Fprintf(w.out, " %shw=%d%s", colorCyan, hw, colorReset)
	}
	if rec.LastSeen > 0 {
		fmt.Fprintf(w.out, " %sseen=%s%s", colorBlue, rec.LastSeenTime().UTC().Format(time.RFC3339), colorReset)
	}
	if rec.BroadcastMessage != "" {
		fmt.Fprintf(w.out, " %smsg=%q%s", colorMagenta, rec.BroadcastMessage, colorReset)
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// WriteBatch outputs multiple records.
func (w *ColorStdoutWriter) WriteBatch(records []device.Record) error {
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// SetPhase prints a connectivity line.
func (w *ColorStdoutWriter) SetPhase(phase stream.Phase, fullyConnected bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := colorYellow
	switch {
	case phase == stream.PhaseDisconnected:
		c = colorRed
	case fullyConnected:
		c = colorGreen
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sSTREAM%s phase=%s connected=%t\n",
		colorGray, w.now().UTC().Format(time.RFC3339), colorReset,
		c, colorReset, phase, fullyConnected)
}
