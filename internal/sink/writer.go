// Writer interfaces for consumers of the live position feed
package sink

import (
	"meshmap-live/internal/device"
	"meshmap-live/internal/stream"
)

// BatchWriter receives every accepted batch of device records in frame order.
type BatchWriter interface {
	WriteBatch(records []device.Record) error
}

// StatusWriter is notified about connectivity changes.
type StatusWriter interface {
	SetPhase(phase stream.Phase, fullyConnected bool)
}
