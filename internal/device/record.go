// Device records as reported by the position feed
package device

import "time"

// Position holds longitude, latitude, and altitude.
type Position struct {
	Longitude float64 `json:"long"`
	Latitude  float64 `json:"lat"`
	Altitude  float64 `json:"altitude"`
}

// Record is the latest known state of one physical device.
// Records held by a Snapshot are shared and must be treated as read-only.
type Record struct {
	Key              string   `json:"mac"`
	DisplayName      string   `json:"devName,omitempty"`
	HardwareKind     *int     `json:"hardware,omitempty"`
	Position         Position `json:"pos"`
	LastSeen         int64    `json:"lastSeen"`
	BroadcastMessage string   `json:"broadcastMsg,omitempty"`
}

// Label returns the display name, or the key when no name was reported.
func (r Record) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Key
}

// LastSeenTime converts LastSeen to a UTC time.
func (r Record) LastSeenTime() time.Time {
	return time.Unix(r.LastSeen, 0).UTC()
}

// Hardware returns the hardware classifier and whether one was reported.
func (r Record) Hardware() (int, bool) {
	if r.HardwareKind == nil {
		return 0, false
	}
	return *r.HardwareKind, true
}
