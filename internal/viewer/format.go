package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"meshmap-live/internal/device"
)

// TimeAgo renders the age of an epoch-seconds timestamp relative to now as
// "N second(s)/minute(s)/hour(s)/day(s) ago". Future timestamps count as 0s.
func TimeAgo(now time.Time, epochSeconds int64) string {
	diff := now.Unix() - epochSeconds
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < 60:
		return plural(diff, "second")
	case diff < 3600:
		return plural(diff/60, "minute")
	case diff < 86400:
		return plural(diff/3600, "hour")
	default:
		return plural(diff/86400, "day")
	}
}

func plural(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// renderDetail formats the selected device for the side panel.
func renderDetail(rec device.Record, now time.Time, width int) string {
	title := "ID: " + rec.Key
	if rec.DisplayName != "" {
		title = rec.DisplayName
	}
	lines := []string{
		titleStyle.Render(title),
		fmt.Sprintf("Longitude: %.2f°", rec.Position.Longitude),
		fmt.Sprintf("Latitude:  %.2f°", rec.Position.Latitude),
		fmt.Sprintf("Altitude:  %.2f m", rec.Position.Altitude),
	}
	if hw, ok := rec.Hardware(); ok {
		lines = append(lines, fmt.Sprintf("Device type: %d", hw))
	}
	if rec.LastSeen > 0 {
		lines = append(lines, "Last seen "+TimeAgo(now, rec.LastSeen))
	}
	if rec.BroadcastMessage != "" {
		if width < 10 {
			width = 10
		}
		lines = append(lines, "", wordwrap.String(rec.BroadcastMessage, width))
	}
	return strings.Join(lines, "\n")
}
