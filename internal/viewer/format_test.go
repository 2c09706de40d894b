package viewer

import (
	"strings"
	"testing"
	"time"

	"meshmap-live/internal/device"
)

func TestTimeAgo(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	cases := []struct {
		ago  int64
		want string
	}{
		{0, "0 seconds ago"},
		{1, "1 second ago"},
		{59, "59 seconds ago"},
		{60, "1 minute ago"},
		{3599, "59 minutes ago"},
		{3600, "1 hour ago"},
		{7200, "2 hours ago"},
		{86400, "1 day ago"},
		{3 * 86400, "3 days ago"},
		{-30, "0 seconds ago"},
	}
	for _, c := range cases {
		if got := TimeAgo(now, now.Unix()-c.ago); got != c.want {
			t.Errorf("TimeAgo(-%d) = %q, want %q", c.ago, got, c.want)
		}
	}
}

func TestRenderDetail(t *testing.T) {
	now := time.Unix(10_000, 0)
	hw := 43
	rec := device.Record{
		Key:              "AA:BB",
		HardwareKind:     &hw,
		Position:         device.Position{Longitude: -46.63331, Latitude: -23.55052, Altitude: 760.456},
		LastSeen:         now.Unix() - 120,
		BroadcastMessage: "one two three four five six seven eight nine ten",
	}
	out := renderDetail(rec, now, 20)
	for _, want := range []string{"ID: AA:BB", "Longitude: -46.63°", "Latitude:  -23.55°", "Altitude:  760.46 m", "Device type: 43", "Last seen 2 minutes ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "one") && len(line) > 20 {
			t.Errorf("broadcast message not wrapped: %q", line)
		}
	}

	rec.DisplayName = "relay"
	rec.HardwareKind = nil
	rec.BroadcastMessage = ""
	out = renderDetail(rec, now, 20)
	if strings.Contains(out, "ID:") || !strings.Contains(out, "relay") || strings.Contains(out, "Device type") {
		t.Errorf("unexpected detail for named device:\n%s", out)
	}
}
