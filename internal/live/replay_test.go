package live

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meshmap-live/internal/logging"
)

func TestReplayFrames(t *testing.T) {
	e := newTestEngine(t, Options{})
	input := strings.Join([]string{
		`[{"mac":"AA:BB","pos":{"long":1,"lat":2},"lastSeen":1}]`,
		``,
		`not json`,
		`   `,
		`[{"mac":"AA:BB","pos":{"long":3,"lat":4},"lastSeen":2},{"mac":"CC:DD","pos":{"long":5,"lat":6}}]`,
	}, "\n")

	ctx := logging.NewContext(context.Background(), logging.Discard())
	n, err := ReplayFrames(ctx, strings.NewReader(input), e, 0)
	if err != nil {
		t.Fatalf("ReplayFrames: %v", err)
	}
	if n != 2 {
		t.Fatalf("applied %d frames, want 2", n)
	}
	if r, _ := e.Lookup("AA:BB"); r.Position.Longitude != 3 {
		t.Fatalf("expected the later position, got %+v", r)
	}
	st := e.Stats()
	if st.Frames != 3 || st.DecodeErrors != 1 || e.View().Len() != 2 {
		t.Fatalf("unexpected stats %+v (devices=%d)", st, e.View().Len())
	}
}

func TestReplayFramesHonoursContext(t *testing.T) {
	e := newTestEngine(t, Options{})
	input := `[{"mac":"a","pos":{"long":0,"lat":0}}]` + "\n" + `[{"mac":"b","pos":{"long":0,"lat":0}}]` + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := ReplayFrames(ctx, strings.NewReader(input), e, time.Hour)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if n != 1 || e.View().Len() != 1 {
		t.Fatalf("applied %d frames before cancel", n)
	}
}

func TestReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := os.WriteFile(path, []byte(scenarioFrame+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := newTestEngine(t, Options{})
	if n, err := ReplayFile(context.Background(), path, e, 0); err != nil || n != 1 {
		t.Fatalf("ReplayFile = %d, %v", n, err)
	}
	if _, err := ReplayFile(context.Background(), filepath.Join(t.TempDir(), "missing"), e, 0); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
