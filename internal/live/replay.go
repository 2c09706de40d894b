package live

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"meshmap-live/internal/device"
	"meshmap-live/internal/logging"
)

const maxReplayFrame = 16 << 20

// FrameApplier is the decode-and-apply path shared by the live feed and replay.
type FrameApplier interface {
	ApplyFrame(frame []byte) (device.Batch, error)
}

// ReplayFrames feeds one JSON frame per line from r into dst, waiting
// interval between frames. Blank lines are ignored; malformed frames are
// logged and skipped. It returns the number of frames that decoded.
func ReplayFrames(ctx context.Context, r io.Reader, dst FrameApplier, interval time.Duration) (int, error) {
	log := logging.FromContext(ctx).With("component", "replay")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxReplayFrame)

	var applied, line int
	for sc.Scan() {
		line++
		frame := bytes.TrimSpace(sc.Bytes())
		if len(frame) == 0 {
			continue
		}
		if applied > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return applied, ctx.Err()
			case <-time.After(interval):
			}
		} else if err := ctx.Err(); err != nil {
			return applied, err
		}

		if _, err := dst.ApplyFrame(frame); err != nil {
			var derr *device.DecodeError
			if !errors.As(err, &derr) {
				return applied, err
			}
			log.Warn("skipping malformed frame", "line", line, "err", err)
			continue
		}
		applied++
	}
	if err := sc.Err(); err != nil {
		return applied, fmt.Errorf("read frames: %w", err)
	}
	return applied, nil
}

// ReplayFile opens path and replays its frames.
func ReplayFile(ctx context.Context, path string, dst FrameApplier, interval time.Duration) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayFrames(ctx, f, dst, interval)
}
