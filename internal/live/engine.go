// Live engine wiring the stream supervisor, the decoder and the position store
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"meshmap-live/internal/config"
	"meshmap-live/internal/device"
	"meshmap-live/internal/sink"
	"meshmap-live/internal/stream"
)

// Options configures an Engine. Zero values fall back to the stream defaults;
// a negative ConnectedDebounce reports fully connected as soon as the
// transport opens.
type Options struct {
	Endpoint          string
	Dialer            stream.Dialer // defaults to a websocket dialer
	Backoff           stream.Backoff
	ConnectedDebounce time.Duration
	HandshakeTimeout  time.Duration
	ReadLimit         int64

	EvictAfter    time.Duration
	MaxDevices    int
	SweepInterval time.Duration

	Clock  stream.Clock
	Logger *slog.Logger
}

// OptionsFromConfig maps the file configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	var b stream.Backoff
	switch cfg.Reconnect.Strategy {
	case "exponential":
		b = stream.NewExponentialBackoff(cfg.Reconnect.Delay, cfg.Reconnect.MaxDelay, cfg.Reconnect.Multiplier)
	default:
		b = &stream.ConstantBackoff{Delay: cfg.Reconnect.Delay}
	}
	return Options{
		Endpoint:          cfg.Endpoint,
		Backoff:           b,
		ConnectedDebounce: cfg.ConnectedDebounce,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		ReadLimit:         cfg.ReadLimitBytes,
		EvictAfter:        cfg.Eviction.EvictAfter,
		MaxDevices:        cfg.Eviction.MaxDevices,
		SweepInterval:     cfg.Eviction.SweepInterval,
	}
}

// Stats are cumulative counters since the engine was created.
type Stats struct {
	Frames         int64     `json:"frames"`
	DecodeErrors   int64     `json:"decode_errors"`
	SkippedRecords int64     `json:"skipped_records"`
	AppliedRecords int64     `json:"applied_records"`
	Disconnects    int64     `json:"disconnects"`
	Attempts       int64     `json:"attempts"`
	Evicted        int64     `json:"evicted"`
	LastFrameAt    time.Time `json:"last_frame_at"`
}

// Engine keeps the latest known state per device in sync with the feed.
type Engine struct {
	opts    Options
	store   *device.Store
	sup     *stream.Supervisor
	writers *sink.MultiWriter
	clock   stream.Clock
	log     *slog.Logger

	frames       atomic.Int64
	decodeErrors atomic.Int64
	skipped      atomic.Int64
	applied      atomic.Int64
	disconnects  atomic.Int64
	evicted      atomic.Int64
	lastFrame    atomic.Int64 // unix nanoseconds

	mu          sync.Mutex
	started     bool
	stopped     bool
	janitorStop context.CancelFunc
	janitorDone chan struct{}
}

// New builds an idle engine. Writers may implement sink.BatchWriter,
// sink.StatusWriter or both.
func New(opts Options, writers ...any) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = stream.RealClock()
	}
	if opts.Dialer == nil {
		opts.Dialer = stream.NewWebsocketDialer(opts.HandshakeTimeout, opts.ReadLimit)
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}

	e := &Engine{
		opts:    opts,
		store:   device.NewStore(),
		writers: sink.NewMultiWriter(writers...),
		clock:   opts.Clock,
		log:     opts.Logger.With("component", "engine"),
	}
	sup, err := stream.NewSupervisor(stream.Options{
		Endpoint:          opts.Endpoint,
		Dialer:            opts.Dialer,
		Backoff:           opts.Backoff,
		ConnectedDebounce: opts.ConnectedDebounce,
		Clock:             opts.Clock,
		Logger:            opts.Logger,
	}, stream.Handler{
		OnOpen:    e.onOpen,
		OnMessage: e.onMessage,
		OnClose:   e.onClose,
		OnPhase:   e.onPhase,

		OnFullyConnected: e.onFullyConnected,
	})
	if err != nil {
		return nil, err
	}
	e.sup = sup
	return e, nil
}

// Start connects to the feed and, when eviction is configured, starts the
// janitor. Calls after the first one, or after Stop, do nothing.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	e.sup.Start(ctx)

	if e.opts.EvictAfter > 0 || e.opts.MaxDevices > 0 {
		jctx, cancel := context.WithCancel(ctx)
		e.janitorStop = cancel
		e.janitorDone = make(chan struct{})
		go e.janitor(jctx, e.janitorDone)
	}
}

// Stop disconnects, stops the janitor and waits for both to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	cancel, done := e.janitorStop, e.janitorDone
	e.janitorStop, e.janitorDone = nil, nil
	e.mu.Unlock()

	e.sup.Stop()
	if cancel != nil {
		cancel()
		<-done
	}
}

// View returns the current immutable snapshot.
func (e *Engine) View() *device.Snapshot { return e.store.View() }

// Lookup returns the latest record for key.
func (e *Engine) Lookup(key string) (device.Record, bool) { return e.store.Lookup(key) }

// Phase returns the connectivity phase.
func (e *Engine) Phase() stream.Phase { return e.sup.Phase() }

// FullyConnected reports the debounced connected signal.
func (e *Engine) FullyConnected() bool { return e.sup.FullyConnected() }

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Frames:         e.frames.Load(),
		DecodeErrors:   e.decodeErrors.Load(),
		SkippedRecords: e.skipped.Load(),
		AppliedRecords: e.applied.Load(),
		Disconnects:    e.disconnects.Load(),
		Attempts:       e.sup.Attempts(),
		Evicted:        e.evicted.Load(),
	}
	if ns := e.lastFrame.Load(); ns != 0 {
		s.LastFrameAt = time.Unix(0, ns).UTC()
	}
	return s
}

// ApplyFrame decodes one raw frame and merges its valid records into the
// store. Malformed frames leave the store untouched and are returned as a
// *device.DecodeError; invalid elements are listed in Batch.Skipped.
func (e *Engine) ApplyFrame(frame []byte) (device.Batch, error) {
	e.frames.Add(1)
	e.lastFrame.Store(e.clock.Now().UnixNano())

	batch, err := device.Decode(frame)
	if err != nil {
		e.decodeErrors.Add(1)
		e.log.Warn("dropping frame", "err", err, "bytes", len(frame))
		return batch, err
	}
	for _, skipped := range batch.Skipped {
		e.skipped.Add(1)
		e.log.Warn("skipping device record", "index", skipped.Index, "mac", skipped.Key, "err", skipped.Err)
	}
	if len(batch.Records) == 0 {
		return batch, nil
	}

	snap := e.store.Apply(batch.Records)
	e.applied.Add(int64(len(batch.Records)))
	e.log.Debug("frame applied", "records", len(batch.Records), "devices", snap.Len())

	if err := e.writers.WriteBatch(batch.Records); err != nil {
		e.log.Error("writer failed", "err", err)
	}
	return batch, nil
}

// Sweep runs one eviction pass with the configured limits.
func (e *Engine) Sweep() int {
	var cutoff int64
	if e.opts.EvictAfter > 0 {
		cutoff = e.clock.Now().Add(-e.opts.EvictAfter).Unix()
	}
	n := e.store.Sweep(cutoff, e.opts.MaxDevices)
	if n > 0 {
		e.evicted.Add(int64(n))
		e.log.Info("evicted devices", "count", n, "remaining", e.store.Len())
	}
	return n
}

func (e *Engine) janitor(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(e.opts.SweepInterval):
			e.Sweep()
		}
	}
}

func (e *Engine) onOpen() {
	e.log.Debug("stream open", "session", e.sup.SessionID())
}

func (e *Engine) onMessage(frame []byte) {
	_, _ = e.ApplyFrame(frame)
}

func (e *Engine) onClose(err error) {
	e.disconnects.Add(1)
	var terr *stream.TransportError
	if errors.As(err, &terr) && terr.Op == "dial" {
		e.log.Debug("connect attempt failed", "attempts", e.sup.Attempts())
	}
}

func (e *Engine) onPhase(p stream.Phase) {
	e.writers.SetPhase(p, e.sup.FullyConnected())
}

// onFullyConnected runs under the supervisor lock and must not query e.sup.
func (e *Engine) onFullyConnected() {
	e.log.Debug("stream fully connected")
	e.writers.SetPhase(stream.PhaseConnected, true)
}
