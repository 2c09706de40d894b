// Connection supervisor keeping one receive-only stream alive
package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultConnectedDebounce = 1200 * time.Millisecond
)

// Handler receives transport events. OnOpen, OnMessage, OnClose and OnPhase
// run on the supervisor goroutine, one at a time, in arrival order.
//
// OnFullyConnected fires once per connection when the debounce interval
// elapses. It runs on the clock's timer goroutine while the supervisor lock
// is held, so it must not call back into the Supervisor. It always precedes
// the OnPhase(PhaseDisconnected) for the same connection.
type Handler struct {
	OnOpen           func()
	OnMessage        func(frame []byte)
	OnClose          func(err error)
	OnPhase          func(Phase)
	OnFullyConnected func()
}

// Options configures a Supervisor.
type Options struct {
	Endpoint          string
	Dialer            Dialer
	Backoff           Backoff       // defaults to a constant DefaultReconnectDelay
	ConnectedDebounce time.Duration // zero means DefaultConnectedDebounce, negative disables it
	Clock             Clock
	Logger            *slog.Logger
}

// Supervisor owns a single logical connection: it dials, forwards frames,
// detects loss and redials after the backoff delay until stopped. Transport
// failures never escape; they only show up as phase changes.
type Supervisor struct {
	opts    Options
	handler Handler
	clock   Clock
	log     *slog.Logger

	mu       sync.Mutex
	phase    Phase
	fully    bool
	started  bool
	stopped  bool
	conn     Conn
	session  string
	debounce Timer
	cancel   context.CancelFunc
	done     chan struct{}

	attempts atomic.Int64
}

// NewSupervisor validates opts and returns an idle supervisor.
func NewSupervisor(opts Options, h Handler) (*Supervisor, error) {
	if opts.Dialer == nil {
		return nil, ErrNoDialer
	}
	if opts.Backoff == nil {
		opts.Backoff = &ConstantBackoff{Delay: DefaultReconnectDelay}
	}
	if opts.ConnectedDebounce == 0 {
		opts.ConnectedDebounce = DefaultConnectedDebounce
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if h.OnOpen == nil {
		h.OnOpen = func() {}
	}
	if h.OnMessage == nil {
		h.OnMessage = func([]byte) {}
	}
	if h.OnClose == nil {
		h.OnClose = func(error) {}
	}
	if h.OnPhase == nil {
		h.OnPhase = func(Phase) {}
	}
	if h.OnFullyConnected == nil {
		h.OnFullyConnected = func() {}
	}
	return &Supervisor{
		opts:    opts,
		handler: h,
		clock:   opts.Clock,
		log:     opts.Logger.With("component", "supervisor"),
		phase:   PhaseConnecting,
	}, nil
}

// Start begins connecting in the background. Calls after the first one, or
// after Stop, do nothing. Cancelling ctx has the same effect as Stop.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop closes the active connection, cancels any pending reconnect and waits
// for the supervisor goroutine to exit. No phase change or callback happens
// after Stop returns.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		done := s.done
		s.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	s.stopped = true
	s.fully = false
	if s.phase == PhaseConnected {
		s.phase = PhaseDisconnected
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	cancel, conn, done := s.cancel, s.conn, s.done
	s.conn = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	s.log.Info("supervisor stopped")
}

// Phase returns the current connectivity phase.
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// FullyConnected reports whether the connection has stayed up for the
// debounce interval.
func (s *Supervisor) FullyConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fully
}

// SessionID identifies the current or most recent connection attempt.
func (s *Supervisor) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Attempts returns the number of dial attempts made so far.
func (s *Supervisor) Attempts() int64 {
	return s.attempts.Load()
}

func (s *Supervisor) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.done)
	}()

	for {
		session := uuid.NewString()
		if !s.transition(PhaseConnecting, session) {
			return
		}
		s.attempts.Add(1)
		log := s.log.With("session", session)
		log.Debug("dialing", "endpoint", s.opts.Endpoint, "attempt", s.attempts.Load())

		conn, err := s.opts.Dialer.Dial(ctx, s.opts.Endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.lost(log, &TransportError{Op: "dial", Err: err})
		} else {
			if !s.attach(session, conn) {
				_ = conn.Close()
				return
			}
			s.opts.Backoff.Reset()
			log.Info("connected", "endpoint", s.opts.Endpoint)
			s.handler.OnPhase(PhaseConnected)
			s.handler.OnOpen()

			err = s.readLoop(conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			s.lost(log, &TransportError{Op: "read", Err: err})
		}

		delay := s.opts.Backoff.Next()
		log.Info("reconnect scheduled", "delay", delay)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(delay):
		}
	}
}

func (s *Supervisor) readLoop(conn Conn) error {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handler.OnMessage(frame)
	}
}

// transition moves to p unless the supervisor has been stopped.
func (s *Supervisor) transition(p Phase, session string) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.phase = p
	s.session = session
	s.mu.Unlock()
	s.handler.OnPhase(p)
	return true
}

// attach records an open connection and arms the debounce timer. With a
// negative debounce the connection counts as fully connected at once.
func (s *Supervisor) attach(session string, conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conn = conn
	s.phase = PhaseConnected
	if s.opts.ConnectedDebounce < 0 {
		s.fully = true
		return true
	}
	s.debounce = s.clock.AfterFunc(s.opts.ConnectedDebounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped || s.fully || s.session != session || s.phase != PhaseConnected {
			return
		}
		s.fully = true
		s.handler.OnFullyConnected()
	})
	return true
}

// lost handles a failed dial or a dropped connection.
func (s *Supervisor) lost(log *slog.Logger, terr *TransportError) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseDisconnected
	s.fully = false
	s.conn = nil
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()

	if terr.Clean() {
		log.Info("stream closed by remote", "err", terr)
	} else {
		log.Warn("stream lost", "err", terr)
	}
	s.handler.OnPhase(PhaseDisconnected)
	s.handler.OnClose(terr)
}
