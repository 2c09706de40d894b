package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSupervisorOverWebsocket(t *testing.T) {
	var accepted atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := accepted.Add(1)
		frame := `[{"mac":"AA:BB","pos":{"long":1,"lat":2,"altitude":3},"lastSeen":` + string(rune('0'+n)) + `}]`
		_ = c.WriteMessage(websocket.TextMessage, []byte(frame))
		// first connection is dropped by the server, the second stays open
		if n == 1 {
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
			_ = c.Close()
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	r := &recorder{}
	s, err := NewSupervisor(Options{
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http") + "/positions/",
		Dialer:   NewWebsocketDialer(time.Second, 1<<20),
		Backoff:  &ConstantBackoff{Delay: 10 * time.Millisecond},
	}, r.handler())
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, "two frames", func() bool {
		frames, _, _ := r.snapshot()
		return len(frames) == 2
	})
	waitFor(t, "connected", func() bool { return s.Phase() == PhaseConnected })
	if accepted.Load() != 2 {
		t.Fatalf("server accepted %d connections, want 2", accepted.Load())
	}
	frames, _, closes := r.snapshot()
	if !strings.Contains(frames[0], `"lastSeen":1`) || !strings.Contains(frames[1], `"lastSeen":2`) {
		t.Fatalf("unexpected frames: %v", frames)
	}
	if len(closes) != 1 {
		t.Fatalf("closes = %v", closes)
	}
	terr, ok := closes[0].(*TransportError)
	if !ok || !terr.Clean() {
		t.Fatalf("expected a clean remote close, got %v", closes[0])
	}
}

func TestWebsocketDialerRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	d := NewWebsocketDialer(500*time.Millisecond, 0)
	if _, err := d.Dial(context.Background(), url); err == nil {
		t.Fatalf("expected dial error against a closed server")
	}
}

func TestWebsocketDialerBadHandshake(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := NewWebsocketDialer(500*time.Millisecond, 0)
	_, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected handshake error with status, got %v", err)
	}
}
