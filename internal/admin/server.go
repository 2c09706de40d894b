// Read-only HTTP API over the live device snapshot
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"meshmap-live/internal/device"
	"meshmap-live/internal/live"
	"meshmap-live/internal/stream"
)

// Source is the engine surface the API reads from.
type Source interface {
	View() *device.Snapshot
	Lookup(key string) (device.Record, bool)
	Phase() stream.Phase
	FullyConnected() bool
	Stats() live.Stats
}

// Status is the body of GET /status.
type Status struct {
	Phase          stream.Phase `json:"phase"`
	Connected      bool         `json:"connected"`
	Devices        int          `json:"devices"`
	Frames         int64        `json:"frames"`
	DecodeErrors   int64        `json:"decode_errors"`
	SkippedRecords int64        `json:"skipped_records"`
	Disconnects    int64        `json:"disconnects"`
	Attempts       int64        `json:"attempts"`
	LastFrameAt    *time.Time   `json:"last_frame_at"`
}

type Server struct {
	src Source
	tpl *template.Template
	mux *http.ServeMux
	log *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

func NewServer(src Source, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{src: src, tpl: tpl, mux: http.NewServeMux(), log: log.With("component", "admin")}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /devices", s.handleDevices)
	s.mux.HandleFunc("GET /devices/{key}", s.handleDevice)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// ServeHTTP lets the server be mounted or tested directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("admin API listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) status() Status {
	st := s.src.Stats()
	out := Status{
		Phase:          s.src.Phase(),
		Connected:      s.src.FullyConnected(),
		Devices:        s.src.View().Len(),
		Frames:         st.Frames,
		DecodeErrors:   st.DecodeErrors,
		SkippedRecords: st.SkippedRecords,
		Disconnects:    st.Disconnects,
		Attempts:       st.Attempts,
	}
	if !st.LastFrameAt.IsZero() {
		out.LastFrameAt = &st.LastFrameAt
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Status  Status
		Devices []device.Record
	}{
		Status:  s.status(),
		Devices: s.src.View().Records(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.src.View().Records())
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.src.Lookup(r.PathValue("key"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", "err", err)
	}
}
