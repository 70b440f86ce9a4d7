// Package server exposes a session controller over HTTP: load and mode
// commands, state snapshots, WebP previews, a websocket event stream and
// Prometheus metrics.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meshview/internal/archive"
	"meshview/internal/logging"
	"meshview/internal/material"
	"meshview/internal/mathutil"
	"meshview/internal/metrics"
	"meshview/internal/preview"
	"meshview/internal/session"
)

const (
	maxBodyBytes = 1 << 16
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Options configure a Server.
type Options struct {
	Preview  preview.Options
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer // nil means the default registry
}

// Server routes HTTP requests to one session controller.
type Server struct {
	ctrl     *session.Controller
	preview  preview.Options
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	base     context.Context
	cancel   context.CancelFunc
	mux      *http.ServeMux
}

// New creates a Server around ctrl.
func New(ctrl *session.Controller, opts Options) *Server {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctrl:     ctrl,
		preview:  opts.Preview,
		metrics:  opts.Metrics,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // viewer pages may be served from anywhere
			},
		},
		base:   base,
		cancel: cancel,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /load", s.handleLoad)
	s.mux.HandleFunc("POST /material-mode", s.handleMaterialMode)
	s.mux.HandleFunc("POST /blend-mode", s.handleBlendMode)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /preview.webp", s.handlePreview)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the routed handler wrapped with request metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		_, pattern := s.mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.RecordHTTPRequest(r.Method, pattern, rec.status, time.Since(start))
		logging.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Close stops background loads started through this server.
func (s *Server) Close() {
	s.cancel()
}

type loadRequest struct {
	URL       string `json:"url"`
	ProxyPath string `json:"proxy_path"`
	Label     string `json:"label"`
	Wait      bool   `json:"wait"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" && req.ProxyPath == "" {
		writeError(w, http.StatusBadRequest, "url or proxy_path is required")
		return
	}
	src := archive.Source{URL: req.URL, ProxyPath: req.ProxyPath, Label: req.Label}

	if req.Wait {
		// A client hanging up must not turn into a FetchFailure.
		ev := s.ctrl.Load(s.base, src)
		writeJSON(w, http.StatusOK, viewOf(ev))
		return
	}
	// Loads outlive the request; the server's own context bounds them.
	token := s.ctrl.RequestLoad(s.base, src)
	if token == 0 {
		writeError(w, http.StatusServiceUnavailable, "session closed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]uint64{"token": token})
}

func (s *Server) handleMaterialMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := material.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ctrl.SetMaterialMode(mode)
	writeJSON(w, http.StatusOK, viewOf(s.ctrl.Snapshot()))
}

func (s *Server) handleBlendMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	blend, err := material.ParseBlendMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ctrl.SetBlendMode(blend)
	writeJSON(w, http.StatusOK, viewOf(s.ctrl.Snapshot()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.ctrl.Snapshot()))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ev := s.ctrl.Snapshot()
	if ev.Kind != session.Loaded || ev.Mesh == nil {
		writeError(w, http.StatusConflict, "no mesh loaded (state "+ev.Kind.String()+")")
		return
	}
	opts := s.preview
	if q := r.URL.Query(); q.Has("yaw") || q.Has("pitch") {
		yaw, err1 := queryFloat(q, "yaw", mathutil.DefaultYaw)
		pitch, err2 := queryFloat(q, "pitch", mathutil.DefaultPitch)
		if err := errors.Join(err1, err2); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.View = mathutil.Orbit(yaw, pitch)
	}
	data, err := preview.WebP(ev.Mesh, opts)
	if err != nil {
		logging.Error("preview failed", "request", ev.RequestID, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// handleWebSocket streams session events as JSON text frames, starting with
// the current snapshot.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()
	logging.Debug("websocket client connected", "remote", r.RemoteAddr)

	// Reader: keeps pongs flowing and notices disconnects
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxBodyBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev session.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(viewOf(ev)); err != nil {
			logging.Debug("websocket write failed", "err", err)
			return false
		}
		return true
	}

	if !send(s.ctrl.Snapshot()) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if !send(ev) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			logging.Debug("websocket client disconnected", "remote", r.RemoteAddr)
			return
		case <-s.base.Done():
			return
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// queryFloat reads a finite float query parameter, or def when absent.
func queryFloat(q url.Values, key string, def float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the response status and keeps hijacking available
// for websocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
