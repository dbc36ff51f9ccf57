// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keepalive serves the small HTTP surface that hosting platforms
// ping to keep the deployment awake, and stops the deployment when the pings
// stop arriving.
package keepalive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/mediabot/mediabot/core/clock"
	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/internal/logging"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// Config configures the server.
type Config struct {
	// Addr is host:port; port 0 picks a free port.
	Addr string
	// SleepTimeout is the allowed gap between pings; <= 0 disables the idle monitor.
	SleepTimeout time.Duration
	// CheckInterval is how often the idle monitor looks at the last ping.
	CheckInterval time.Duration
}

// Server is the keepalive web service.
type Server struct {
	cfg   Config
	clock clock.Clock
	log   *clog.Logger

	mu       sync.Mutex
	started  time.Time
	lastPing time.Time
	addr     net.Addr
	ready    chan struct{}
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option { return func(s *Server) { s.clock = c } }

// New returns a Server. A zero CheckInterval becomes 30s.
func New(cfg Config, opts ...Option) *Server {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	s := &Server{
		cfg:   cfg,
		clock: clock.Real(),
		log:   logging.With("web"),
		ready: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	now := s.clock.Now()
	s.started, s.lastPing = now, now
	return s
}

// Name implements launcher.Service.
func (s *Server) Name() string { return "web" }

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.home)
	mux.HandleFunc("GET /ping", s.ping)
	mux.HandleFunc("GET /status", s.status)
	return mux
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, i18n.T("web.banner"))
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastPing = s.clock.Now()
	s.mu.Unlock()
	s.log.Debug("ping", "remote_addr", r.RemoteAddr)
	writeJSON(w, map[string]string{"status": "alive"})
}

// Status is the body of GET /status.
type Status struct {
	Status              string  `json:"status"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
	IdleSeconds         float64 `json:"idle_seconds"`
	SleepTimeoutSeconds float64 `json:"sleep_timeout_seconds"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	now := s.clock.Now()
	s.mu.Lock()
	st := Status{
		Status:              "alive",
		UptimeSeconds:       now.Sub(s.started).Seconds(),
		IdleSeconds:         now.Sub(s.lastPing).Seconds(),
		SleepTimeoutSeconds: s.cfg.SleepTimeout.Seconds(),
	}
	s.mu.Unlock()
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Idle reports whether the last ping is older than the sleep timeout.
func (s *Server) Idle() bool {
	if s.cfg.SleepTimeout <= 0 {
		return false
	}
	s.mu.Lock()
	last := s.lastPing
	s.mu.Unlock()
	return s.clock.Now().Sub(last) > s.cfg.SleepTimeout
}

// Addr blocks until the listener is bound and returns its address, or
// returns nil when ctx ends first.
func (s *Server) Addr(ctx context.Context) net.Addr {
	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.addr
	case <-ctx.Done():
		return nil
	}
}

// Run serves until ctx is cancelled or the idle monitor decides to stop.
// Both cases return nil; a listener or serve failure is returned as is.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("keepalive server starting", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var tick <-chan time.Time
	if s.cfg.SleepTimeout > 0 {
		ticker := s.clock.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err, ok := <-serveErr:
			if ok {
				runErr = err
			}
			break loop
		case <-tick:
			if s.Idle() {
				s.log.Warn(i18n.T("web.idle_shutdown"))
				break loop
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("keepalive server shutdown failed", "err", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
