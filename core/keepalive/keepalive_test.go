// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package keepalive

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediabot/mediabot/core/clock"
	"github.com/mediabot/mediabot/i18n"
)

func init() { i18n.Init("en") }

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestHome(t *testing.T) {
	s := New(Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "Hanime Bot is running!" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestPingRefreshesIdleTimer(t *testing.T) {
	fc := clock.Fake(epoch)
	s := New(Config{SleepTimeout: 600 * time.Second}, WithClock(fc))

	fc.Advance(599 * time.Second)
	if s.Idle() {
		t.Fatalf("should not be idle before the timeout")
	}
	fc.Advance(2 * time.Second)
	if !s.Idle() {
		t.Fatalf("should be idle after the timeout")
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode ping: %v", err)
	}
	if body["status"] != "alive" || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected ping response %v %q", body, rec.Header().Get("Content-Type"))
	}
	if s.Idle() {
		t.Fatalf("ping must reset the idle timer")
	}
}

func TestStatus(t *testing.T) {
	fc := clock.Fake(epoch)
	s := New(Config{SleepTimeout: 600 * time.Second}, WithClock(fc))
	fc.Advance(90 * time.Second)
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	fc.Advance(30 * time.Second)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Status != "alive" || st.UptimeSeconds != 120 || st.IdleSeconds != 30 || st.SleepTimeoutSeconds != 600 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestIdleDisabled(t *testing.T) {
	fc := clock.Fake(epoch)
	s := New(Config{SleepTimeout: 0}, WithClock(fc))
	fc.Advance(24 * time.Hour)
	if s.Idle() {
		t.Fatalf("sleep timeout <= 0 must disable idling")
	}
}

func TestRun_IdleShutdown(t *testing.T) {
	fc := clock.Fake(epoch)
	s := New(Config{Addr: "127.0.0.1:0", SleepTimeout: 60 * time.Second, CheckInterval: 30 * time.Second}, WithClock(fc))

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()

	addr := s.Addr(context.Background())
	resp, err := http.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "Hanime Bot is running!" {
		t.Fatalf("unexpected body %q", body)
	}

	fc.WaitForTimers(1)
	fc.Advance(30 * time.Second)
	fc.Advance(30 * time.Second)
	fc.Advance(30 * time.Second)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("idle shutdown should return nil, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop when idle")
	}

	if _, err := net.DialTimeout("tcp", addr.String(), time.Second); err == nil {
		t.Fatalf("listener still accepting after shutdown")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", SleepTimeout: 0})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	if s.Addr(ctx) == nil {
		t.Fatalf("server did not bind")
	}
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	s := New(Config{Addr: ln.Addr().String()})
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected error when the port is taken")
	}
}
