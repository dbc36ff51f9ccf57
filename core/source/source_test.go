// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mediabot/mediabot/i18n"
)

func TestParseTitle(t *testing.T) {
	cases := map[string]string{
		"<html><head><title>  Episode 1 &amp; more </title></head></html>": "Episode 1 & more",
		"<html><head></head><body>no title</body></html>":                  "",
		"<title>First</title><title>Second</title>":                        "First",
	}
	for in, want := range cases {
		got, err := ParseTitle(strings.NewReader(in))
		if err != nil {
			t.Fatalf("ParseTitle(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve_FollowsRedirectAndSendsUserAgent(t *testing.T) {
	var gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/browse/random", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		http.Redirect(w, r, "/videos/hentai/some-video-1", http.StatusFound)
	})
	mux.HandleFunc("/videos/hentai/some-video-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Some Video 1</title></head></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(srv.URL+"/browse/random", "test-agent", 5*time.Second)
	page, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if page.URL != srv.URL+"/videos/hentai/some-video-1" {
		t.Fatalf("unexpected final URL %q", page.URL)
	}
	if page.Title != "Some Video 1" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if gotUA != "test-agent" {
		t.Fatalf("expected user agent to be sent, got %q", gotUA)
	}
}

func TestResolve_DefaultTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>nothing</body></html>"))
	}))
	defer srv.Close()

	page, err := NewResolver(srv.URL, "", time.Second).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if page.Title != DefaultTitle() {
		t.Fatalf("expected default title, got %q", page.Title)
	}
}

func TestDefaultTitle_FollowsLanguage(t *testing.T) {
	t.Cleanup(func() { i18n.Init("en") })

	i18n.Init("en")
	if got := DefaultTitle(); got != "Random Video" {
		t.Fatalf("unexpected english title %q", got)
	}
	i18n.Init("de")
	if got := DefaultTitle(); got != "Zufälliges Video" {
		t.Fatalf("unexpected german title %q", got)
	}
}

func TestResolve_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewResolver(srv.URL, "", time.Second).Resolve(context.Background()); err == nil {
		t.Fatalf("expected error for 503")
	}
}

func TestResolve_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := NewResolver(srv.URL, "", 50*time.Millisecond).Resolve(context.Background())
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
