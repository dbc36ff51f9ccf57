// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package source resolves the "random" endpoint of the media site into a
// concrete video page. The site answers a GET on the random URL with a
// redirect to a video page; the final URL and the page title are what the
// bot needs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mediabot/mediabot/i18n"
)

// DefaultTitle is used when the page has no usable <title>. It follows the
// active language.
func DefaultTitle() string { return i18n.T("bot.default_title") }

// maxPageBytes bounds how much of the page body is parsed for the title.
const maxPageBytes = 4 << 20

// Page is a resolved video page.
type Page struct {
	URL   string
	Title string
}

// Resolver fetches the random endpoint.
type Resolver struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	HTTP      *http.Client
}

// NewResolver returns a Resolver with its own client. Redirects are
// followed by net/http (up to 10 hops).
func NewResolver(url, userAgent string, timeout time.Duration) *Resolver {
	return &Resolver{
		URL:       url,
		UserAgent: userAgent,
		Timeout:   timeout,
		HTTP: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Resolve performs the request and returns the final URL and title.
func (r *Resolver) Resolve(ctx context.Context) (Page, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", r.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return Page{}, fmt.Errorf("fetch %s: %s", r.URL, resp.Status)
	}

	title, err := ParseTitle(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}
	if title == "" {
		title = DefaultTitle()
	}
	return Page{URL: resp.Request.URL.String(), Title: title}, nil
}

// ParseTitle returns the trimmed text of the first <title> element, or ""
// when the document has none.
func ParseTitle(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inTitle := false
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.TrimSpace(sb.String()), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "title" && inTitle {
				return strings.TrimSpace(sb.String()), nil
			}
		case html.TextToken:
			if inTitle {
				sb.Write(z.Text())
			}
		}
	}
}
