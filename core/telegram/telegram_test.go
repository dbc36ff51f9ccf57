// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabot/mediabot/core/bot"
)

// fakeAPI is a minimal Bot API server recording the methods it was asked for.
type fakeAPI struct {
	mu      sync.Mutex
	methods []string
	forms   []map[string]string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		form := map[string]string{}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				for k, v := range r.MultipartForm.Value {
					form[k] = v[0]
				}
				for k, fh := range r.MultipartForm.File {
					form[k] = fh[0].Filename
				}
			}
		} else if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				form[k] = v[0]
			}
		}
		f.mu.Lock()
		f.methods = append(f.methods, method)
		f.forms = append(f.forms, form)
		f.mu.Unlock()

		var result any
		switch method {
		case "getMe":
			result = map[string]any{"id": 1, "is_bot": true, "first_name": "Media", "username": "media_bot"}
		case "sendMessage", "sendDocument":
			result = map[string]any{"message_id": 77, "date": 0, "chat": map[string]any{"id": 5, "type": "private"}}
		case "editMessageText":
			result = true
		case "getUpdates":
			result = []any{}
		default:
			t.Errorf("unexpected method %s", method)
			result = true
		}
		raw, _ := json.Marshal(result)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": json.RawMessage(raw)})
	})
}

func (f *fakeAPI) last(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.methods) - 1; i >= 0; i-- {
		if f.methods[i] == method {
			return f.forms[i]
		}
	}
	return nil
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	c, err := NewWithEndpoint("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	if err != nil {
		t.Fatalf("NewWithEndpoint: %v", err)
	}
	return c, api
}

func TestClient_ReplyEditSend(t *testing.T) {
	c, api := newTestClient(t)
	if c.Username() != "media_bot" {
		t.Fatalf("unexpected username %q", c.Username())
	}
	ctx := context.Background()

	ref, err := c.Reply(ctx, 5, 10, "hello")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if ref.MessageID != 77 || ref.ChatID != 5 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if f := api.last("sendMessage"); f["text"] != "hello" || f["reply_to_message_id"] != "10" {
		t.Fatalf("unexpected sendMessage form %v", f)
	}

	if err := c.Edit(ctx, ref, "edited"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if f := api.last("editMessageText"); f["text"] != "edited" || f["message_id"] != "77" {
		t.Fatalf("unexpected editMessageText form %v", f)
	}

	p := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.SendDocument(ctx, 5, p); err != nil {
		t.Fatalf("SendDocument: %v", err)
	}
	if f := api.last("sendDocument"); f["document"] != "clip.mp4" || f["chat_id"] != "5" {
		t.Fatalf("unexpected sendDocument form %v", f)
	}
}

func TestNewWithEndpoint_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()
	if _, err := NewWithEndpoint("bad", srv.URL+"/bot%s/%s", srv.Client()); err == nil {
		t.Fatalf("expected error for unauthorized token")
	}
}

func TestConvert(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		Text:      "/random",
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{UserName: "alice"},
	}}
	got, ok := convert(u)
	want := bot.Update{ChatID: 42, MessageID: 3, Text: "/random", From: "alice"}
	if !ok || got != want {
		t.Fatalf("convert = %+v, %v", got, ok)
	}
	if _, ok := convert(tgbotapi.Update{}); ok {
		t.Fatalf("updates without a message must be skipped")
	}
}

func TestUpdates_ClosesOnCancel(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Updates(ctx)
	cancel()
	for range ch {
	}
}
