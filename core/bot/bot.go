// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package bot implements the chat worker: it answers commands from the
// configured chat and turns /random into a download that is relayed back as
// a document while a status message tracks its progress.
package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/mediabot/mediabot/core/clock"
	"github.com/mediabot/mediabot/core/download"
	"github.com/mediabot/mediabot/core/source"
	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/internal/logging"
	"github.com/mediabot/mediabot/internal/model"
)

// MessageRef identifies a sent message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Messenger is the chat transport.
type Messenger interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string) error
	SendDocument(ctx context.Context, chatID int64, path string) error
}

// Resolver picks the page to download.
type Resolver interface {
	Resolve(ctx context.Context) (source.Page, error)
}

// History records attempts. Satisfied by *db.Store.
type History interface {
	CreateDownload(ctx context.Context, chatID int64, title, pageURL string) (int64, error)
	FinishDownload(ctx context.Context, id int64, status model.Status, fileName string, size int64, errText string) error
	RecentDownloads(ctx context.Context, limit int) ([]model.Download, error)
}

// Archiver copies a delivered file somewhere durable.
type Archiver interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Update is an incoming chat message.
type Update struct {
	ChatID    int64
	MessageID int
	From      string
	Text      string
}

// Config holds the bot settings.
type Config struct {
	ChatID           int64
	MaxSendBytes     int64
	ProgressInterval time.Duration
	DownloadDir      string
	KeepFiles        bool
	HistoryLimit     int
}

// Option customizes a Bot.
type Option func(*Bot)

// WithHistory records every /random attempt in h.
func WithHistory(h History) Option { return func(b *Bot) { b.history = h } }

// WithArchiver uploads every sent file through a.
func WithArchiver(a Archiver) Option { return func(b *Bot) { b.archiver = a } }

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option { return func(b *Bot) { b.clock = c } }

// Bot handles updates.
type Bot struct {
	cfg        Config
	msg        Messenger
	resolver   Resolver
	downloader download.Downloader
	history    History
	archiver   Archiver
	clock      clock.Clock
	log        *clog.Logger
}

// New returns a Bot. Zero values in cfg get the defaults of the deployment
// (2 GiB limit, 2s progress interval, 10 history lines).
func New(cfg Config, m Messenger, r Resolver, d download.Downloader, opts ...Option) *Bot {
	if cfg.MaxSendBytes <= 0 {
		cfg.MaxSendBytes = 2 * 1024 * 1024 * 1024
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 2 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	b := &Bot{
		cfg:        cfg,
		msg:        m,
		resolver:   r,
		downloader: d,
		clock:      clock.Real(),
		log:        logging.With("bot"),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run handles updates until ctx is cancelled or updates is closed. Each
// update runs in its own goroutine; Run waits for them before returning.
func (b *Bot) Run(ctx context.Context, updates <-chan Update) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	b.log.Info("Bot started.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Handle(ctx, u)
			}()
		}
	}
}

// Handle dispatches one update.
func (b *Bot) Handle(ctx context.Context, u Update) {
	cmd, ok := parseCommand(u.Text)
	if !ok {
		return
	}
	if u.ChatID != b.cfg.ChatID {
		b.log.Warn("rejected update from foreign chat", "chat", u.ChatID, "from", u.From)
		b.reply(ctx, u, i18n.T("bot.private"))
		return
	}

	switch cmd {
	case "start":
		b.reply(ctx, u, i18n.T("bot.ready"))
	case "random":
		b.random(ctx, u)
	case "history":
		b.showHistory(ctx, u)
	case "help":
		b.reply(ctx, u, i18n.T("bot.help"))
	default:
		b.reply(ctx, u, i18n.T("bot.unknown_command"))
	}
}

// parseCommand extracts "random" from "/random@SomeBot extra".
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.Fields(text[1:])
	if len(word) == 0 {
		return "", false
	}
	cmd, _, _ := strings.Cut(word[0], "@")
	return strings.ToLower(cmd), cmd != ""
}

func (b *Bot) reply(ctx context.Context, u Update, text string) {
	if _, err := b.msg.Reply(ctx, u.ChatID, u.MessageID, text); err != nil {
		b.log.Error("reply failed", "chat", u.ChatID, "err", err)
	}
}

func (b *Bot) showHistory(ctx context.Context, u Update) {
	if b.history == nil {
		b.reply(ctx, u, i18n.T("bot.history_empty"))
		return
	}
	rows, err := b.history.RecentDownloads(ctx, b.cfg.HistoryLimit)
	if err != nil {
		b.log.Error("history query failed", "err", err)
		b.reply(ctx, u, i18n.T("bot.error", err))
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, u, i18n.T("bot.history_empty"))
		return
	}
	lines := []string{i18n.T("bot.history_header")}
	for _, d := range rows {
		name := d.FileName
		if name == "" {
			name = d.Title
		}
		lines = append(lines, i18n.T("bot.history_line", d.CreatedAt.Local().Format("2006-01-02 15:04"), string(d.Status), name))
	}
	b.reply(ctx, u, strings.Join(lines, "\n"))
}

// statusMessage edits one message, skipping edits that would not change it.
type statusMessage struct {
	msg  Messenger
	ref  MessageRef
	mu   sync.Mutex
	last string
	log  *clog.Logger
}

func (s *statusMessage) set(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.last {
		return
	}
	if err := s.msg.Edit(ctx, s.ref, text); err != nil {
		s.log.Debug("status edit failed", "err", err)
		return
	}
	s.last = text
}

// attempt tracks the history row of one /random run.
type attempt struct {
	b  *Bot
	id int64
	ok bool
}

func (a *attempt) finish(ctx context.Context, status model.Status, file string, size int64, errText string) {
	if !a.ok {
		return
	}
	if err := a.b.history.FinishDownload(ctx, a.id, status, file, size, errText); err != nil {
		a.b.log.Error("history update failed", "id", a.id, "err", err)
	}
}

func (b *Bot) begin(ctx context.Context, chatID int64, title, pageURL string) *attempt {
	a := &attempt{b: b}
	if b.history == nil {
		return a
	}
	id, err := b.history.CreateDownload(ctx, chatID, title, pageURL)
	if err != nil {
		b.log.Error("history insert failed", "err", err)
		return a
	}
	a.id, a.ok = id, true
	return a
}

func (b *Bot) random(ctx context.Context, u Update) {
	ref, err := b.msg.Reply(ctx, u.ChatID, u.MessageID, i18n.T("bot.fetching"))
	if err != nil {
		b.log.Error("reply failed", "chat", u.ChatID, "err", err)
		return
	}
	st := &statusMessage{msg: b.msg, ref: ref, last: i18n.T("bot.fetching"), log: b.log}

	fail := func(a *attempt, err error) {
		b.log.Error("Error", "err", err)
		a.finish(ctx, model.StatusFailed, "", 0, err.Error())
		st.set(ctx, i18n.T("bot.error", err))
	}

	page, err := b.resolver.Resolve(ctx)
	if err != nil {
		fail(b.begin(ctx, u.ChatID, "", ""), err)
		return
	}
	a := b.begin(ctx, u.ChatID, page.Title, page.URL)
	b.log.Info("selected", "title", page.Title, "url", page.URL)
	st.set(ctx, i18n.T("bot.selected", page.Title))

	path, err := b.download(ctx, st, page.URL)
	if err != nil {
		fail(a, err)
		return
	}
	if !b.cfg.KeepFiles {
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				b.log.Warn("could not remove download", "file", path, "err", err)
			}
		}()
	}

	info, err := os.Stat(path)
	if err != nil {
		fail(a, err)
		return
	}
	name := filepath.Base(path)
	size := info.Size()
	if size > b.cfg.MaxSendBytes {
		a.finish(ctx, model.StatusTooLarge, name, size, "")
		st.set(ctx, i18n.T("bot.too_large", float64(size)/1024/1024))
		return
	}

	st.set(ctx, i18n.T("bot.uploading", name))
	if err := b.msg.SendDocument(ctx, u.ChatID, path); err != nil {
		fail(a, fmt.Errorf("send document: %w", err))
		return
	}
	st.set(ctx, i18n.T("bot.sent", name))
	a.finish(ctx, model.StatusSent, name, size, "")

	if b.archiver != nil {
		if remote, err := b.archiver.Upload(ctx, path); err != nil {
			b.log.Warn("archive upload failed", "file", name, "err", err)
		} else {
			b.log.Info("archived", "file", name, "remote", remote)
		}
	}
}

// download runs the downloader in its own goroutine and reports progress on
// the status message until it returns.
func (b *Bot) download(ctx context.Context, st *statusMessage, url string) (string, error) {
	var progress download.Progress
	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		p, err := b.downloader.Download(ctx, url, b.cfg.DownloadDir, progress.Set)
		done <- result{p, err}
	}()

	ticker := b.clock.NewTicker(b.cfg.ProgressInterval)
	defer ticker.Stop()
	st.set(ctx, i18n.T("bot.downloading", progress.Get()))
	for {
		select {
		case r := <-done:
			return r.path, r.err
		case <-ticker.C:
			st.set(ctx, i18n.T("bot.downloading", progress.Get()))
		}
	}
}
