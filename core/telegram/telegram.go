// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package telegram adapts the Telegram Bot API to bot.Messenger and feeds
// long-polled updates to the bot.
package telegram

import (
	"context"
	"fmt"
	"net/http"

	clog "github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabot/mediabot/core/bot"
	"github.com/mediabot/mediabot/internal/logging"
)

// PollTimeout is the long-polling timeout in seconds.
const PollTimeout = 30

// Client wraps a BotAPI.
type Client struct {
	api *tgbotapi.BotAPI
}

// New connects with token against the public API endpoint.
func New(token string) (*Client, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{})
}

// NewWithEndpoint connects with a custom endpoint format string
// ("https://host/bot%s/%s") and HTTP client.
func NewWithEndpoint(token, endpoint string, client *http.Client) (*Client, error) {
	if err := tgbotapi.SetLogger(apiLogger{logging.With("telegram")}); err != nil {
		return nil, fmt.Errorf("set telegram logger: %w", err)
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logging.With("telegram").Info("authorized", "account", api.Self.UserName)
	return &Client{api: api}, nil
}

// Username is the bot's account name.
func (c *Client) Username() string { return c.api.Self.UserName }

// Reply implements bot.Messenger.
func (c *Client) Reply(_ context.Context, chatID int64, replyTo int, text string) (bot.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	sent, err := c.api.Send(msg)
	if err != nil {
		return bot.MessageRef{}, err
	}
	return bot.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit implements bot.Messenger.
func (c *Client) Edit(_ context.Context, ref bot.MessageRef, text string) error {
	_, err := c.api.Request(tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text))
	return err
}

// SendDocument implements bot.Messenger. The file name shown in the chat is
// the base name of path.
func (c *Client) SendDocument(_ context.Context, chatID int64, path string) error {
	_, err := c.api.Send(tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path)))
	return err
}

// Updates long-polls for messages and converts them until ctx is cancelled.
// The returned channel is closed after polling stops.
func (c *Client) Updates(ctx context.Context) <-chan bot.Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = PollTimeout
	in := c.api.GetUpdatesChan(cfg)

	out := make(chan bot.Update)
	go func() {
		defer close(out)
		defer c.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-in:
				if !ok {
					return
				}
				bu, ok := convert(u)
				if !ok {
					continue
				}
				select {
				case out <- bu:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func convert(u tgbotapi.Update) (bot.Update, bool) {
	m := u.Message
	if m == nil || m.Chat == nil {
		return bot.Update{}, false
	}
	bu := bot.Update{ChatID: m.Chat.ID, MessageID: m.MessageID, Text: m.Text}
	if m.From != nil {
		bu.From = m.From.UserName
	}
	return bu, true
}

// apiLogger routes the library's log output into the shared logger.
type apiLogger struct{ l *clog.Logger }

func (a apiLogger) Println(v ...interface{}) { a.l.Debug(fmt.Sprint(v...)) }

func (a apiLogger) Printf(format string, v ...interface{}) { a.l.Debugf(format, v...) }
