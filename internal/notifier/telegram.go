package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"StockSentinel/internal/logger"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	tb "gopkg.in/tucnak/telebot.v2"
)

// Messenger is the part of *tb.Bot used for delivery.
type Messenger interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram sends messages via the Telegram Bot API.
type Telegram struct {
	client  Messenger
	bot     *tb.Bot
	Retries int
	Backoff backoff.Backoff
	log     zerolog.Logger
}

// NewTelegram connects a long-polling bot with optional proxy support.
// Handlers run one at a time on the poller goroutine.
func NewTelegram(botToken, proxyURL string) (*Telegram, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	bot, err := tb.NewBot(tb.Settings{
		Token:       botToken,
		Poller:      &tb.LongPoller{Timeout: 10 * time.Second},
		ParseMode:   tb.ModeHTML,
		Synchronous: true,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	t := NewTelegramWithClient(bot)
	t.bot = bot
	return t, nil
}

// NewTelegramWithClient wraps any Messenger.
func NewTelegramWithClient(client Messenger) *Telegram {
	return &Telegram{
		client:  client,
		Retries: 3,
		Backoff: backoff.Backoff{Min: time.Second, Max: 8 * time.Second, Factor: 2},
		log:     logger.Component("telegram"),
	}
}

// Bot returns the underlying bot, nil when built from a plain Messenger.
func (t *Telegram) Bot() *tb.Bot { return t.bot }

// Send delivers text to one chat, retrying with exponential backoff.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string, options ...interface{}) error {
	b := t.Backoff
	b.Reset()
	var lastErr error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		_, err := t.client.Send(&tb.Chat{ID: chatID}, text, options...)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == t.Retries {
			break
		}
		wait := b.Duration()
		t.log.Warn().Err(err).Int64("chat", chatID).
			Msgf("send failed (attempt %d/%d), retrying in %v", attempt+1, t.Retries+1, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("send to %d: all %d attempts failed: %w", chatID, t.Retries+1, lastErr)
}

// Broadcast sends text to every chat and returns how many deliveries succeeded.
// A failing chat is logged and does not stop delivery to the rest.
func (t *Telegram) Broadcast(ctx context.Context, chatIDs []int64, text string, options ...interface{}) int {
	sent := 0
	for _, id := range chatIDs {
		if ctx.Err() != nil {
			break
		}
		if err := t.Send(ctx, id, text, options...); err != nil {
			t.log.Error().Err(err).Int64("chat", id).Msg("broadcast delivery failed")
			continue
		}
		sent++
	}
	t.log.Info().Int("sent", sent).Int("recipients", len(chatIDs)).Msgf("broadcast: %.50s", text)
	return sent
}

// Start runs the long poller until Stop is called.
func (t *Telegram) Start() {
	if t.bot != nil {
		t.bot.Start()
	}
}

// Stop stops the long poller.
func (t *Telegram) Stop() {
	if t.bot != nil {
		t.bot.Stop()
	}
}
