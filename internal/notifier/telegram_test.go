package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/tucnak/telebot.v2"
)

type fakeMessenger struct {
	mu       sync.Mutex
	failures map[string]int // remaining failures per recipient
	sent     []string
	attempts int
}

func (f *fakeMessenger) Send(to tb.Recipient, what interface{}, _ ...interface{}) (*tb.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures[to.Recipient()] > 0 {
		f.failures[to.Recipient()]--
		return nil, errors.New("telegram: 502 bad gateway")
	}
	f.sent = append(f.sent, to.Recipient()+":"+what.(string))
	return &tb.Message{}, nil
}

func newFastTelegram(m Messenger) *Telegram {
	t := NewTelegramWithClient(m)
	t.Backoff = backoff.Backoff{Min: time.Millisecond, Max: 2 * time.Millisecond, Factor: 2}
	return t
}

func TestTelegram_SendRetries(t *testing.T) {
	m := &fakeMessenger{failures: map[string]int{"1": 2}}
	tg := newFastTelegram(m)

	require.NoError(t, tg.Send(context.Background(), 1, "hello"))
	assert.Equal(t, 3, m.attempts)
	assert.Equal(t, []string{"1:hello"}, m.sent)
}

func TestTelegram_SendGivesUp(t *testing.T) {
	m := &fakeMessenger{failures: map[string]int{"1": 100}}
	tg := newFastTelegram(m)
	tg.Retries = 2

	err := tg.Send(context.Background(), 1, "hello")
	assert.Error(t, err)
	assert.Equal(t, 3, m.attempts)
}

func TestTelegram_SendStopsOnCancel(t *testing.T) {
	m := &fakeMessenger{failures: map[string]int{"1": 100}}
	tg := NewTelegramWithClient(m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tg.Send(ctx, 1, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.attempts)
}

func TestTelegram_BroadcastContinuesPastFailures(t *testing.T) {
	m := &fakeMessenger{failures: map[string]int{"2": 100}}
	tg := newFastTelegram(m)
	tg.Retries = 0

	sent := tg.Broadcast(context.Background(), []int64{1, 2, 3}, "alert")
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"1:alert", "3:alert"}, m.sent)
}
