package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/model"
	"StockSentinel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kst = time.FixedZone("KST", 9*60*60)

func at(day, hour, min int) time.Time {
	// October 2026: the 16th is a Friday, the 17th a Saturday
	return time.Date(2026, time.October, day, hour, min, 0, 0, kst)
}

type delivery struct {
	to   []int64
	text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []delivery
}

func (f *fakeSender) Broadcast(_ context.Context, ids []int64, text string, _ ...interface{}) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivery{to: append([]int64(nil), ids...), text: text})
	return len(ids)
}

func (f *fakeSender) deliveries() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery(nil), f.sent...)
}

type fakeRecorder struct {
	alerts []model.Alert
	quotes int
}

func (f *fakeRecorder) RecordAlert(a *model.Alert, _ int) error {
	f.alerts = append(f.alerts, *a)
	return nil
}
func (f *fakeRecorder) RecordQuote(string, *model.Quote) error { f.quotes++; return nil }
func (f *fakeRecorder) Close() error                           { return nil }

type fixture struct {
	m       *Monitor
	state   *store.Manager
	fetcher *collector.MockFetcher
	sender  *fakeSender
	rec     *fakeRecorder
	now     time.Time
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, k := range []string{"TELEGRAM_CHAT_ID", "CHECK_INTERVAL", "ALERT_THRESHOLD"} {
		t.Setenv(k, "")
	}
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "1, 2"
	cfg.Market.Timezone = "Asia/Seoul"
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state, err := store.NewManager(store.NewFileStore(filepath.Join(t.TempDir(), "state.json")))
	require.NoError(t, err)
	f := &fixture{
		state:   state,
		fetcher: &collector.MockFetcher{},
		sender:  &fakeSender{},
		rec:     &fakeRecorder{},
		now:     at(16, 9, 6),
	}
	f.m = New(testConfig(t), state, f.fetcher, f.sender, f.rec)
	f.m.Clock = func() time.Time { return f.now }
	return f
}

func TestTick_FetchFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000, PrevClose: 990})
	require.NoError(t, f.m.Tick(context.Background()))
	before := f.state.Snapshot()

	f.fetcher.Fail(errors.New("timeout"))
	f.now = at(16, 9, 30)
	err := f.m.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "timeout")

	after := f.state.Snapshot()
	assert.Equal(t, before.Day, after.Day)
	assert.Len(t, f.sender.deliveries(), 1)
}

func TestTick_DeliversOpenAndThresholdAlerts(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000, PrevClose: 990})

	require.NoError(t, f.m.Tick(context.Background()))
	sent := f.sender.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, []int64{1, 2}, sent[0].to)
	assert.Contains(t, sent[0].text, "장 시작")

	f.now = at(16, 10, 15)
	f.fetcher.Set(model.Quote{Current: 1025, Open: 1000, PrevClose: 990})
	require.NoError(t, f.m.Tick(context.Background()))
	sent = f.sender.deliveries()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].text, "2.5% 상승")

	assert.Equal(t, 2, f.rec.quotes)
	require.Len(t, f.rec.alerts, 2)
	assert.Equal(t, model.AlertThreshold, f.rec.alerts[1].Kind)
	assert.Equal(t, int64(1025), f.state.Snapshot().Day.LastAlertPrice)
}

func TestTick_SubscribersUseOwnThreshold(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000, PrevClose: 1000})
	require.NoError(t, f.m.Tick(context.Background()))

	// chat 2 is configured and also subscribed, so it follows its own 1% threshold
	_, err := f.state.Subscribe(2, 1)
	require.NoError(t, err)
	_, err = f.state.Subscribe(30, 5)
	require.NoError(t, err)

	f.now = at(16, 11, 0)
	f.fetcher.Set(model.Quote{Current: 1015, Open: 1000, PrevClose: 1000})
	require.NoError(t, f.m.Tick(context.Background()))

	sent := f.sender.deliveries()
	require.Len(t, sent, 2)
	assert.Equal(t, []int64{2}, sent[1].to)
}

func TestTick_CloseGoesToEveryone(t *testing.T) {
	f := newFixture(t)
	_, err := f.state.Subscribe(30, 5)
	require.NoError(t, err)
	_, err = f.state.Subscribe(40, 5)
	require.NoError(t, err)
	_, err = f.state.ToggleEnabled(40)
	require.NoError(t, err)

	f.now = at(16, 15, 31)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000, PrevClose: 1000})
	require.NoError(t, f.m.Tick(context.Background()))

	sent := f.sender.deliveries()
	require.Len(t, sent, 1)
	assert.ElementsMatch(t, []int64{1, 2, 30}, sent[0].to)
	assert.Contains(t, sent[0].text, "장 마감")
	assert.Equal(t, int64(1000), f.state.Snapshot().Day.PrevClose)
}

func TestRecipients(t *testing.T) {
	st := model.NewState()
	st.Subscribers[2] = &model.Subscriber{ChatID: 2, Enabled: false}
	st.Subscribers[3] = &model.Subscriber{ChatID: 3, Enabled: true}

	defaults := []int64{1, 2, 1}
	assert.Equal(t, []int64{1}, Recipients(model.Alert{Audience: model.AudienceDefault}, defaults, st))
	assert.Equal(t, []int64{1, 3}, Recipients(model.Alert{Audience: model.AudienceAll}, defaults, st))
	assert.Equal(t, []int64{9}, Recipients(model.Alert{Audience: model.AudienceChat, ChatID: 9}, defaults, st))
}

func TestRunOnce_SkipsWeekend(t *testing.T) {
	f := newFixture(t)
	f.now = at(17, 10, 0)
	require.NoError(t, f.m.RunOnce(context.Background()))
	assert.Zero(t, f.fetcher.CallCount())

	f.now = at(16, 10, 0)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000})
	require.NoError(t, f.m.RunOnce(context.Background()))
	assert.Equal(t, 1, f.fetcher.CallCount())
}

func TestIterate_GatesOnSession(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000})

	f.now = at(16, 8, 30)
	assert.Equal(t, time.Minute, f.m.iterate(context.Background()))
	assert.Zero(t, f.fetcher.CallCount())

	f.now = at(16, 9, 30)
	f.m.iterate(context.Background())
	assert.Equal(t, 1, f.fetcher.CallCount())

	f.fetcher.Fail(errors.New("down"))
	f.m.cfg.Market.FallbackDelay = config.Duration(5 * time.Second)
	assert.Equal(t, 5*time.Second, f.m.iterate(context.Background()))
}

type panicFetcher struct{ collector.MockFetcher }

func (p *panicFetcher) FetchQuote(context.Context) (*model.Quote, error) { panic("bad payload") }

func TestIterate_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.m.fetcher = &panicFetcher{}
	f.now = at(16, 10, 0)
	assert.Equal(t, time.Minute, f.m.iterate(context.Background()))
}

func TestIterate_RecoversPanicBeforePoll(t *testing.T) {
	f := newFixture(t)
	// a missing config panics while the iteration reads its interval
	f.m.cfg = nil
	assert.Equal(t, defaultFallbackDelay, f.m.iterate(context.Background()))
	assert.Zero(t, f.fetcher.CallCount())
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Set(model.Quote{Current: 1000, Open: 1000})
	f.now = at(16, 10, 0)
	f.m.cfg.CheckInterval = config.Duration(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.m.Run(ctx) }()

	assert.Eventually(t, func() bool { return f.fetcher.CallCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSession_Status(t *testing.T) {
	s := Session{Location: kst, Open: 9 * time.Hour, Close: 16 * time.Hour}

	assert.Equal(t, "pre-market", s.Status(at(16, 8, 59)).Reason)
	assert.True(t, s.Status(at(16, 9, 0)).IsOpen)
	assert.True(t, s.Status(at(16, 15, 59)).IsOpen)
	assert.Equal(t, "after-hours", s.Status(at(16, 16, 0)).Reason)
	assert.Equal(t, "weekend", s.Status(at(17, 10, 0)).Reason)
}

func TestSchedule_InvalidSpec(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Schedule(context.Background(), "not a cron")
	assert.Error(t, err)

	c, err := f.m.Schedule(context.Background(), "0 * 9-15 * * 1-5")
	require.NoError(t, err)
	c.Stop()
}

func TestIterate_HotReload(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  bot_token: x\n  chat_id: \"1\"\nalert:\n  threshold: 2\n"), 0644))
	w, err := config.NewWatcher(path)
	require.NoError(t, err)
	f.m.Watch(w)
	assert.Equal(t, model.Threshold(2), f.m.evaluator.Rules.Threshold)

	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  bot_token: x\n  chat_id: \"1\"\nalert:\n  threshold: 5\n"), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	f.now = at(17, 10, 0)
	f.m.iterate(context.Background())
	assert.Equal(t, 5.0, f.m.Config().Alert.Threshold)
	assert.Equal(t, model.Threshold(5), f.m.evaluator.Rules.Threshold)
}
