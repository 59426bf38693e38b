// Package monitor polls the quote source during market hours and delivers alerts.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockSentinel/internal/alert"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/store"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const defaultFallbackDelay = time.Minute

// Sender delivers one text to many chats and reports how many succeeded.
type Sender interface {
	Broadcast(ctx context.Context, chatIDs []int64, text string, options ...interface{}) int
}

// Monitor drives the poll, evaluate and notify cycle.
type Monitor struct {
	mu        sync.Mutex
	cfg       *config.Config
	watcher   *config.Watcher
	state     *store.Manager
	fetcher   collector.Fetcher
	sender    Sender
	recorder  recorder.Recorder
	evaluator *alert.Evaluator

	// Clock returns the current time; tests replace it.
	Clock func() time.Time
	log   zerolog.Logger
}

// New creates a Monitor with a fixed config. Use Watch to enable hot reload.
func New(cfg *config.Config, state *store.Manager, fetcher collector.Fetcher, sender Sender, rec recorder.Recorder) *Monitor {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Monitor{
		cfg:       cfg,
		state:     state,
		fetcher:   fetcher,
		sender:    sender,
		recorder:  rec,
		evaluator: alert.NewEvaluator(alert.RulesFromConfig(cfg)),
		Clock:     time.Now,
		log:       logger.Component("monitor"),
	}
}

// Watch makes every iteration pick up changes of the config file.
func (m *Monitor) Watch(w *config.Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watcher = w
	m.applyConfig(w.Current())
}

// Config returns the config in effect.
func (m *Monitor) Config() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *Monitor) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.evaluator.Rules = alert.RulesFromConfig(cfg)
}

func (m *Monitor) reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher == nil {
		return
	}
	cfg, changed, err := m.watcher.Reload()
	if err != nil {
		m.log.Error().Err(err).Msg("config reload failed, keeping previous config")
		return
	}
	if changed {
		m.applyConfig(cfg)
		m.log.Info().
			Dur("interval", cfg.CheckInterval.Std()).
			Float64("threshold", cfg.Alert.Threshold).
			Msg("config reloaded")
	}
}

// Run polls until ctx is cancelled. A failed iteration waits the fallback delay.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info().Str("code", m.Config().Stock.Code).Msg("monitor started")
	for {
		wait := m.iterate(ctx)
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitor stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// iterate runs one loop step and returns how long to sleep afterwards.
func (m *Monitor) iterate(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("poll iteration panicked")
			wait = defaultFallbackDelay
			if cfg := m.Config(); cfg != nil && cfg.Market.FallbackDelay > 0 {
				wait = cfg.Market.FallbackDelay.Std()
			}
		}
	}()

	m.reload()
	cfg := m.Config()
	wait = cfg.CheckInterval.Std()

	status := SessionFromConfig(cfg).Status(m.Clock())
	if !status.IsOpen {
		m.log.Debug().Str("reason", status.Reason).Msg("market closed, skipping poll")
		return wait
	}
	if err := m.Tick(ctx); err != nil {
		m.log.Error().Err(err).Msg("poll failed")
		return cfg.Market.FallbackDelay.Std()
	}
	return wait
}

// RunOnce polls once when today is a weekday.
func (m *Monitor) RunOnce(ctx context.Context) error {
	now := m.Clock().In(m.Config().Location())
	if !IsWeekday(now) {
		m.log.Info().Str("day", now.Weekday().String()).Msg("weekend, skipping poll")
		return nil
	}
	return m.Tick(ctx)
}

// Tick fetches one quote, evaluates it against the stored state and delivers the alerts.
// A failed fetch leaves the state untouched.
func (m *Monitor) Tick(ctx context.Context) error {
	cfg := m.Config()

	q, err := m.fetcher.FetchQuote(ctx)
	if err != nil {
		return fmt.Errorf("fetch quote: %w", err)
	}
	m.log.Info().
		Int64("price", q.Current).
		Int64("open", q.Open).
		Float64("change_rate", q.ChangeRate).
		Msg("quote")

	if err := m.recorder.RecordQuote(cfg.Stock.Code, q); err != nil {
		m.log.Error().Err(err).Msg("record quote")
	}

	var (
		alerts   []model.Alert
		snapshot *model.State
	)
	err = m.state.Update(func(st *model.State) error {
		alerts = m.evaluator.Evaluate(q, st, m.Clock())
		snapshot = st.Clone()
		return nil
	})
	if err != nil {
		// the in-memory state already advanced, so the alerts still go out
		m.log.Error().Err(err).Msg("persist state")
	}

	m.deliver(ctx, cfg, snapshot, alerts)
	return nil
}

func (m *Monitor) deliver(ctx context.Context, cfg *config.Config, st *model.State, alerts []model.Alert) {
	if len(alerts) == 0 {
		return
	}
	defaults, err := cfg.ChatIDs()
	if err != nil {
		m.log.Error().Err(err).Msg("parse chat ids")
	}
	in := notifier.Instrument{Code: cfg.Stock.Code, Name: cfg.Stock.Name}

	for i := range alerts {
		a := &alerts[i]
		to := Recipients(*a, defaults, st)
		sent := 0
		if len(to) > 0 {
			sent = m.sender.Broadcast(ctx, to, notifier.FormatAlert(in, *a))
		}
		m.log.Info().
			Str("kind", string(a.Kind)).
			Int64("price", a.Price).
			Float64("change_pct", a.ChangePct).
			Int("recipients", len(to)).
			Int("sent", sent).
			Msg("alert")
		if err := m.recorder.RecordAlert(a, sent); err != nil {
			m.log.Error().Err(err).Str("id", a.ID).Msg("record alert")
		}
	}
}

// Recipients resolves the chats an alert goes to. Configured chats that hold a
// subscription follow their own settings instead of the defaults.
func Recipients(a model.Alert, defaults []int64, st *model.State) []int64 {
	subscribed := lo.Keys(st.Subscribers)
	base := lo.Uniq(lo.Without(defaults, subscribed...))

	switch a.Audience {
	case model.AudienceChat:
		return []int64{a.ChatID}
	case model.AudienceDefault:
		return base
	default:
		return lo.Uniq(append(base, st.EnabledSubscribers()...))
	}
}
