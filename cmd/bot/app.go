package main

import (
	"fmt"
	"io"

	"StockSentinel/internal/bot"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"
	"StockSentinel/internal/monitor"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/store"

	"github.com/rs/zerolog/log"
)

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	watcher  *config.Watcher
	cfg      *config.Config
	state    *store.Manager
	fetcher  collector.Fetcher
	recorder recorder.Recorder
	tg       *notifier.Telegram
	logs     io.Closer
}

// setup loads and validates the config, then opens logging, state and history.
// Telegram is connected only when withTelegram is set.
func setup(withTelegram bool) (*app, error) {
	w, err := config.NewWatcher(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	cfg := w.Current()

	logs, err := logger.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, err
	}
	a := &app{watcher: w, cfg: cfg, logs: logs}

	st, err := openStore(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.state, err = store.NewManager(st)
	if err != nil {
		st.Close()
		a.close()
		return nil, fmt.Errorf("load state: %w", err)
	}

	a.fetcher = newFetcher(cfg, useMock)
	a.recorder = openRecorder(cfg)

	if withTelegram {
		a.tg, err = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Proxy)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	log.Info().
		Str("code", cfg.Stock.Code).
		Str("name", cfg.Stock.Name).
		Str("source", a.fetcher.Name()).
		Str("state", cfg.State.Backend).
		Msg("initialized")
	return a, nil
}

// newFetcher picks the Naver API, or fixed sample data when mock is set.
func newFetcher(cfg *config.Config, mock bool) collector.Fetcher {
	if mock {
		return collector.NewMockFetcher(mockPrice)
	}
	return collector.NewNaverFetcher(cfg.Stock.Code, cfg.Proxy)
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.State.Backend {
	case "bunt":
		return store.NewBuntStore(cfg.State.File)
	default:
		return store.NewFileStore(cfg.State.File), nil
	}
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	r, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return r
}

func (a *app) instrument() notifier.Instrument {
	return notifier.Instrument{Code: a.cfg.Stock.Code, Name: a.cfg.Stock.Name}
}

func (a *app) monitor() *monitor.Monitor {
	m := monitor.New(a.cfg, a.state, a.fetcher, a.tg, a.recorder)
	m.Watch(a.watcher)
	return m
}

// bind wires the chat menu into the running bot. onRestart is called after the
// admin's update command succeeded.
func (a *app) bind(onRestart func()) error {
	d := bot.NewDispatcher(a.state, a.fetcher, bot.Options{
		Instrument: a.instrument(),
		AdminID:    a.cfg.Telegram.AdminID,
		Threshold:  func() model.Threshold { return a.watcher.Current().Threshold() },
		Restarter: &bot.CommandRestarter{
			Command: a.cfg.Admin.UpdateCommand,
			OnExit:  onRestart,
		},
	})
	return bot.Bind(a.tg.Bot(), d)
}

// close is safe to call more than once.
func (a *app) close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			log.Error().Err(err).Msg("close recorder")
		}
		a.recorder = nil
	}
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			log.Error().Err(err).Msg("close state")
		}
		a.state = nil
	}
	if a.logs != nil {
		a.logs.Close()
		a.logs = nil
	}
}
