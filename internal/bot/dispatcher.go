package bot

import (
	"context"
	"errors"
	"fmt"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/store"

	"github.com/rs/zerolog"
)

// HandlerFunc answers one event.
type HandlerFunc func(ctx context.Context, ev Event) (Reply, error)

// Options configures a Dispatcher.
type Options struct {
	Instrument notifier.Instrument
	AdminID    int64
	// Threshold returns the threshold given to new subscribers.
	Threshold      func() model.Threshold
	OrderBookDepth int
	Restarter      Restarter
}

// Dispatcher maps each Action to exactly one handler.
type Dispatcher struct {
	state    *store.Manager
	fetcher  collector.Fetcher
	opts     Options
	handlers map[Action]HandlerFunc
	log      zerolog.Logger
}

// NewDispatcher builds the routing table.
func NewDispatcher(state *store.Manager, fetcher collector.Fetcher, opts Options) *Dispatcher {
	if opts.Threshold == nil {
		opts.Threshold = func() model.Threshold { return model.DefaultThreshold }
	}
	if opts.OrderBookDepth <= 0 {
		opts.OrderBookDepth = 5
	}
	d := &Dispatcher{
		state:   state,
		fetcher: fetcher,
		opts:    opts,
		log:     logger.Component("bot"),
	}
	d.handlers = map[Action]HandlerFunc{
		ActionMenu:         d.menu,
		ActionPrice:        d.price,
		ActionOrderBook:    d.orderBook,
		ActionChart:        d.chart,
		ActionSettings:     d.settings,
		ActionSetThreshold: d.setThreshold,
		ActionToggle:       d.toggle,
		ActionHelp:         d.help,
		ActionStart:        d.start,
		ActionStop:         d.stop,
		ActionRestart:      d.restart,
	}
	return d
}

// Dispatch runs the handler for ev.Action. Errors become a user-visible warning.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Reply {
	h, ok := d.handlers[ev.Action]
	if !ok {
		d.log.Warn().Int("action", int(ev.Action)).Int64("chat", ev.ChatID).Msg("unknown action")
		return d.mustHelp(ctx, ev)
	}
	d.log.Info().Str("action", ev.Action.String()).Int64("chat", ev.ChatID).Msg("handling")

	reply, err := h(ctx, ev)
	if err != nil {
		d.log.Error().Err(err).Str("action", ev.Action.String()).Int64("chat", ev.ChatID).Msg("handler failed")
		var ue *userError
		if errors.As(err, &ue) {
			return Reply{Text: "⚠️ " + ue.msg, Keyboard: [][]Button{backRow()}}
		}
		return Reply{Text: "⚠️ 요청을 처리하지 못했습니다.", Keyboard: [][]Button{backRow()}}
	}
	return reply
}

func (d *Dispatcher) mustHelp(ctx context.Context, ev Event) Reply {
	r, _ := d.help(ctx, ev)
	return r
}

// userError carries a message that is safe to show in the chat.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *userError) Unwrap() error { return e.err }

func userErr(msg string, err error) error { return &userError{msg: msg, err: err} }
