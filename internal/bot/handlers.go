package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/store"
)

const notSubscribedMsg = "먼저 /start 로 알림을 구독하세요."

func (d *Dispatcher) start(_ context.Context, ev Event) (Reply, error) {
	sub, err := d.state.Subscribe(ev.ChatID, d.opts.Threshold())
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text:     notifier.FormatWelcome(d.opts.Instrument, sub),
		Keyboard: MainMenu(sub.Enabled),
	}, nil
}

func (d *Dispatcher) stop(_ context.Context, ev Event) (Reply, error) {
	if err := d.state.Unsubscribe(ev.ChatID); err != nil {
		if errors.Is(err, store.ErrNotSubscribed) {
			return Reply{Text: "구독 중이 아닙니다."}, nil
		}
		return Reply{}, err
	}
	return Reply{Text: "👋 알림 구독을 해제했습니다. 다시 받으려면 /start 를 보내세요."}, nil
}

func (d *Dispatcher) menu(_ context.Context, ev Event) (Reply, error) {
	sub, _ := d.state.Subscriber(ev.ChatID)
	return Reply{
		Text:     fmt.Sprintf("📌 <b>%s 메뉴</b>", html.EscapeString(d.opts.Instrument.Name)),
		Keyboard: MainMenu(sub.Enabled),
		Edit:     true,
	}, nil
}

func (d *Dispatcher) price(ctx context.Context, _ Event) (Reply, error) {
	q, err := d.fetcher.FetchQuote(ctx)
	if err != nil {
		return Reply{}, userErr("주가 조회에 실패했습니다. 잠시 후 다시 시도하세요.", err)
	}
	return Reply{
		Text:     notifier.FormatQuote(d.opts.Instrument, q),
		Keyboard: [][]Button{backRow()},
	}, nil
}

func (d *Dispatcher) orderBook(ctx context.Context, _ Event) (Reply, error) {
	ob, err := d.fetcher.FetchOrderBook(ctx)
	if err != nil {
		return Reply{}, userErr("호가 조회에 실패했습니다. 잠시 후 다시 시도하세요.", err)
	}
	return Reply{
		Text:     notifier.FormatOrderBook(d.opts.Instrument, ob, d.opts.OrderBookDepth),
		Keyboard: [][]Button{backRow()},
	}, nil
}

func (d *Dispatcher) chart(_ context.Context, _ Event) (Reply, error) {
	url := collector.ChartURL(d.opts.Instrument.Code)
	return Reply{
		Text:     notifier.FormatChart(d.opts.Instrument, url),
		Keyboard: [][]Button{{{Label: "📈 차트 열기", URL: url}}, backRow()},
	}, nil
}

func (d *Dispatcher) settings(_ context.Context, ev Event) (Reply, error) {
	sub, ok := d.state.Subscriber(ev.ChatID)
	if !ok {
		return Reply{}, userErr(notSubscribedMsg, nil)
	}
	return Reply{
		Text:     notifier.FormatSettings(sub),
		Keyboard: ThresholdMenu(sub.Threshold),
		Edit:     true,
	}, nil
}

func (d *Dispatcher) setThreshold(_ context.Context, ev Event) (Reply, error) {
	v, err := strconv.ParseFloat(ev.Data, 64)
	if err != nil || !model.Threshold(v).Valid() {
		return Reply{}, userErr("선택할 수 없는 알림 기준입니다.", err)
	}
	sub, err := d.state.SetThreshold(ev.ChatID, model.Threshold(v))
	if errors.Is(err, store.ErrNotSubscribed) {
		return Reply{}, userErr(notSubscribedMsg, err)
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text:     notifier.FormatSettings(sub),
		Keyboard: ThresholdMenu(sub.Threshold),
		Edit:     true,
	}, nil
}

func (d *Dispatcher) toggle(_ context.Context, ev Event) (Reply, error) {
	sub, err := d.state.ToggleEnabled(ev.ChatID)
	if errors.Is(err, store.ErrNotSubscribed) {
		return Reply{}, userErr(notSubscribedMsg, err)
	}
	if err != nil {
		return Reply{}, err
	}
	text := "🔕 알림을 껐습니다."
	if sub.Enabled {
		text = "🔔 알림을 켰습니다."
	}
	return Reply{Text: text, Keyboard: MainMenu(sub.Enabled), Edit: true}, nil
}

func (d *Dispatcher) help(_ context.Context, _ Event) (Reply, error) {
	return Reply{
		Text:     notifier.FormatHelp(d.opts.Instrument),
		Keyboard: [][]Button{backRow()},
	}, nil
}

func (d *Dispatcher) restart(ctx context.Context, ev Event) (Reply, error) {
	if d.opts.AdminID == 0 || ev.UserID != d.opts.AdminID {
		d.log.Warn().Int64("user", ev.UserID).Msg("unauthorized restart request")
		return Reply{Text: "⛔ 관리자만 사용할 수 있는 명령입니다."}, nil
	}
	if d.opts.Restarter == nil {
		return Reply{}, userErr("재시작이 설정되지 않았습니다.", nil)
	}
	out, err := d.opts.Restarter.Update(ctx)
	if err != nil {
		return Reply{}, userErr("업데이트에 실패했습니다.", err)
	}
	text := "🔄 업데이트 완료, 재시작합니다."
	if out != "" {
		text += "\n\n<pre>" + html.EscapeString(out) + "</pre>"
	}
	return Reply{Text: text, After: d.opts.Restarter.Exit}, nil
}
