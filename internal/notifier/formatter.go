package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"StockSentinel/internal/model"

	"github.com/dustin/go-humanize"
)

// Instrument names the tracked stock in messages.
type Instrument struct {
	Code string
	Name string
}

func (i Instrument) title() string { return html.EscapeString(i.Name) }

// won formats a KRW amount with thousands separators.
func won(v int64) string { return humanize.Comma(v) + "원" }

// FormatAlert renders any alert kind.
func FormatAlert(in Instrument, a model.Alert) string {
	switch a.Kind {
	case model.AlertOpen:
		return FormatOpen(in, a)
	case model.AlertClose:
		return FormatClose(in, a)
	default:
		return FormatThreshold(in, a)
	}
}

// FormatOpen renders the market-open alert.
func FormatOpen(in Instrument, a model.Alert) string {
	arrow := "🔺"
	if a.ChangePct < 0 {
		arrow = "🔻"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s 장 시작</b>\n\n", in.title()))
	b.WriteString(fmt.Sprintf("🔔 시작가: %s\n", won(a.Price)))
	b.WriteString(fmt.Sprintf("📈 전일대비: %s %+.2f%%\n", arrow, a.ChangePct))
	b.WriteString(fmt.Sprintf("⏰ %s", a.FiredAt.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatThreshold renders a move past the alert threshold.
func FormatThreshold(in Instrument, a model.Alert) string {
	direction, emoji := "상승", "🚀"
	if a.ChangePct < 0 {
		direction, emoji = "하락", "📉"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s %.1f%% %s!</b>\n\n", emoji, in.title(), math.Abs(a.ChangePct), direction))
	b.WriteString(fmt.Sprintf("💰 현재가: %s\n", won(a.Price)))
	b.WriteString(fmt.Sprintf("📊 시가대비: %+.2f%%\n", a.OpenPct))
	b.WriteString(fmt.Sprintf("📍 알림기준: %s\n", won(a.Reference)))
	b.WriteString(fmt.Sprintf("⏰ %s", a.FiredAt.Format("15:04:05")))
	return b.String()
}

// FormatClose renders the market-close summary.
func FormatClose(in Instrument, a model.Alert) string {
	resultEmoji, resultText := "📈", "상승"
	if a.ChangePct < 0 {
		resultEmoji, resultText = "📉", "하락"
	}
	q := a.Quote
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s 장 마감</b>\n\n", in.title()))
	b.WriteString(fmt.Sprintf("💰 종가: %s\n", won(a.Price)))
	b.WriteString(fmt.Sprintf("%s 등락: %s %.2f%%\n\n", resultEmoji, resultText, math.Abs(a.ChangePct)))
	b.WriteString(fmt.Sprintf("📊 시가: %s\n", won(a.Reference)))
	b.WriteString(fmt.Sprintf("📈 고가: %s\n", won(q.High)))
	b.WriteString(fmt.Sprintf("📉 저가: %s\n", won(q.Low)))
	b.WriteString(fmt.Sprintf("📅 전일대비: %+.2f%%\n", q.ChangeRate))
	if q.Volume > 0 {
		b.WriteString(fmt.Sprintf("📦 거래량: %s주\n", humanize.Comma(q.Volume)))
	}
	b.WriteString(fmt.Sprintf("\n⏰ %s", a.FiredAt.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatQuote renders the on-demand price view.
func FormatQuote(in Instrument, q *model.Quote) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💹 <b>%s (%s) 현재 주가</b>\n\n", in.title(), in.Code))
	b.WriteString(fmt.Sprintf("💰 현재가: %s (%+.2f%%)\n", won(q.Current), q.ChangeRate))
	b.WriteString(fmt.Sprintf("📊 시가: %s\n", won(q.Open)))
	b.WriteString(fmt.Sprintf("📈 고가: %s\n", won(q.High)))
	b.WriteString(fmt.Sprintf("📉 저가: %s\n", won(q.Low)))
	b.WriteString(fmt.Sprintf("📅 전일종가: %s\n", won(q.PrevClose)))
	b.WriteString(fmt.Sprintf("📦 거래량: %s주\n", humanize.Comma(q.Volume)))
	b.WriteString(fmt.Sprintf("⏰ %s", q.Timestamp.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatOrderBook renders up to depth levels on each side, asks on top.
func FormatOrderBook(in Instrument, ob *model.OrderBook, depth int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>%s 호가</b>\n\n", in.title()))

	asks := ob.Asks
	if len(asks) > depth {
		asks = asks[:depth]
	}
	for i := len(asks) - 1; i >= 0; i-- {
		b.WriteString(fmt.Sprintf("🔵 매도 %s  %s\n", won(asks[i].Price), humanize.Comma(asks[i].Quantity)))
	}
	b.WriteString("──────────\n")
	bids := ob.Bids
	if len(bids) > depth {
		bids = bids[:depth]
	}
	for _, l := range bids {
		b.WriteString(fmt.Sprintf("🔴 매수 %s  %s\n", won(l.Price), humanize.Comma(l.Quantity)))
	}
	b.WriteString(fmt.Sprintf("\n총 매도잔량: %s\n", humanize.Comma(ob.TotalAsk)))
	b.WriteString(fmt.Sprintf("총 매수잔량: %s", humanize.Comma(ob.TotalBid)))
	return b.String()
}

// FormatChart renders the chart link message.
func FormatChart(in Instrument, url string) string {
	return fmt.Sprintf("📈 <b>%s 차트</b>\n\n<a href=\"%s\">네이버 증권에서 보기</a>", in.title(), html.EscapeString(url))
}

// FormatSettings renders a subscriber's alert settings.
func FormatSettings(sub model.Subscriber) string {
	status := "🔕 꺼짐"
	if sub.Enabled {
		status = "🔔 켜짐"
	}
	var b strings.Builder
	b.WriteString("⚙️ <b>알림 설정</b>\n\n")
	b.WriteString(fmt.Sprintf("상태: %s\n", status))
	b.WriteString(fmt.Sprintf("변동 알림 기준: %s\n", FormatThresholdValue(sub.Threshold)))
	if sub.LastAlertPrice > 0 {
		b.WriteString(fmt.Sprintf("현재 기준가: %s\n", won(sub.LastAlertPrice)))
	}
	b.WriteString("\n아래 버튼으로 기준을 바꿀 수 있습니다.")
	return b.String()
}

// FormatThresholdValue renders a threshold as a percentage label.
func FormatThresholdValue(t model.Threshold) string {
	return fmt.Sprintf("%g%%", float64(t))
}

// FormatHelp lists what the bot can do.
func FormatHelp(in Instrument) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("ℹ️ <b>%s 알림봇 도움말</b>\n\n", in.title()))
	b.WriteString("• 장 시작 후 시작가 알림\n")
	b.WriteString("• 기준가 대비 설정한 % 이상 변동 시 알림\n")
	b.WriteString("• 장 마감 후 종가 요약\n\n")
	b.WriteString("/start - 알림 구독\n")
	b.WriteString("/menu - 메뉴 열기\n")
	b.WriteString("/price - 현재가\n")
	b.WriteString("/stop - 알림 구독 해제\n")
	b.WriteString("/help - 도움말")
	return b.String()
}

// FormatWelcome is sent after /start.
func FormatWelcome(in Instrument, sub model.Subscriber) string {
	return fmt.Sprintf("✅ <b>%s 알림 구독 완료</b>\n\n변동 알림 기준: %s\n아래 메뉴를 이용하세요.",
		in.title(), FormatThresholdValue(sub.Threshold))
}

// FormatTestMessage is sent by the connectivity test.
func FormatTestMessage(in Instrument, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("✅ <b>%s 알림봇 테스트</b>\n\n", in.title()))
	b.WriteString("봇이 정상적으로 연결되었습니다!\n")
	b.WriteString(fmt.Sprintf("종목: %s (%s)\n\n", in.title(), in.Code))
	b.WriteString(fmt.Sprintf("⏰ %s", now.Format("2006-01-02 15:04:05")))
	return b.String()
}
