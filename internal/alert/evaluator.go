// Package alert decides which open, threshold and close alerts fire for a quote.
package alert

import (
	"math"
	"time"

	"StockSentinel/internal/config"
	"StockSentinel/internal/model"

	"github.com/google/uuid"
)

// Rules configures the evaluator. Times are offsets from local midnight.
type Rules struct {
	Threshold model.Threshold
	OpenFrom  time.Duration
	OpenUntil time.Duration
	CloseAt   time.Duration
	Location  *time.Location
}

// RulesFromConfig builds Rules from the loaded config.
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		Threshold: cfg.Threshold(),
		OpenFrom:  cfg.Alert.OpenFrom.Offset(),
		OpenUntil: cfg.Alert.OpenUntil.Offset(),
		CloseAt:   cfg.Alert.CloseAt.Offset(),
		Location:  cfg.Location(),
	}
}

// Evaluator applies Rules to successive quotes.
type Evaluator struct {
	Rules Rules
	NewID func() string
}

func NewEvaluator(rules Rules) *Evaluator {
	return &Evaluator{Rules: rules, NewID: uuid.NewString}
}

// Evaluate updates st for quote q observed at now and returns the alerts that fired,
// in the order open, threshold, close.
func (e *Evaluator) Evaluate(q *model.Quote, st *model.State, now time.Time) []model.Alert {
	loc := e.Rules.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	clock := sinceMidnight(now)

	e.rollover(q, st, now.Format(model.DateLayout))

	var alerts []model.Alert
	day := &st.Day

	// a missing open or previous close postpones the open alert within the window
	if !day.SentOpenAlert && day.OpenPrice > 0 && q.PrevClose > 0 &&
		clock >= e.Rules.OpenFrom && clock < e.Rules.OpenUntil {
		alerts = append(alerts, e.newAlert(model.AlertOpen, q, now, day.OpenPrice, q.PrevClose, day.OpenPrice))
		day.SentOpenAlert = true
	}

	if a, ok := e.threshold(q, now, day.OpenPrice, &day.LastAlertPrice, e.Rules.Threshold); ok {
		a.Audience = model.AudienceDefault
		alerts = append(alerts, a)
	}
	for _, id := range st.EnabledSubscribers() {
		sub := st.Subscribers[id]
		if a, ok := e.threshold(q, now, day.OpenPrice, &sub.LastAlertPrice, sub.Threshold.OrDefault()); ok {
			a.Audience = model.AudienceChat
			a.ChatID = id
			alerts = append(alerts, a)
		}
	}

	if !day.SentCloseAlert && clock >= e.Rules.CloseAt {
		alerts = append(alerts, e.newAlert(model.AlertClose, q, now, q.Current, day.OpenPrice, day.OpenPrice))
		day.SentCloseAlert = true
		day.PrevClose = q.Current
	}

	return alerts
}

// rollover starts a new day when the date changed. Every ratchet, including those of
// disabled subscribers, restarts from the day's open.
func (e *Evaluator) rollover(q *model.Quote, st *model.State, today string) {
	day := &st.Day
	if day.LastDate != today {
		*day = model.DayState{
			LastDate:       today,
			OpenPrice:      q.Open,
			BasePrice:      q.Open,
			LastAlertPrice: q.Open,
			PrevClose:      day.PrevClose,
		}
		for _, sub := range st.Subscribers {
			sub.LastAlertPrice = q.Open
		}
		return
	}

	// the source reports no open before the first trade; adopt it once it appears
	if day.OpenPrice <= 0 && q.Open > 0 {
		day.OpenPrice = q.Open
		day.BasePrice = q.Open
		if day.LastAlertPrice <= 0 {
			day.LastAlertPrice = q.Open
		}
		for _, sub := range st.Subscribers {
			if sub.LastAlertPrice <= 0 {
				sub.LastAlertPrice = q.Open
			}
		}
	}
}

// threshold fires when the move from *ref reaches pct and then ratchets *ref to the current price.
func (e *Evaluator) threshold(q *model.Quote, now time.Time, open int64, ref *int64, pct model.Threshold) (model.Alert, bool) {
	if *ref <= 0 || q.Current <= 0 {
		return model.Alert{}, false
	}
	change := PercentChange(q.Current, *ref)
	if math.Abs(change) < float64(pct) {
		return model.Alert{}, false
	}
	a := e.newAlert(model.AlertThreshold, q, now, q.Current, *ref, open)
	*ref = q.Current
	return a, true
}

func (e *Evaluator) newAlert(kind model.AlertKind, q *model.Quote, now time.Time, price, reference, open int64) model.Alert {
	return model.Alert{
		ID:        e.NewID(),
		Kind:      kind,
		Price:     price,
		Reference: reference,
		ChangePct: PercentChange(price, reference),
		OpenPct:   PercentChange(q.Current, open),
		Quote:     *q,
		FiredAt:   now,
	}
}

// PercentChange returns (price-reference)/reference in percent, or 0 when reference is not positive.
func PercentChange(price, reference int64) float64 {
	if reference <= 0 {
		return 0
	}
	return float64(price-reference) * 100 / float64(reference)
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
