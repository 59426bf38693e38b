package monitor

import (
	"time"

	"StockSentinel/internal/config"
)

// Session is the daily window in which the market is polled.
type Session struct {
	Location *time.Location
	Open     time.Duration
	Close    time.Duration
}

// SessionFromConfig builds the polling window from the market section.
func SessionFromConfig(cfg *config.Config) Session {
	return Session{
		Location: cfg.Location(),
		Open:     cfg.Market.Open.Offset(),
		Close:    cfg.Market.Close.Offset(),
	}
}

// SessionStatus describes the market at one instant.
type SessionStatus struct {
	IsOpen bool
	Now    time.Time
	Reason string // "open", "weekend", "pre-market", "after-hours"
}

// Status reports whether now falls on a weekday inside [Open, Close).
// Exchange holidays are not known and count as trading days.
func (s Session) Status(now time.Time) SessionStatus {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	status := SessionStatus{Now: now}

	if !IsWeekday(now) {
		status.Reason = "weekend"
		return status
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch {
	case now.Before(today.Add(s.Open)):
		status.Reason = "pre-market"
	case !now.Before(today.Add(s.Close)):
		status.Reason = "after-hours"
	default:
		status.IsOpen = true
		status.Reason = "open"
	}
	return status
}

// IsWeekday reports whether t falls on Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
