package model

import (
	"slices"
	"time"
)

// DateLayout is the layout of DayState.LastDate.
const DateLayout = "2006-01-02"

// Threshold is a percentage move that triggers a new alert.
type Threshold float64

// DefaultThreshold is used when nothing else is configured.
const DefaultThreshold Threshold = 2

// Thresholds lists every selectable threshold, smallest first.
var Thresholds = []Threshold{1, 2, 3, 5}

// Valid reports whether t is one of the selectable thresholds.
func (t Threshold) Valid() bool {
	return slices.Contains(Thresholds, t)
}

// OrDefault returns t if valid, otherwise DefaultThreshold.
func (t Threshold) OrDefault() Threshold {
	if t.Valid() {
		return t
	}
	return DefaultThreshold
}

// DayState tracks alert progress within one trading day.
type DayState struct {
	LastDate       string `json:"last_date"`
	OpenPrice      int64  `json:"open_price"`
	BasePrice      int64  `json:"base_price"`
	LastAlertPrice int64  `json:"last_alert_price"`
	PrevClose      int64  `json:"prev_close,omitempty"`
	SentOpenAlert  bool   `json:"sent_open_alert"`
	SentCloseAlert bool   `json:"sent_close_alert"`
}

// Subscriber holds per-chat alert settings.
type Subscriber struct {
	ChatID         int64     `json:"chat_id"`
	Enabled        bool      `json:"enabled"`
	Threshold      Threshold `json:"threshold"`
	LastAlertPrice int64     `json:"last_alert_price"`
	CreatedAt      time.Time `json:"created_at"`
}

// State is the whole persisted document.
type State struct {
	Day         DayState              `json:"day"`
	Subscribers map[int64]*Subscriber `json:"subscribers"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewState returns an empty state with an initialized subscriber map.
func NewState() *State {
	return &State{Subscribers: make(map[int64]*Subscriber)}
}

// Normalize fills defaults for fields missing from older documents.
func (s *State) Normalize() {
	if s.Subscribers == nil {
		s.Subscribers = make(map[int64]*Subscriber)
	}
	for id, sub := range s.Subscribers {
		if sub == nil {
			delete(s.Subscribers, id)
			continue
		}
		sub.ChatID = id
		sub.Threshold = sub.Threshold.OrDefault()
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{Day: s.Day, UpdatedAt: s.UpdatedAt, Subscribers: make(map[int64]*Subscriber, len(s.Subscribers))}
	for id, sub := range s.Subscribers {
		cp := *sub
		c.Subscribers[id] = &cp
	}
	return c
}

// EnabledSubscribers returns the chat ids of enabled subscribers in ascending order.
func (s *State) EnabledSubscribers() []int64 {
	ids := make([]int64, 0, len(s.Subscribers))
	for id, sub := range s.Subscribers {
		if sub.Enabled {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
