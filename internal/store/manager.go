package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"StockSentinel/internal/model"
)

// ErrNotSubscribed is returned when a chat has no subscription.
var ErrNotSubscribed = errors.New("not subscribed")

// Manager owns the in-memory state and serializes every read-modify-write against the store.
type Manager struct {
	mu    sync.Mutex
	state *model.State
	store Store
	now   func() time.Time
}

// NewManager loads the current state from s.
func NewManager(s Store) (*Manager, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	return &Manager{state: state, store: s, now: time.Now}, nil
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() *model.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Update applies fn to a copy of the state. When fn succeeds the copy becomes current
// and is saved; when fn fails nothing changes.
// A save error is returned but the in-memory state is kept.
func (m *Manager) Update(fn func(st *model.State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = m.now()
	m.state = next
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Subscribe creates a subscription for chatID, or re-enables an existing one.
func (m *Manager) Subscribe(chatID int64, threshold model.Threshold) (model.Subscriber, error) {
	var out model.Subscriber
	err := m.Update(func(st *model.State) error {
		sub, ok := st.Subscribers[chatID]
		if !ok {
			sub = &model.Subscriber{
				ChatID:         chatID,
				Threshold:      threshold.OrDefault(),
				LastAlertPrice: st.Day.LastAlertPrice,
				CreatedAt:      m.now(),
			}
			st.Subscribers[chatID] = sub
		}
		sub.Enabled = true
		out = *sub
		return nil
	})
	return out, err
}

// Unsubscribe deletes the subscription for chatID.
func (m *Manager) Unsubscribe(chatID int64) error {
	return m.Update(func(st *model.State) error {
		if _, ok := st.Subscribers[chatID]; !ok {
			return ErrNotSubscribed
		}
		delete(st.Subscribers, chatID)
		return nil
	})
}

// Subscriber returns a copy of the subscription for chatID.
func (m *Manager) Subscriber(chatID int64) (model.Subscriber, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.state.Subscribers[chatID]
	if !ok {
		return model.Subscriber{}, false
	}
	return *sub, true
}

// SetThreshold changes the alert threshold of chatID.
func (m *Manager) SetThreshold(chatID int64, threshold model.Threshold) (model.Subscriber, error) {
	if !threshold.Valid() {
		return model.Subscriber{}, fmt.Errorf("threshold %v%% is not selectable", float64(threshold))
	}
	var out model.Subscriber
	err := m.Update(func(st *model.State) error {
		sub, ok := st.Subscribers[chatID]
		if !ok {
			return ErrNotSubscribed
		}
		sub.Threshold = threshold
		out = *sub
		return nil
	})
	return out, err
}

// ToggleEnabled flips the enabled flag of chatID.
func (m *Manager) ToggleEnabled(chatID int64) (model.Subscriber, error) {
	var out model.Subscriber
	err := m.Update(func(st *model.State) error {
		sub, ok := st.Subscribers[chatID]
		if !ok {
			return ErrNotSubscribed
		}
		sub.Enabled = !sub.Enabled
		out = *sub
		return nil
	})
	return out, err
}

// ResetDay clears the day-scoped tracking so the next poll starts a new day.
func (m *Manager) ResetDay() error {
	return m.Update(func(st *model.State) error {
		st.Day = model.DayState{}
		return nil
	})
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
