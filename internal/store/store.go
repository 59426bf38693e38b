// Package store persists the bot state document.
package store

import "StockSentinel/internal/model"

// Store loads and saves the whole state document.
// Load returns an empty, normalized state when nothing was saved yet.
type Store interface {
	Load() (*model.State, error)
	Save(state *model.State) error
	Close() error
}
