package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"StockSentinel/internal/model"

	"github.com/tidwall/buntdb"
)

const stateKey = "state"

// BuntStore keeps the state document under a single key of a BuntDB file.
type BuntStore struct {
	db *buntdb.DB
}

// NewBuntStore opens path; ":memory:" keeps everything in memory.
func NewBuntStore(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb: %w", err)
	}
	return &BuntStore{db: db}, nil
}

func (s *BuntStore) Load() (*model.State, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		var err error
		raw, err = tx.Get(stateKey)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return model.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return decode([]byte(raw))
}

func (s *BuntStore) Save(state *model.State) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		if _, _, err := tx.Set(stateKey, string(content), nil); err != nil {
			return fmt.Errorf("store state: %w", err)
		}
		return nil
	})
}

func (s *BuntStore) Close() error {
	return s.db.Close()
}
