package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"StockSentinel/internal/model"
)

// FileStore keeps the state as an indented JSON file, rewritten in full on every save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*model.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	return decode(data)
}

func (s *FileStore) Save(state *model.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *FileStore) Close() error { return nil }

func decode(data []byte) (*model.State, error) {
	state := model.NewState()
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	state.Normalize()
	return state, nil
}
