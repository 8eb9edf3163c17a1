// Package weights persists the uid to weight map submitted each round.
package weights

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

// Store loads and overwrites the persisted weight map as a whole.
type Store interface {
	Load() (map[int]int, error)
	Save(weights map[int]int) error
}

// FileStore keeps the weight map as a JSON object in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted map. A missing file is initialized empty.
func (s *FileStore) Load() (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", s.path).Msg("weights file not found, initializing empty weights")
			if err := s.write(map[int]int{}); err != nil {
				return nil, err
			}
			return map[int]int{}, nil
		}
		return nil, fmt.Errorf("read weights: %w", err)
	}

	var raw map[string]int
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode weights %s: %w", s.path, err)
	}

	weights := make(map[int]int, len(raw))
	for k, v := range raw {
		uid, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode weights %s: invalid uid %q", s.path, k)
		}
		weights[uid] = v
	}
	return weights, nil
}

// Save atomically replaces the persisted map.
func (s *FileStore) Save(weights map[int]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(weights)
}

func (s *FileStore) write(weights map[int]int) error {
	raw := make(map[string]int, len(weights))
	for uid, w := range weights {
		raw[strconv.Itoa(uid)] = w
	}
	data, err := sonic.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create weights dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".weights-*")
	if err != nil {
		return fmt.Errorf("create temp weights file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write weights: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync weights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close weights: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace weights: %w", err)
	}
	return nil
}
