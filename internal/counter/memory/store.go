// Package memory keeps counters in process memory. Values do not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/samatributa/invoicegen/internal/counter/domain"
)

type Store struct {
	mu     sync.Mutex
	values map[string]int64
}

var (
	_ domain.Store    = (*Store)(nil)
	_ domain.Advancer = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{values: make(map[string]int64)}
}

func (s *Store) Get(_ context.Context, key string) (int64, bool, error) {
	if key == "" {
		return 0, false, domain.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key string, value int64) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Advance(_ context.Context, key string, value int64) (int64, bool, error) {
	if key == "" {
		return 0, false, domain.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.values[key]
	if current >= value {
		return current, false, nil
	}
	s.values[key] = value
	return value, true, nil
}
