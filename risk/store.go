package risk

import (
	"sync"
	"time"
)

// Store holds the current SizingParameters. Readers always get a copy.
type Store struct {
	mu      sync.RWMutex
	params  SizingParameters
	updated time.Time
}

func NewStore(p SizingParameters) *Store {
	return &Store{params: p}
}

func (s *Store) Get() SizingParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Set replaces the parameters wholesale. Invalid snapshots are rejected and
// the previous value kept.
func (s *Store) Set(p SizingParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	s.updated = time.Now()
	return nil
}

// Update applies fn to a copy and stores the result if fn succeeds and the
// result validates.
func (s *Store) Update(fn func(p *SizingParameters) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.params
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.params = next
	s.updated = time.Now()
	return nil
}

// UpdatedAt is the time of the last successful Set or Update.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
