package token

import (
	"sync"
	"time"
)

// MemStore holds the credential in process memory. This is the
// server-rendered request path: the credential lives only as long as the
// process (or test) that set it.
type MemStore struct {
	mu        sync.Mutex
	value     string
	present   bool
	expiresAt time.Time
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Set(value string, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.present = true
	s.expiresAt = time.Time{}
	if opts.MaxAge > 0 {
		s.expiresAt = time.Now().Add(opts.MaxAge)
	}
	return nil
}

func (s *MemStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return "", false
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		s.value = ""
		s.present = false
		return "", false
	}
	return s.value, true
}

func (s *MemStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ""
	s.present = false
	s.expiresAt = time.Time{}
	return nil
}
