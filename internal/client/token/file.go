package token

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"
)

// fileRecord is the on-disk shape. The cookie-style attributes are kept so
// a later Set without options does not silently widen the scope recorded
// by an earlier one.
type fileRecord struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Path      string    `json:"path,omitempty"`
	Secure    bool      `json:"secure,omitempty"`
}

// FileStore persists the credential in a single 0600 file. This is the
// browser-readable-cookie analogue: the credential survives restarts and is
// shared by every process pointed at the same file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Set(value string, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := fileRecord{Token: value, Path: opts.Path, Secure: opts.Secure}
	if opts.MaxAge > 0 {
		rec.ExpiresAt = time.Now().Add(opts.MaxAge)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Token == "" {
		return "", false
	}

	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		// Lazy removal keeps Get read-only in the common case.
		_ = os.Remove(s.path)
		return "", false
	}
	return rec.Token, true
}

func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
