// Package memory provides an in-memory auditlog.Store for tests and for
// servers running without a persistent audit database.
package memory

import (
	"sync"

	"github.com/jmcleod/authgate/auditlog"
)

// Store keeps entries in a slice, oldest first.
type Store struct {
	mu      sync.RWMutex
	entries []auditlog.Entry
}

var _ auditlog.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Append implements auditlog.Store.
func (s *Store) Append(entry auditlog.Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

// Recent implements auditlog.Store.
func (s *Store) Recent(userID string, limit int) ([]auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]auditlog.Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if userID != "" && e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close implements auditlog.Store.
func (s *Store) Close() error { return nil }
