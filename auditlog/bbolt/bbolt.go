// Package bbolt provides a bbolt-backed auditlog.Store. Entries survive
// restarts, so dashboard activity reflects the full history of the local
// audit database rather than the current process lifetime.
package bbolt

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/jmcleod/authgate/auditlog"
)

var bucketEntries = []byte("audit_entries")

// Store is a bbolt-backed audit trail. Keys are ordered by append time so a
// reverse cursor walk yields newest-first.
type Store struct {
	db *bolt.DB
}

var _ auditlog.Store = (*Store)(nil)

// Open opens (creating if necessary) the audit database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("auditlog: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: creating bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Append implements auditlog.Store.
func (s *Store) Append(entry auditlog.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("auditlog: encoding entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		// Key: RFC 3339 nanosecond timestamp + entry ID. Timestamps sort
		// lexicographically; the ID breaks ties within one nanosecond.
		key := entry.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z") + "/" + entry.ID
		return b.Put([]byte(key), data)
	})
}

// Recent implements auditlog.Store.
func (s *Store) Recent(userID string, limit int) ([]auditlog.Entry, error) {
	out := make([]auditlog.Entry, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var e auditlog.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if userID != "" && e.UserID != userID {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("auditlog: reading entries: %w", err)
	}
	return out, nil
}

// Close implements auditlog.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
