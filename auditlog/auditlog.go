// Package auditlog defines the append-only trail of authentication events.
// The API layer appends an entry for every security-relevant action; the
// dashboard endpoint reads a user's recent activity back out.
package auditlog

import "time"

// Entry is one recorded authentication event.
type Entry struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	UserID     string    `json:"user_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists audit entries. Implementations must be safe for concurrent
// use. Append failures must not fail the request that produced the event;
// callers log and continue.
type Store interface {
	// Append records an entry. The store assigns nothing; ID and CreatedAt
	// are the caller's responsibility.
	Append(entry Entry) error

	// Recent returns up to limit entries for userID, newest first. An empty
	// userID returns entries for all users.
	Recent(userID string, limit int) ([]Entry, error)

	// Close releases any underlying resources.
	Close() error
}
