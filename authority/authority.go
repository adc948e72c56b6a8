// Package authority defines the narrow interface to the external session
// authority: the identity backend that owns credential issuance, validation,
// and revocation. Everything behind this interface is out of scope for this
// service; the rest of the codebase treats it as a black box.
package authority

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Authority implementations. Callers classify
// failures with errors.Is; anything that doesn't match one of these is an
// infrastructure error.
var (
	// ErrUnauthorized means the credential was rejected by the authority:
	// expired, revoked, or forged.
	ErrUnauthorized = errors.New("authority: session unauthorized")

	// ErrEmailAlreadyExists means an account with the given email is already
	// registered.
	ErrEmailAlreadyExists = errors.New("authority: email already exists")

	// ErrWrongCredentials means the email/secret pair did not match an
	// existing account.
	ErrWrongCredentials = errors.New("authority: wrong credentials")

	// ErrInvalidCode means a passwordless code was wrong, expired, or already
	// consumed.
	ErrInvalidCode = errors.New("authority: invalid code")

	// ErrUserNotFound means no account matches the given user ID.
	ErrUserNotFound = errors.New("authority: user not found")

	// ErrUnknownProvider means the named third-party provider is not
	// configured on the authority.
	ErrUnknownProvider = errors.New("authority: unknown provider")
)

// SessionRecord is the result of a successful session validation. It is
// read-only from the caller's perspective; the authority owns its lifecycle.
type SessionRecord struct {
	// SessionHandle uniquely identifies one active session instance.
	SessionHandle string

	// UserID identifies the account; one user may hold many sessions.
	UserID string

	// Claims is authority-defined session data. Its structure is opaque
	// here and must be treated as an arbitrary JSON-compatible value.
	Claims map[string]any
}

// UserRecord describes an account as reported by the authority.
type UserRecord struct {
	ID         string
	Email      string
	TimeJoined time.Time
}

// SignInResult is returned by Authenticate. The authority issues a fresh
// session at sign-in; the credential is the opaque bearer token the client
// presents on subsequent requests.
type SignInResult struct {
	User          UserRecord
	Credential    string
	SessionHandle string
}

// PasswordlessCode identifies a pending one-time-code challenge. The code
// itself is delivered out of band by the authority (email or SMS); callers
// only see the identifiers needed to consume it.
type PasswordlessCode struct {
	DeviceID         string
	PreAuthSessionID string
}

// SessionAuthority is the session-facing surface: everything the gate and
// the session handlers need.
type SessionAuthority interface {
	// ValidateSession checks an opaque credential and returns the session
	// it identifies. Returns ErrUnauthorized if the authority rejects the
	// credential.
	ValidateSession(ctx context.Context, credential string) (*SessionRecord, error)

	// RevokeSession invalidates the session identified by credential.
	// Revoking an unknown or already-revoked credential is not an error.
	RevokeSession(ctx context.Context, credential string) error

	// UpdateSessionData merges data into the session's stored claims.
	// Returns ErrUnauthorized if the credential does not identify an active
	// session.
	UpdateSessionData(ctx context.Context, credential string, data map[string]any) error
}

// AccountAuthority covers account creation and the sign-in flows, password
// and otherwise.
type AccountAuthority interface {
	// CreateAccount registers a new email/secret account. Returns
	// ErrEmailAlreadyExists if the email is taken.
	CreateAccount(ctx context.Context, email, secret string) (*UserRecord, error)

	// Authenticate verifies an email/secret pair and issues a new session.
	// Returns ErrWrongCredentials on mismatch.
	Authenticate(ctx context.Context, email, secret string) (*SignInResult, error)

	// CreatePasswordlessCode starts a one-time-code sign-in for email. The
	// authority delivers the code to the user out of band.
	CreatePasswordlessCode(ctx context.Context, email string) (*PasswordlessCode, error)

	// ConsumePasswordlessCode redeems a code, creating the account on first
	// use, and issues a new session. Returns ErrInvalidCode when the code is
	// wrong, expired, or already consumed.
	ConsumePasswordlessCode(ctx context.Context, deviceID, preAuthSessionID, code string) (*SignInResult, error)

	// Providers lists the configured third-party sign-in providers.
	Providers(ctx context.Context) ([]string, error)

	// ProviderAuthorizationURL returns the URL a client is redirected to in
	// order to sign in with the named provider. Returns ErrUnknownProvider
	// for a provider that is not configured.
	ProviderAuthorizationURL(ctx context.Context, provider, redirectURI string) (string, error)
}

// UserAdminAuthority covers the user management surface.
type UserAdminAuthority interface {
	// ListUsers returns all registered accounts.
	ListUsers(ctx context.Context) ([]UserRecord, error)

	// GetUser returns the account identified by userID. Returns
	// ErrUserNotFound when no such account exists.
	GetUser(ctx context.Context, userID string) (*UserRecord, error)

	// DeleteUser removes the account and revokes all of its sessions.
	// Returns ErrUserNotFound when no such account exists.
	DeleteUser(ctx context.Context, userID string) error
}

// Authority is the full session authority consumed by this service.
//
// All calls take a context and may block on network I/O. Implementations
// must be safe for concurrent use. No call performs retries; retry policy,
// if any, belongs to the underlying client configuration.
type Authority interface {
	SessionAuthority
	AccountAuthority
	UserAdminAuthority
}
