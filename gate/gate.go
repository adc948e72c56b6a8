// Package gate implements the session gate: the decision logic that stands
// between inbound requests and protected handlers. It extracts a bearer
// credential from request headers, validates it against the session
// authority, and classifies the result into a closed set of outcomes.
//
// The gate is stateless. It never caches a validation result; every request
// pays one authority round trip, so a revoked session is rejected on the
// very next request, at the cost of a little latency.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jmcleod/authgate/authority"
)

// bearerPrefix is the exact scheme token expected on the Authorization
// header: case-sensitive, single trailing space.
const bearerPrefix = "Bearer "

// Status classifies the result of an authorization check.
type Status int

const (
	// StatusAuthenticated means the credential identified an active session.
	StatusAuthenticated Status = iota
	// StatusMissing means no Authorization header was presented.
	StatusMissing
	// StatusMalformed means a header was presented but not in the expected
	// "Bearer <token>" form, or the token was empty.
	StatusMalformed
	// StatusUnauthorized means the authority rejected the credential:
	// expired, revoked, or forged.
	StatusUnauthorized
	// StatusError means the validation call itself failed for
	// infrastructure reasons.
	StatusError
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusMissing:
		return "missing"
	case StatusMalformed:
		return "malformed"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one authorization check. It is produced once per
// request and never persisted.
//
// Session is non-nil if and only if Status is StatusAuthenticated; Err is
// non-nil if and only if Status is StatusError.
type Outcome struct {
	Status  Status
	Session *authority.SessionRecord
	Err     error
}

// Gate validates bearer credentials against a session authority. The zero
// value is not usable; construct with New. A Gate may be shared freely
// across goroutines.
type Gate struct {
	authority authority.SessionAuthority
}

// New creates a Gate backed by the given authority. Only the session-facing
// surface is needed here.
func New(auth authority.SessionAuthority) *Gate {
	return &Gate{authority: auth}
}

// Authorize inspects headers for a bearer credential and validates it.
//
// Header lookup is case-insensitive (http.Header semantics); the scheme
// prefix check is exact. Classification failures (missing, malformed) are
// decided locally without touching the authority.
func (g *Gate) Authorize(ctx context.Context, headers http.Header) Outcome {
	raw := headers.Get("Authorization")
	if raw == "" {
		return Outcome{Status: StatusMissing}
	}
	if !strings.HasPrefix(raw, bearerPrefix) {
		return Outcome{Status: StatusMalformed}
	}
	credential := raw[len(bearerPrefix):]
	if credential == "" {
		return Outcome{Status: StatusMalformed}
	}

	session, err := g.authority.ValidateSession(ctx, credential)
	switch {
	case err == nil:
		return Outcome{Status: StatusAuthenticated, Session: session}
	case errors.Is(err, authority.ErrUnauthorized):
		return Outcome{Status: StatusUnauthorized}
	default:
		return Outcome{Status: StatusError, Err: err}
	}
}

// Credential extracts the bearer token from headers without validating it.
// Returns the empty string when the header is absent or malformed. Used by
// callers like sign-out, where a credential is optional.
func Credential(headers http.Header) string {
	raw := headers.Get("Authorization")
	if !strings.HasPrefix(raw, bearerPrefix) {
		return ""
	}
	return raw[len(bearerPrefix):]
}

// Revoke invalidates the session identified by credential. Revocation is
// idempotent: revoking an unknown or already-revoked credential succeeds.
// An error here means the authority call itself failed.
func (g *Gate) Revoke(ctx context.Context, credential string) error {
	return g.authority.RevokeSession(ctx, credential)
}
