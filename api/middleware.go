package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jmcleod/authgate/authority"
	"github.com/jmcleod/authgate/gate"
)

type contextKey int

const sessionKey contextKey = iota

// RequireSession gates a route on a valid bearer session. The gate's outcome
// maps onto the boundary as:
//
//	authenticated       -> handler proceeds, session on the request context
//	missing / malformed -> 400 INVALID_SESSION
//	unauthorized        -> 401 UNAUTHORISED
//	error               -> 500 GENERAL_ERROR, sanitized message
//
// Every request revalidates against the authority; nothing is cached, so a
// revoked session is rejected immediately.
func (a *API) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := a.gate.Authorize(r.Context(), r.Header)
		switch out.Status {
		case gate.StatusAuthenticated:
			ctx := context.WithValue(r.Context(), sessionKey, out.Session)
			next.ServeHTTP(w, r.WithContext(ctx))

		case gate.StatusMissing, gate.StatusMalformed:
			a.audit.logFailure(AuditSessionRejected, r, out.Status.String())
			writeError(w, http.StatusBadRequest, CodeInvalidSession, "")

		case gate.StatusUnauthorized:
			a.audit.logFailure(AuditSessionRejected, r, out.Status.String())
			writeError(w, http.StatusUnauthorized, CodeUnauthorised, "")

		default:
			// Full detail stays in the logs; the client gets a generic line.
			a.audit.logFailure(AuditSessionError, r, "authority call failed",
				slog.String("error", out.Err.Error()))
			writeError(w, http.StatusInternalServerError, CodeGeneralError, "session validation failed")
		}
	})
}

// sessionFromContext returns the session stored by RequireSession. Handlers
// behind the gate may assume it is non-nil.
func sessionFromContext(ctx context.Context) *authority.SessionRecord {
	session, _ := ctx.Value(sessionKey).(*authority.SessionRecord)
	return session
}
