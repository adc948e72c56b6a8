package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/authgate/authority"
	"github.com/jmcleod/authgate/gate"
)

// User management endpoints. All pass through to the authority, which owns
// the account records; this service only translates and audits.

// ListUsers handles GET /protected/users.
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.authority.ListUsers(r.Context())
	if err != nil {
		a.audit.logFailure(AuditAuthorityError, r, "list users failed",
			slog.String("error", err.Error()))
		mapAuthorityError(w, err)
		return
	}

	payloads := make([]UserPayload, 0, len(users))
	for _, u := range users {
		payloads = append(payloads, userPayloadFrom(u))
	}
	writeJSON(w, http.StatusOK, UsersResponse{Status: statusOK, Users: payloads})
}

// GetUser handles GET /protected/users/{userID}.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := a.authority.GetUser(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, authority.ErrUserNotFound) {
			a.audit.logFailure(AuditAuthorityError, r, "get user failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Status: statusOK, User: userPayloadFrom(*user)})
}

// DeleteUser handles DELETE /protected/users/{userID}. The authority revokes
// the deleted user's sessions along with the account.
func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	if err := a.authority.DeleteUser(r.Context(), userID); err != nil {
		if !errors.Is(err, authority.ErrUserNotFound) {
			a.audit.logFailure(AuditAuthorityError, r, "delete user failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}

	a.audit.logEvent(AuditUserDeleted, r, session.UserID,
		slog.String("deleted_user_id", userID))
	writeJSON(w, http.StatusOK, StatusResponse{Status: statusOK})
}

// DeleteAccount handles DELETE /protected/account: the signed-in user
// deletes their own account. Session revocation happens authority-side; the
// credential used for this request is dead once the call returns.
func (a *API) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	if err := a.authority.DeleteUser(r.Context(), session.UserID); err != nil {
		a.audit.logFailure(AuditAuthorityError, r, "delete account failed",
			slog.String("error", err.Error()))
		mapAuthorityError(w, err)
		return
	}

	// The authority may have already revoked this credential as part of the
	// delete; revocation is idempotent either way.
	if credential := gate.Credential(r.Header); credential != "" {
		_ = a.gate.Revoke(r.Context(), credential)
	}

	a.audit.logEvent(AuditAccountDeleted, r, session.UserID)
	writeJSON(w, http.StatusOK, StatusResponse{Status: statusOK})
}
