package api

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/authgate/authority"
	"github.com/jmcleod/authgate/gate"
	"github.com/jmcleod/authgate/internal/util"
)

// emailPattern matches the loose shape "local@domain.tld". The authority
// applies its own validation; this only rejects obvious garbage early.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignUp handles POST /auth/signup. Pure pass-through to the authority's
// createAccount call.
func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SignUpRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	email := util.NormalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "a valid email is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "password is required")
		return
	}

	user, err := a.authority.CreateAccount(r.Context(), email, util.NormalizeSecret(req.Password))
	if err != nil {
		if errors.Is(err, authority.ErrEmailAlreadyExists) {
			a.audit.logFailure(AuditSignUpConflict, r, "email already registered")
		} else {
			a.audit.logFailure(AuditAuthorityError, r, "create account failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}

	a.audit.logEvent(AuditSignUp, r, user.ID)
	writeJSON(w, http.StatusOK, SignUpResponse{
		Status: statusOK,
		User:   userPayloadFrom(*user),
	})
}

// SignIn handles POST /auth/signin. The authority issues the session; the
// token in the response is the bearer credential for subsequent requests.
func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	clientIP := a.extractClientIP(r)
	if blocked, retryAfter := a.globalLimiter.check(); blocked {
		a.audit.logFailure(AuditSignInRateLimited, r, "global rate limited")
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter := a.ipLimiter.check(clientIP); blocked {
		a.audit.logFailure(AuditSignInRateLimited, r, "ip rate limited",
			slog.String("client_ip", clientIP))
		writeRateLimited(w, retryAfter)
		return
	}

	req, ok := decodeJSON[SignInRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	email := util.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "email and password are required")
		return
	}

	res, err := a.authority.Authenticate(r.Context(), email, util.NormalizeSecret(req.Password))
	if err != nil {
		// Only genuine credential mismatches count toward the limiters. An
		// authority outage must not lock legitimate clients out.
		if errors.Is(err, authority.ErrWrongCredentials) {
			a.globalLimiter.recordFailure()
			a.ipLimiter.recordFailure(clientIP)
			a.audit.logFailure(AuditSignInFailure, r, "wrong credentials",
				slog.String("client_ip", clientIP))
		} else {
			a.audit.logFailure(AuditAuthorityError, r, "authenticate failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}

	a.ipLimiter.recordSuccess(clientIP)
	a.audit.logEvent(AuditSignIn, r, res.User.ID)
	writeJSON(w, http.StatusOK, SignInResponse{
		Status:        statusOK,
		User:          userPayloadFrom(res.User),
		Token:         res.Credential,
		SessionHandle: res.SessionHandle,
	})
}

// SignOut handles POST /auth/signout. The bearer credential is optional and
// revocation is idempotent: a missing, malformed, or already-revoked
// credential still yields OK. Only an authority infrastructure failure is an
// error.
func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	credential := gate.Credential(r.Header)
	if credential != "" {
		if err := a.gate.Revoke(r.Context(), credential); err != nil {
			a.audit.logFailure(AuditSessionError, r, "revoke failed",
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, CodeGeneralError, "sign out failed")
			return
		}
	}
	a.audit.log(AuditSignOut, r)
	writeJSON(w, http.StatusOK, StatusResponse{Status: statusOK})
}

// SessionInfo handles GET /auth/session. Claims pass through untouched; the
// gate and this handler treat them as opaque.
func (a *API) SessionInfo(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, SessionInfoResponse{
		Status:        statusOK,
		SessionHandle: session.SessionHandle,
		UserID:        session.UserID,
		UserDataInJWT: session.Claims,
	})
}

// Me handles GET /auth/me, a demo view of the signed-in user derived from
// session claims.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	email, _ := session.Claims["email"].(string)
	writeJSON(w, http.StatusOK, MeResponse{
		Status: statusOK,
		UserID: session.UserID,
		Email:  email,
	})
}

// PasswordlessCode handles POST /auth/passwordless/code. The authority
// delivers the one-time code out of band; the response only carries the
// identifiers needed to consume it.
func (a *API) PasswordlessCode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[PasswordlessCodeRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	email := util.NormalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "a valid email is required")
		return
	}

	code, err := a.authority.CreatePasswordlessCode(r.Context(), email)
	if err != nil {
		a.audit.logFailure(AuditAuthorityError, r, "create passwordless code failed",
			slog.String("error", err.Error()))
		mapAuthorityError(w, err)
		return
	}

	a.audit.log(AuditPasswordlessCode, r)
	writeJSON(w, http.StatusOK, PasswordlessCodeResponse{
		Status:           statusOK,
		DeviceID:         code.DeviceID,
		PreAuthSessionID: code.PreAuthSessionID,
	})
}

// PasswordlessConsume handles POST /auth/passwordless/consume. Redeeming a
// code signs the user in, creating the account on first use. Guessed codes
// count toward the same limiters as failed password sign-ins.
func (a *API) PasswordlessConsume(w http.ResponseWriter, r *http.Request) {
	clientIP := a.extractClientIP(r)
	if blocked, retryAfter := a.globalLimiter.check(); blocked {
		a.audit.logFailure(AuditSignInRateLimited, r, "global rate limited")
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter := a.ipLimiter.check(clientIP); blocked {
		a.audit.logFailure(AuditSignInRateLimited, r, "ip rate limited",
			slog.String("client_ip", clientIP))
		writeRateLimited(w, retryAfter)
		return
	}

	req, ok := decodeJSON[PasswordlessConsumeRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if req.DeviceID == "" || req.PreAuthSessionID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "deviceId, preAuthSessionId, and code are required")
		return
	}

	res, err := a.authority.ConsumePasswordlessCode(r.Context(), req.DeviceID, req.PreAuthSessionID, req.Code)
	if err != nil {
		if errors.Is(err, authority.ErrInvalidCode) {
			a.globalLimiter.recordFailure()
			a.ipLimiter.recordFailure(clientIP)
			a.audit.logFailure(AuditSignInFailure, r, "invalid passwordless code",
				slog.String("client_ip", clientIP))
		} else {
			a.audit.logFailure(AuditAuthorityError, r, "consume passwordless code failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}

	a.ipLimiter.recordSuccess(clientIP)
	a.audit.logEvent(AuditSignIn, r, res.User.ID)
	writeJSON(w, http.StatusOK, SignInResponse{
		Status:        statusOK,
		User:          userPayloadFrom(res.User),
		Token:         res.Credential,
		SessionHandle: res.SessionHandle,
	})
}

// Providers handles GET /auth/providers.
func (a *API) Providers(w http.ResponseWriter, r *http.Request) {
	providers, err := a.authority.Providers(r.Context())
	if err != nil {
		a.audit.logFailure(AuditAuthorityError, r, "list providers failed",
			slog.String("error", err.Error()))
		mapAuthorityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProvidersResponse{Status: statusOK, Providers: providers})
}

// ProviderSignIn handles GET /auth/signin/{provider}: it hands back the
// authorization URL the client redirects the user to. The optional
// redirect_uri query parameter is passed through to the authority.
func (a *API) ProviderSignIn(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	redirectURI := r.URL.Query().Get("redirect_uri")

	u, err := a.authority.ProviderAuthorizationURL(r.Context(), provider, redirectURI)
	if err != nil {
		if !errors.Is(err, authority.ErrUnknownProvider) {
			a.audit.logFailure(AuditAuthorityError, r, "provider authorization url failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProviderSignInResponse{
		Status:   statusOK,
		Provider: provider,
		URL:      u,
	})
}

// UpdateSessionData handles POST /auth/update-session-data (gated). The new
// keys merge into the session's claims and show up on the next
// GET /auth/session.
func (a *API) UpdateSessionData(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	req, ok := decodeJSON[UpdateSessionDataRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "data is required")
		return
	}

	credential := gate.Credential(r.Header)
	if err := a.authority.UpdateSessionData(r.Context(), credential, req.Data); err != nil {
		if !errors.Is(err, authority.ErrUnauthorized) {
			a.audit.logFailure(AuditAuthorityError, r, "update session data failed",
				slog.String("error", err.Error()))
		}
		mapAuthorityError(w, err)
		return
	}

	a.audit.logEvent(AuditSessionDataUpdate, r, session.UserID)
	writeJSON(w, http.StatusOK, StatusResponse{Status: statusOK})
}
