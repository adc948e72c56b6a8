package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/authgate/authority"
)

// Machine-readable error codes carried in the response body status field.
const (
	CodeInvalidSession     = "INVALID_SESSION"
	CodeUnauthorised       = "UNAUTHORISED"
	CodeGeneralError       = "GENERAL_ERROR"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS_ERROR"
	CodeWrongCredentials   = "WRONG_CREDENTIALS_ERROR"
	CodeInvalidCode        = "INVALID_CODE_ERROR"
	CodeUnknownProvider    = "UNKNOWN_PROVIDER_ERROR"
	CodeUserNotFound       = "USER_NOT_FOUND_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
)

// statusOK is the body status value for every successful response.
const statusOK = "OK"

// maxBodySize bounds request bodies on all JSON endpoints.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Status: code, Message: msg})
}

// mapAuthorityError translates authority sentinel errors into boundary
// responses. Infrastructure errors become a sanitized 500; the raw error
// never reaches the client.
func mapAuthorityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authority.ErrEmailAlreadyExists):
		writeError(w, http.StatusBadRequest, CodeEmailAlreadyExists, "an account with this email already exists")
	case errors.Is(err, authority.ErrWrongCredentials):
		writeError(w, http.StatusBadRequest, CodeWrongCredentials, "email or password is incorrect")
	case errors.Is(err, authority.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, CodeInvalidCode, "code is invalid, expired, or already used")
	case errors.Is(err, authority.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, CodeUnknownProvider, "unknown sign-in provider")
	case errors.Is(err, authority.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeUserNotFound, "no such user")
	case errors.Is(err, authority.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, CodeUnauthorised, "")
	default:
		writeError(w, http.StatusInternalServerError, CodeGeneralError, "authority request failed")
	}
}

// decodeJSON reads and decodes a JSON request body into T. On failure it
// writes a 400 response and returns ok=false; the caller just returns.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "request body must be valid JSON")
		return v, false
	}
	return v, true
}
