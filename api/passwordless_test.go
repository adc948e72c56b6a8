package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmem "github.com/jmcleod/authgate/authority/memory"
)

func TestPasswordlessSignIn(t *testing.T) {
	auth := authmem.New()
	var issuedCode string
	auth.OnCode = func(_, code string) { issuedCode = code }
	srv := newTestServerWith(t, auth)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/passwordless/code", "",
		PasswordlessCodeRequest{Email: "kara@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "code response: %s", body)

	var challenge PasswordlessCodeResponse
	require.NoError(t, json.Unmarshal(body, &challenge))
	require.NotEmpty(t, challenge.DeviceID)
	require.NotEmpty(t, challenge.PreAuthSessionID)
	require.NotEmpty(t, issuedCode)
	// The code is delivered out of band, never in the response body.
	assert.NotContains(t, string(body), issuedCode)

	t.Run("wrong code rejected", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/passwordless/consume", "",
			PasswordlessConsumeRequest{DeviceID: challenge.DeviceID, PreAuthSessionID: challenge.PreAuthSessionID, Code: "000000"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, CodeInvalidCode, errResp.Status)
	})

	var res SignInResponse
	t.Run("correct code signs in and creates the account", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/passwordless/consume", "",
			PasswordlessConsumeRequest{DeviceID: challenge.DeviceID, PreAuthSessionID: challenge.PreAuthSessionID, Code: issuedCode})
		require.Equal(t, http.StatusOK, resp.StatusCode, "consume response: %s", body)

		require.NoError(t, json.Unmarshal(body, &res))
		assert.Equal(t, "kara@example.com", res.User.Email)
		require.NotEmpty(t, res.Token)

		resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/me", "Bearer "+res.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var me MeResponse
		require.NoError(t, json.Unmarshal(body, &me))
		assert.Equal(t, "kara@example.com", me.Email)
	})

	t.Run("consumed code cannot be replayed", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/passwordless/consume", "",
			PasswordlessConsumeRequest{DeviceID: challenge.DeviceID, PreAuthSessionID: challenge.PreAuthSessionID, Code: issuedCode})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, CodeInvalidCode, errResp.Status)
	})
}

func TestPasswordlessCodeInvalidEmail(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/passwordless/code", "",
		PasswordlessCodeRequest{Email: "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, CodeInvalidInput, errResp.Status)
}

func TestPasswordlessConsumeMissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/passwordless/consume", "",
		PasswordlessConsumeRequest{DeviceID: "dev", Code: "123456"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, CodeInvalidInput, errResp.Status)
}

func TestProviders(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/auth/providers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ProvidersResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "OK", out.Status)
	assert.Contains(t, out.Providers, "google")
}

func TestProviderSignIn(t *testing.T) {
	srv := newTestServer(t)

	t.Run("known provider", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet,
			srv.URL+"/api/auth/signin/google?redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "response: %s", body)

		var out ProviderSignInResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, "google", out.Provider)
		assert.Contains(t, out.URL, "google")
		assert.Contains(t, out.URL, "redirect_uri=")
	})

	t.Run("unknown provider", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/auth/signin/myspace", "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, CodeUnknownProvider, errResp.Status)
	})
}

func TestUpdateSessionData(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "lena@example.com", "pass-phrase")
	res := signIn(t, srv, "lena@example.com", "pass-phrase")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/update-session-data", "Bearer "+res.Token,
		UpdateSessionDataRequest{Data: map[string]any{"theme": "dark"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, "update response: %s", body)

	// The merged keys show up on the next session read; existing claims stay.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/session", "Bearer "+res.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info SessionInfoResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "dark", info.UserDataInJWT["theme"])
	assert.Equal(t, "lena@example.com", info.UserDataInJWT["email"])

	t.Run("empty data rejected", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/update-session-data", "Bearer "+res.Token,
			UpdateSessionDataRequest{})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, CodeInvalidInput, errResp.Status)
	})

	t.Run("requires a session", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/update-session-data", "",
			UpdateSessionDataRequest{Data: map[string]any{"theme": "dark"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, CodeInvalidSession, errResp.Status)
	})
}
