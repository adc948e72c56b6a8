package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsers(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "mona@example.com", "pass-phrase")
	signUp(t, srv, "nate@example.com", "pass-phrase")
	res := signIn(t, srv, "mona@example.com", "pass-phrase")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/protected/users", "Bearer "+res.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "list response: %s", body)

	var out UsersResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Users, 2)

	emails := []string{out.Users[0].Email, out.Users[1].Email}
	assert.Contains(t, emails, "mona@example.com")
	assert.Contains(t, emails, "nate@example.com")
}

func TestGetUser(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "omar@example.com", "pass-phrase")
	res := signIn(t, srv, "omar@example.com", "pass-phrase")

	t.Run("by id", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/protected/users/"+res.User.ID, "Bearer "+res.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "get response: %s", body)

		var out UserResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, res.User.ID, out.User.ID)
		assert.Equal(t, "omar@example.com", out.User.Email)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/protected/users/no-such-user", "Bearer "+res.Token, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, CodeUserNotFound, errResp.Status)
	})
}

// TestDeleteUserRevokesSessions verifies that deleting a user kills their
// live sessions, not just the account record.
func TestDeleteUserRevokesSessions(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "pria@example.com", "pass-phrase")
	signUp(t, srv, "quin@example.com", "pass-phrase")
	admin := signIn(t, srv, "pria@example.com", "pass-phrase")
	victim := signIn(t, srv, "quin@example.com", "pass-phrase")

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/protected/users/"+victim.User.ID, "Bearer "+admin.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "delete response: %s", body)

	// The deleted user's credential no longer opens gated routes.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/protected/profile", "Bearer "+victim.Token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, CodeUnauthorised, errResp.Status)

	// Deleting the same user again is a 404.
	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/api/protected/users/"+victim.User.ID, "Bearer "+admin.Token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, CodeUserNotFound, errResp.Status)
}

func TestDeleteOwnAccount(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "rosa@example.com", "pass-phrase")
	res := signIn(t, srv, "rosa@example.com", "pass-phrase")

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/protected/account", "Bearer "+res.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "delete response: %s", body)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "OK", status.Status)

	// The credential that made the delete is dead.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/protected/profile", "Bearer "+res.Token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// And the account is gone: the old password no longer signs in.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "",
		SignInRequest{Email: "rosa@example.com", Password: "pass-phrase"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, CodeWrongCredentials, errResp.Status)
}
