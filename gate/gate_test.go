package gate_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/authgate/authority"
	"github.com/jmcleod/authgate/gate"
)

// stubAuthority returns canned answers for ValidateSession and records
// revocations. Only the session-facing calls are exercised by the gate.
type stubAuthority struct {
	record  *authority.SessionRecord
	err     error
	revoked []string
	calls   int
}

func (s *stubAuthority) ValidateSession(_ context.Context, credential string) (*authority.SessionRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubAuthority) RevokeSession(_ context.Context, credential string) error {
	s.revoked = append(s.revoked, credential)
	return nil
}

func (s *stubAuthority) UpdateSessionData(context.Context, string, map[string]any) error {
	panic("not used by gate")
}

func headerWith(value string) http.Header {
	h := http.Header{}
	if value != "" {
		h.Set("Authorization", value)
	}
	return h
}

func TestAuthorizeClassification(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   gate.Status
	}{
		{name: "no header", header: "", want: gate.StatusMissing},
		{name: "wrong scheme", header: "Basic dXNlcjpwdw==", want: gate.StatusMalformed},
		{name: "lowercase scheme", header: "bearer tok", want: gate.StatusMalformed},
		{name: "missing space", header: "Bearertok", want: gate.StatusMalformed},
		{name: "empty token", header: "Bearer ", want: gate.StatusMalformed},
		{name: "bare scheme", header: "Bearer", want: gate.StatusMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &stubAuthority{}
			g := gate.New(auth)

			out := g.Authorize(context.Background(), headerWith(tt.header))
			assert.Equal(t, tt.want, out.Status)
			assert.Nil(t, out.Session)
			assert.NoError(t, out.Err)
			// Local classification never reaches the authority.
			assert.Zero(t, auth.calls)
		})
	}
}

func TestAuthorizeHeaderLookupIsCaseInsensitive(t *testing.T) {
	auth := &stubAuthority{record: &authority.SessionRecord{SessionHandle: "h", UserID: "u"}}
	g := gate.New(auth)

	h := http.Header{}
	h.Set("authorization", "Bearer tok")

	out := g.Authorize(context.Background(), h)
	assert.Equal(t, gate.StatusAuthenticated, out.Status)
}

func TestAuthorizeAuthenticatedRoundTrip(t *testing.T) {
	record := &authority.SessionRecord{
		SessionHandle: "handle-42",
		UserID:        "user-42",
		Claims:        map[string]any{"plan": "pro", "limits": map[string]any{"rps": float64(10)}},
	}
	g := gate.New(&stubAuthority{record: record})

	out := g.Authorize(context.Background(), headerWith("Bearer tok-42"))
	require.Equal(t, gate.StatusAuthenticated, out.Status)
	require.NotNil(t, out.Session)

	// Values handed to the handler equal values supplied by the authority.
	assert.Equal(t, "handle-42", out.Session.SessionHandle)
	assert.Equal(t, "user-42", out.Session.UserID)
	assert.Equal(t, record.Claims, out.Session.Claims)
	assert.NoError(t, out.Err)
}

func TestAuthorizeUnauthorized(t *testing.T) {
	g := gate.New(&stubAuthority{err: authority.ErrUnauthorized})

	out := g.Authorize(context.Background(), headerWith("Bearer revoked"))
	assert.Equal(t, gate.StatusUnauthorized, out.Status)
	assert.Nil(t, out.Session)
	assert.NoError(t, out.Err)
}

func TestAuthorizeWrappedUnauthorized(t *testing.T) {
	wrapped := errors.Join(errors.New("verify call"), authority.ErrUnauthorized)
	g := gate.New(&stubAuthority{err: wrapped})

	out := g.Authorize(context.Background(), headerWith("Bearer revoked"))
	assert.Equal(t, gate.StatusUnauthorized, out.Status)
}

func TestAuthorizeInfrastructureError(t *testing.T) {
	boom := errors.New("connection refused")
	g := gate.New(&stubAuthority{err: boom})

	out := g.Authorize(context.Background(), headerWith("Bearer tok"))
	assert.Equal(t, gate.StatusError, out.Status)
	assert.Nil(t, out.Session)
	assert.ErrorIs(t, out.Err, boom)
}

func TestCredential(t *testing.T) {
	assert.Equal(t, "tok", gate.Credential(headerWith("Bearer tok")))
	assert.Empty(t, gate.Credential(headerWith("")))
	assert.Empty(t, gate.Credential(headerWith("Basic abc")))
	assert.Empty(t, gate.Credential(headerWith("bearer tok")))
}

func TestRevokeForwardsToAuthority(t *testing.T) {
	auth := &stubAuthority{}
	g := gate.New(auth)

	require.NoError(t, g.Revoke(context.Background(), "tok-1"))
	require.NoError(t, g.Revoke(context.Background(), "tok-1"))
	assert.Equal(t, []string{"tok-1", "tok-1"}, auth.revoked)
}
