// Package remote implements authority.Authority against the session
// authority's core HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmcleod/authgate/authority"
)

// DefaultConnectionURI is used when no connection URI is configured. It is
// the authority core's default listen address for local development.
const DefaultConnectionURI = "http://localhost:3567"

const (
	apiKeyHeader = "Api-Key"

	// maxResponseSize bounds how much of an authority response we will read.
	// Session and user records are small; anything larger is misbehavior.
	maxResponseSize = 1 << 20

	defaultTimeout = 10 * time.Second
)

// Config holds the connection settings for the authority core, supplied once
// at process startup.
type Config struct {
	// ConnectionURI is the base URL of the authority core. Empty falls back
	// to DefaultConnectionURI.
	ConnectionURI string

	// APIKey, if set, is sent on every request in the Api-Key header.
	APIKey string

	// HTTPClient overrides the client used for authority calls. A nil value
	// gets a client with a 10s timeout. No retries are configured either
	// way; a failed call fails the request.
	HTTPClient *http.Client
}

// Client is an authority.Authority backed by the remote core API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ authority.Authority = (*Client)(nil)

// New creates a Client from cfg.
func New(cfg Config) *Client {
	base := cfg.ConnectionURI
	if base == "" {
		base = DefaultConnectionURI
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}
}

// Wire types for the core API. These mirror the core's JSON contract and are
// not exposed outside this package.

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	SessionHandle string         `json:"session_handle"`
	UserID        string         `json:"user_id"`
	Claims        map[string]any `json:"claims"`
}

type revokeRequest struct {
	Token string `json:"token"`
}

type accountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	TimeJoined time.Time `json:"time_joined"`
}

type signInResponse struct {
	User          userPayload `json:"user"`
	Token         string      `json:"token"`
	SessionHandle string      `json:"session_handle"`
}

type passwordlessCodeRequest struct {
	Email string `json:"email"`
}

type passwordlessCodeResponse struct {
	DeviceID         string `json:"device_id"`
	PreAuthSessionID string `json:"pre_auth_session_id"`
}

type passwordlessConsumeRequest struct {
	DeviceID         string `json:"device_id"`
	PreAuthSessionID string `json:"pre_auth_session_id"`
	Code             string `json:"code"`
}

type sessionDataRequest struct {
	Token string         `json:"token"`
	Data  map[string]any `json:"data"`
}

type providersResponse struct {
	Providers []string `json:"providers"`
}

type authorizationURLResponse struct {
	URL string `json:"url"`
}

type usersResponse struct {
	Users []userPayload `json:"users"`
}

// ValidateSession implements authority.Authority.
func (c *Client) ValidateSession(ctx context.Context, credential string) (*authority.SessionRecord, error) {
	var out verifyResponse
	err := c.do(ctx, http.MethodPost, "/sessions/verify", verifyRequest{Token: credential}, &out, map[int]error{
		http.StatusUnauthorized: authority.ErrUnauthorized,
	})
	if err != nil {
		return nil, err
	}
	return &authority.SessionRecord{
		SessionHandle: out.SessionHandle,
		UserID:        out.UserID,
		Claims:        out.Claims,
	}, nil
}

// RevokeSession implements authority.Authority. The core treats revocation
// of an unknown token as a no-op, so the only failures here are
// infrastructure ones.
func (c *Client) RevokeSession(ctx context.Context, credential string) error {
	return c.do(ctx, http.MethodPost, "/sessions/revoke", revokeRequest{Token: credential}, nil, nil)
}

// UpdateSessionData implements authority.Authority.
func (c *Client) UpdateSessionData(ctx context.Context, credential string, data map[string]any) error {
	return c.do(ctx, http.MethodPost, "/sessions/data", sessionDataRequest{Token: credential, Data: data}, nil, map[int]error{
		http.StatusUnauthorized: authority.ErrUnauthorized,
	})
}

// CreateAccount implements authority.Authority.
func (c *Client) CreateAccount(ctx context.Context, email, secret string) (*authority.UserRecord, error) {
	var out userPayload
	err := c.do(ctx, http.MethodPost, "/users", accountRequest{Email: email, Password: secret}, &out, map[int]error{
		http.StatusConflict: authority.ErrEmailAlreadyExists,
	})
	if err != nil {
		return nil, err
	}
	return &authority.UserRecord{ID: out.ID, Email: out.Email, TimeJoined: out.TimeJoined}, nil
}

// Authenticate implements authority.Authority.
func (c *Client) Authenticate(ctx context.Context, email, secret string) (*authority.SignInResult, error) {
	var out signInResponse
	err := c.do(ctx, http.MethodPost, "/users/authenticate", accountRequest{Email: email, Password: secret}, &out, map[int]error{
		http.StatusUnauthorized: authority.ErrWrongCredentials,
	})
	if err != nil {
		return nil, err
	}
	return signInResult(out), nil
}

// CreatePasswordlessCode implements authority.Authority.
func (c *Client) CreatePasswordlessCode(ctx context.Context, email string) (*authority.PasswordlessCode, error) {
	var out passwordlessCodeResponse
	err := c.do(ctx, http.MethodPost, "/passwordless/code", passwordlessCodeRequest{Email: email}, &out, nil)
	if err != nil {
		return nil, err
	}
	return &authority.PasswordlessCode{
		DeviceID:         out.DeviceID,
		PreAuthSessionID: out.PreAuthSessionID,
	}, nil
}

// ConsumePasswordlessCode implements authority.Authority.
func (c *Client) ConsumePasswordlessCode(ctx context.Context, deviceID, preAuthSessionID, code string) (*authority.SignInResult, error) {
	var out signInResponse
	err := c.do(ctx, http.MethodPost, "/passwordless/consume", passwordlessConsumeRequest{
		DeviceID:         deviceID,
		PreAuthSessionID: preAuthSessionID,
		Code:             code,
	}, &out, map[int]error{
		http.StatusUnauthorized: authority.ErrInvalidCode,
	})
	if err != nil {
		return nil, err
	}
	return signInResult(out), nil
}

// Providers implements authority.Authority.
func (c *Client) Providers(ctx context.Context) ([]string, error) {
	var out providersResponse
	if err := c.do(ctx, http.MethodGet, "/providers", nil, &out, nil); err != nil {
		return nil, err
	}
	return out.Providers, nil
}

// ProviderAuthorizationURL implements authority.Authority.
func (c *Client) ProviderAuthorizationURL(ctx context.Context, provider, redirectURI string) (string, error) {
	path := "/providers/" + url.PathEscape(provider) + "/authorize"
	if redirectURI != "" {
		path += "?" + url.Values{"redirect_uri": {redirectURI}}.Encode()
	}
	var out authorizationURLResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out, map[int]error{
		http.StatusNotFound: authority.ErrUnknownProvider,
	})
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// ListUsers implements authority.Authority.
func (c *Client) ListUsers(ctx context.Context) ([]authority.UserRecord, error) {
	var out usersResponse
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out, nil); err != nil {
		return nil, err
	}
	users := make([]authority.UserRecord, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, authority.UserRecord{ID: u.ID, Email: u.Email, TimeJoined: u.TimeJoined})
	}
	return users, nil
}

// GetUser implements authority.Authority.
func (c *Client) GetUser(ctx context.Context, userID string) (*authority.UserRecord, error) {
	var out userPayload
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &out, map[int]error{
		http.StatusNotFound: authority.ErrUserNotFound,
	})
	if err != nil {
		return nil, err
	}
	return &authority.UserRecord{ID: out.ID, Email: out.Email, TimeJoined: out.TimeJoined}, nil
}

// DeleteUser implements authority.Authority.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil, map[int]error{
		http.StatusNotFound: authority.ErrUserNotFound,
	})
}

func signInResult(out signInResponse) *authority.SignInResult {
	return &authority.SignInResult{
		User: authority.UserRecord{
			ID:         out.User.ID,
			Email:      out.User.Email,
			TimeJoined: out.User.TimeJoined,
		},
		Credential:    out.Token,
		SessionHandle: out.SessionHandle,
	}
}

// do sends a request to the core and decodes a JSON response into out (which
// may be nil when the body is irrelevant). A nil in sends no body. statusErrs
// maps specific non-2xx statuses to sentinel errors; any other non-2xx status
// becomes a generic infrastructure error that never carries response body
// text, since core error bodies are not meant for clients of this service.
func (c *Client) do(ctx context.Context, method, path string, in, out any, statusErrs map[int]error) error {
	var reqBody io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("authority: encoding %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("authority: building %s request: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("authority: calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if sentinel, ok := statusErrs[resp.StatusCode]; ok {
		return sentinel
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("authority: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("authority: decoding %s response: %w", path, err)
	}
	return nil
}
