// Package memory provides an in-process authority.Authority for tests and
// dev mode. It mimics the real authority core (bcrypt-hashed secrets, opaque
// session tokens, idempotent revocation) without leaving the process.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/authgate/authority"
)

// tokenBytes is the entropy of an issued session credential.
const tokenBytes = 32

// codeLifetime is how long a passwordless code stays redeemable.
const codeLifetime = 10 * time.Minute

type account struct {
	id         string
	email      string
	secretHash []byte // nil for accounts created through passwordless
	timeJoined time.Time
}

type pendingCode struct {
	email            string
	code             string
	preAuthSessionID string
	createdAt        time.Time
}

// Authority is an in-memory session authority. Safe for concurrent use.
type Authority struct {
	mu        sync.RWMutex
	accounts  map[string]*account                // keyed by email
	sessions  map[string]authority.SessionRecord // keyed by credential
	codes     map[string]pendingCode             // keyed by device ID
	providers []string

	// OnCode, when set, observes every issued passwordless code. Dev mode
	// prints them, tests capture them. Set before serving traffic.
	OnCode func(email, code string)
}

var _ authority.Authority = (*Authority)(nil)

// New creates an empty in-memory authority with a demo provider catalog.
func New() *Authority {
	return &Authority{
		accounts:  make(map[string]*account),
		sessions:  make(map[string]authority.SessionRecord),
		codes:     make(map[string]pendingCode),
		providers: []string{"google", "github", "apple"},
	}
}

// CreateAccount implements authority.Authority.
func (a *Authority) CreateAccount(_ context.Context, email, secret string) (*authority.UserRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("memory authority: hashing secret: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.accounts[email]; exists {
		return nil, authority.ErrEmailAlreadyExists
	}
	acct := &account{
		id:         uuid.NewString(),
		email:      email,
		secretHash: hash,
		timeJoined: time.Now().UTC(),
	}
	a.accounts[email] = acct
	return &authority.UserRecord{ID: acct.id, Email: acct.email, TimeJoined: acct.timeJoined}, nil
}

// Authenticate implements authority.Authority. A successful sign-in issues a
// fresh session; prior sessions for the same user remain valid.
func (a *Authority) Authenticate(_ context.Context, email, secret string) (*authority.SignInResult, error) {
	a.mu.RLock()
	acct, ok := a.accounts[email]
	a.mu.RUnlock()
	if !ok {
		// Burn a comparison so unknown emails cost the same as bad secrets.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return nil, authority.ErrWrongCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.secretHash, []byte(secret)); err != nil {
		return nil, authority.ErrWrongCredentials
	}

	credential, err := newToken()
	if err != nil {
		return nil, err
	}
	rec := authority.SessionRecord{
		SessionHandle: uuid.NewString(),
		UserID:        acct.id,
		Claims:        map[string]any{"email": acct.email},
	}

	a.mu.Lock()
	a.sessions[credential] = rec
	a.mu.Unlock()

	return &authority.SignInResult{
		User:          authority.UserRecord{ID: acct.id, Email: acct.email, TimeJoined: acct.timeJoined},
		Credential:    credential,
		SessionHandle: rec.SessionHandle,
	}, nil
}

// ValidateSession implements authority.Authority.
func (a *Authority) ValidateSession(_ context.Context, credential string) (*authority.SessionRecord, error) {
	a.mu.RLock()
	rec, ok := a.sessions[credential]
	a.mu.RUnlock()
	if !ok {
		return nil, authority.ErrUnauthorized
	}
	out := rec
	return &out, nil
}

// RevokeSession implements authority.Authority. Revoking an unknown
// credential is a no-op.
func (a *Authority) RevokeSession(_ context.Context, credential string) error {
	a.mu.Lock()
	delete(a.sessions, credential)
	a.mu.Unlock()
	return nil
}

// UpdateSessionData implements authority.Authority. Keys in data overwrite
// matching claim keys; other claims are preserved.
func (a *Authority) UpdateSessionData(_ context.Context, credential string, data map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.sessions[credential]
	if !ok {
		return authority.ErrUnauthorized
	}
	// Records already handed to callers share the old map, so merge into a
	// fresh one.
	claims := make(map[string]any, len(rec.Claims)+len(data))
	for k, v := range rec.Claims {
		claims[k] = v
	}
	for k, v := range data {
		claims[k] = v
	}
	rec.Claims = claims
	a.sessions[credential] = rec
	return nil
}

// CreatePasswordlessCode implements authority.Authority. The code is handed
// to OnCode in place of out-of-band delivery.
func (a *Authority) CreatePasswordlessCode(_ context.Context, email string) (*authority.PasswordlessCode, error) {
	code, err := newCode()
	if err != nil {
		return nil, err
	}
	deviceID := uuid.NewString()
	pc := pendingCode{
		email:            email,
		code:             code,
		preAuthSessionID: uuid.NewString(),
		createdAt:        time.Now(),
	}

	a.mu.Lock()
	a.codes[deviceID] = pc
	a.mu.Unlock()

	if a.OnCode != nil {
		a.OnCode(email, code)
	}
	return &authority.PasswordlessCode{DeviceID: deviceID, PreAuthSessionID: pc.preAuthSessionID}, nil
}

// ConsumePasswordlessCode implements authority.Authority. First use of an
// unknown email creates the account; such accounts have no password and can
// only sign in passwordlessly.
func (a *Authority) ConsumePasswordlessCode(_ context.Context, deviceID, preAuthSessionID, code string) (*authority.SignInResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pc, ok := a.codes[deviceID]
	if !ok || pc.preAuthSessionID != preAuthSessionID || pc.code != code {
		return nil, authority.ErrInvalidCode
	}
	if time.Since(pc.createdAt) > codeLifetime {
		delete(a.codes, deviceID)
		return nil, authority.ErrInvalidCode
	}
	delete(a.codes, deviceID)

	acct, ok := a.accounts[pc.email]
	if !ok {
		acct = &account{
			id:         uuid.NewString(),
			email:      pc.email,
			timeJoined: time.Now().UTC(),
		}
		a.accounts[pc.email] = acct
	}

	credential, err := newToken()
	if err != nil {
		return nil, err
	}
	rec := authority.SessionRecord{
		SessionHandle: uuid.NewString(),
		UserID:        acct.id,
		Claims:        map[string]any{"email": acct.email},
	}
	a.sessions[credential] = rec

	return &authority.SignInResult{
		User:          authority.UserRecord{ID: acct.id, Email: acct.email, TimeJoined: acct.timeJoined},
		Credential:    credential,
		SessionHandle: rec.SessionHandle,
	}, nil
}

// Providers implements authority.Authority.
func (a *Authority) Providers(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.providers))
	copy(out, a.providers)
	return out, nil
}

// ProviderAuthorizationURL implements authority.Authority. The URL points at
// a stand-in authorization server; real OAuth redirects are the remote
// core's business.
func (a *Authority) ProviderAuthorizationURL(_ context.Context, provider, redirectURI string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	known := false
	for _, p := range a.providers {
		if p == provider {
			known = true
			break
		}
	}
	if !known {
		return "", authority.ErrUnknownProvider
	}

	u := url.URL{Scheme: "https", Host: "auth.example.com", Path: "/" + provider + "/authorize"}
	q := url.Values{"state": {uuid.NewString()}}
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ListUsers implements authority.Authority. Ordered by join time, oldest
// first.
func (a *Authority) ListUsers(_ context.Context) ([]authority.UserRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]authority.UserRecord, 0, len(a.accounts))
	for _, acct := range a.accounts {
		out = append(out, authority.UserRecord{ID: acct.id, Email: acct.email, TimeJoined: acct.timeJoined})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TimeJoined.Equal(out[j].TimeJoined) {
			return out[i].TimeJoined.Before(out[j].TimeJoined)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// GetUser implements authority.Authority.
func (a *Authority) GetUser(_ context.Context, userID string) (*authority.UserRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, acct := range a.accounts {
		if acct.id == userID {
			return &authority.UserRecord{ID: acct.id, Email: acct.email, TimeJoined: acct.timeJoined}, nil
		}
	}
	return nil, authority.ErrUserNotFound
}

// DeleteUser implements authority.Authority. All of the user's sessions die
// with the account.
func (a *Authority) DeleteUser(_ context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var email string
	for _, acct := range a.accounts {
		if acct.id == userID {
			email = acct.email
			break
		}
	}
	if email == "" {
		return authority.ErrUserNotFound
	}
	delete(a.accounts, email)
	for credential, rec := range a.sessions {
		if rec.UserID == userID {
			delete(a.sessions, credential)
		}
	}
	return nil
}

// dummyHash is compared against when the email is unknown, keeping
// Authenticate's timing independent of account existence.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("authgate-dummy"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("memory authority: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("memory authority: generating code: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}
