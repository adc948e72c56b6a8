package api

import (
	"time"

	"github.com/jmcleod/authgate/authority"
)

// Response bodies are explicit structs rather than ad-hoc maps so field
// drift shows up in serialization tests instead of in clients.

// StatusResponse is the minimal success body.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for all error cases. Status carries the
// machine-readable code; Message, when present, is safe for clients.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// UserPayload describes an account in auth responses.
type UserPayload struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	TimeJoined string `json:"timeJoined"`
}

func userPayloadFrom(u authority.UserRecord) UserPayload {
	return UserPayload{
		ID:         u.ID,
		Email:      u.Email,
		TimeJoined: u.TimeJoined.UTC().Format(time.RFC3339),
	}
}

// SignUpRequest is the JSON body for POST /auth/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpResponse is returned from POST /auth/signup.
type SignUpResponse struct {
	Status string      `json:"status"`
	User   UserPayload `json:"user"`
}

// SignInRequest is the JSON body for POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse is returned from POST /auth/signin. Token is the bearer
// credential for subsequent requests.
type SignInResponse struct {
	Status        string      `json:"status"`
	User          UserPayload `json:"user"`
	Token         string      `json:"token"`
	SessionHandle string      `json:"sessionHandle"`
}

// SessionInfoResponse is returned from GET /auth/session. UserDataInJWT is
// authority-defined claim data, passed through untouched.
type SessionInfoResponse struct {
	Status        string         `json:"status"`
	SessionHandle string         `json:"sessionHandle"`
	UserID        string         `json:"userId"`
	UserDataInJWT map[string]any `json:"userDataInJWT"`
}

// PasswordlessCodeRequest is the JSON body for POST /auth/passwordless/code.
type PasswordlessCodeRequest struct {
	Email string `json:"email"`
}

// PasswordlessCodeResponse is returned from POST /auth/passwordless/code.
// The code itself is delivered out of band.
type PasswordlessCodeResponse struct {
	Status           string `json:"status"`
	DeviceID         string `json:"deviceId"`
	PreAuthSessionID string `json:"preAuthSessionId"`
}

// PasswordlessConsumeRequest is the JSON body for
// POST /auth/passwordless/consume.
type PasswordlessConsumeRequest struct {
	DeviceID         string `json:"deviceId"`
	PreAuthSessionID string `json:"preAuthSessionId"`
	Code             string `json:"code"`
}

// ProvidersResponse is returned from GET /auth/providers.
type ProvidersResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
}

// ProviderSignInResponse is returned from GET /auth/signin/{provider}. URL
// is where the client redirects the user to continue the provider flow.
type ProviderSignInResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// UpdateSessionDataRequest is the JSON body for
// POST /auth/update-session-data.
type UpdateSessionDataRequest struct {
	Data map[string]any `json:"data"`
}

// UsersResponse is returned from GET /protected/users.
type UsersResponse struct {
	Status string        `json:"status"`
	Users  []UserPayload `json:"users"`
}

// UserResponse is returned from GET /protected/users/{userID}.
type UserResponse struct {
	Status string      `json:"status"`
	User   UserPayload `json:"user"`
}

// MeResponse is returned from GET /auth/me.
type MeResponse struct {
	Status string `json:"status"`
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// HelloResponse is returned from GET /public/hello.
type HelloResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// InfoResponse is returned from GET /public/info.
type InfoResponse struct {
	AppName     string            `json:"appName"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
	Timestamp   string            `json:"timestamp"`
}

// UptimeResponse is returned from GET /public/status.
type UptimeResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Timestamp     string  `json:"timestamp"`
}

// ContactRequest is the JSON body for POST /public/contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ContactResponse is returned from POST /public/contact.
type ContactResponse struct {
	Message     string `json:"message"`
	ID          string `json:"id"`
	SubmittedAt string `json:"submittedAt"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// ProfileResponse is returned from GET /protected/profile.
type ProfileResponse struct {
	Message       string `json:"message"`
	UserID        string `json:"userId"`
	SessionHandle string `json:"sessionHandle"`
	Timestamp     string `json:"timestamp"`
}

// UpdateProfileRequest is the JSON body for POST /protected/update-profile.
type UpdateProfileRequest struct {
	Name        string         `json:"name"`
	Bio         string         `json:"bio"`
	Preferences map[string]any `json:"preferences"`
}

// UpdatedProfile echoes the accepted profile fields.
type UpdatedProfile struct {
	Name        string         `json:"name"`
	Bio         string         `json:"bio"`
	Preferences map[string]any `json:"preferences,omitempty"`
	UpdatedAt   string         `json:"updatedAt"`
}

// UpdateProfileResponse is returned from POST /protected/update-profile.
type UpdateProfileResponse struct {
	Message     string         `json:"message"`
	UserID      string         `json:"userId"`
	UpdatedData UpdatedProfile `json:"updatedData"`
	Timestamp   string         `json:"timestamp"`
}

// DashboardStats summarizes a user's recorded activity.
type DashboardStats struct {
	TotalSignIns int    `json:"totalSignIns"`
	LastSignIn   string `json:"lastSignIn,omitempty"`
}

// ActivityEntry is one row of recent activity on the dashboard.
type ActivityEntry struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// DashboardResponse is returned from GET /protected/dashboard.
type DashboardResponse struct {
	Message        string          `json:"message"`
	UserID         string          `json:"userId"`
	Stats          DashboardStats  `json:"stats"`
	RecentActivity []ActivityEntry `json:"recentActivity"`
	Timestamp      string          `json:"timestamp"`
}
