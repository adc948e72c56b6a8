package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    statusOK,
		Service:   a.serviceName,
		Timestamp: nowRFC3339(),
	})
}

// Hello handles GET /public/hello.
func (a *API) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HelloResponse{
		Message:   "Hello from " + a.serviceName + "! This endpoint requires no authentication.",
		Timestamp: nowRFC3339(),
	})
}

// Info handles GET /public/info.
func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		AppName:     a.serviceName,
		Description: "Demo backend that delegates sessions to an external authority",
		Endpoints: map[string]string{
			"auth":      "/api/auth",
			"public":    "/api/public",
			"protected": "/api/protected",
			"health":    "/api/health",
			"docs":      "/api/docs",
		},
		Timestamp: nowRFC3339(),
	})
}

// Status handles GET /public/status.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UptimeResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(a.started).Seconds(),
		Timestamp:     nowRFC3339(),
	})
}

// Contact handles POST /public/contact. The submission is validated and
// acknowledged; a real deployment would queue it somewhere.
func (a *API) Contact(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ContactRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "name, email, and message are required")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "a valid email is required")
		return
	}

	a.audit.log(AuditContactSubmitted, r)
	writeJSON(w, http.StatusOK, ContactResponse{
		Message:     "Contact form submitted successfully",
		ID:          uuid.NewString(),
		SubmittedAt: nowRFC3339(),
	})
}

// Profile handles GET /protected/profile.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, ProfileResponse{
		Message:       "Profile retrieved successfully",
		UserID:        session.UserID,
		SessionHandle: session.SessionHandle,
		Timestamp:     nowRFC3339(),
	})
}

// UpdateProfile handles POST /protected/update-profile. The demo has no
// profile storage; the accepted fields are echoed back.
func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	req, ok := decodeJSON[UpdateProfileRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	now := nowRFC3339()
	a.audit.logEvent(AuditProfileUpdated, r, session.UserID)
	writeJSON(w, http.StatusOK, UpdateProfileResponse{
		Message: "Profile updated successfully",
		UserID:  session.UserID,
		UpdatedData: UpdatedProfile{
			Name:        req.Name,
			Bio:         req.Bio,
			Preferences: req.Preferences,
			UpdatedAt:   now,
		},
		Timestamp: now,
	})
}

// dashboardWindow is how many trail entries are scanned for stats.
const dashboardWindow = 50

// dashboardActivityLimit is how many rows of recent activity are returned.
const dashboardActivityLimit = 10

// Dashboard handles GET /protected/dashboard. Stats and activity come from
// the audit trail; without a configured trail the dashboard is empty.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	resp := DashboardResponse{
		Message:        "Dashboard data retrieved successfully",
		UserID:         session.UserID,
		RecentActivity: []ActivityEntry{},
		Timestamp:      nowRFC3339(),
	}

	if a.trail != nil {
		entries, err := a.trail.Recent(session.UserID, dashboardWindow)
		if err != nil {
			writeError(w, http.StatusInternalServerError, CodeGeneralError, "failed to read activity")
			return
		}
		for _, e := range entries {
			if e.Event == string(AuditSignIn) {
				resp.Stats.TotalSignIns++
				if resp.Stats.LastSignIn == "" {
					resp.Stats.LastSignIn = e.CreatedAt.UTC().Format(time.RFC3339)
				}
			}
			if len(resp.RecentActivity) < dashboardActivityLimit {
				resp.RecentActivity = append(resp.RecentActivity, ActivityEntry{
					Action:    e.Event,
					Timestamp: e.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
