// Package api exposes the REST surface of the service: public demo
// endpoints, authentication endpoints that pass through to the session
// authority, and protected endpoints behind the session gate.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/authgate/auditlog"
	"github.com/jmcleod/authgate/authority"
	"github.com/jmcleod/authgate/gate"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	authority authority.Authority
	gate      *gate.Gate
	audit     *auditLogger
	trail     auditlog.Store

	ipLimiter      *ipRateLimiter
	globalLimiter  *globalRateLimiter
	trustedProxies []netip.Prefix

	alertFn     AlertFunc
	serviceName string
	started     time.Time
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAuditTrail sets the store that records authentication events for the
// dashboard endpoint. Without it, dashboards report no activity.
func WithAuditTrail(store auditlog.Store) Option {
	return func(a *API) {
		a.trail = store
	}
}

// WithTrustedProxies sets the CIDR ranges whose forwarding headers are
// honored when extracting client IPs for rate limiting. Empty means proxy
// headers are never trusted.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// WithAlertFunc installs a callback for anomaly alerts (for example a
// sign-in failure spike).
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithServiceName overrides the service name reported by /health.
func WithServiceName(name string) Option {
	return func(a *API) {
		a.serviceName = name
	}
}

// New creates a new API instance backed by the given session authority.
func New(auth authority.Authority, opts ...Option) *API {
	a := &API{
		authority:     auth,
		gate:          gate.New(auth),
		ipLimiter:     newIPRateLimiter(),
		globalLimiter: newGlobalRateLimiter(),
		serviceName:   "authgate",
		started:       time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	a.audit.trail = a.trail
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}
	return a
}

// Router returns a chi.Router with all API routes mounted. The caller mounts
// it under /api.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Get("/health", a.Health)

	r.Route("/public", func(r chi.Router) {
		r.Get("/hello", a.Hello)
		r.Get("/info", a.Info)
		r.Get("/status", a.Status)
		r.Post("/contact", a.Contact)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", a.SignUp)
		r.Post("/signin", a.SignIn)
		r.Get("/signin/{provider}", a.ProviderSignIn)
		r.Post("/signout", a.SignOut)
		r.Get("/providers", a.Providers)
		r.Post("/passwordless/code", a.PasswordlessCode)
		r.Post("/passwordless/consume", a.PasswordlessConsume)
		r.With(a.RequireSession).Get("/session", a.SessionInfo)
		r.With(a.RequireSession).Get("/me", a.Me)
		r.With(a.RequireSession).Post("/update-session-data", a.UpdateSessionData)
	})

	r.Route("/protected", func(r chi.Router) {
		r.Use(a.RequireSession)
		r.Get("/profile", a.Profile)
		r.Post("/update-profile", a.UpdateProfile)
		r.Get("/dashboard", a.Dashboard)
		r.Get("/users", a.ListUsers)
		r.Get("/users/{userID}", a.GetUser)
		r.Delete("/users/{userID}", a.DeleteUser)
		r.Delete("/account", a.DeleteAccount)
	})

	return r
}
