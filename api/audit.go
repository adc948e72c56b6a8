package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jmcleod/authgate/auditlog"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditSignUp            AuditEvent = "signup_success"
	AuditSignUpConflict    AuditEvent = "signup_conflict"
	AuditSignIn            AuditEvent = "signin_success"
	AuditSignInFailure     AuditEvent = "signin_failure"
	AuditSignInRateLimited AuditEvent = "signin_rate_limited"
	AuditSignOut           AuditEvent = "signout"
	AuditSessionRejected   AuditEvent = "session_rejected"
	AuditSessionError      AuditEvent = "session_error"
	AuditAuthorityError    AuditEvent = "authority_error"
	AuditPasswordlessCode  AuditEvent = "passwordless_code_created"
	AuditSessionDataUpdate AuditEvent = "session_data_updated"
	AuditUserDeleted       AuditEvent = "user_deleted"
	AuditAccountDeleted    AuditEvent = "account_deleted"
	AuditProfileUpdated    AuditEvent = "profile_updated"
	AuditContactSubmitted  AuditEvent = "contact_submitted"
)

// auditLogger wraps slog.Logger for structured security audit logging. When
// a trail store is configured, events that carry a user ID are also appended
// there for the dashboard endpoint.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	trail   auditlog.Store
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry and feeds the metrics collector.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logEvent records an event attributed to a user, both in the structured log
// and in the audit trail.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, userID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("user_id", userID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
	al.appendTrail(r, event, userID, "")
}

// logFailure logs a failed or rejected attempt with a reason. Failures carry
// no user attribution; the reason lands in the trail entry's detail field.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
	al.appendTrail(r, event, "", reason)
}

// appendTrail persists one entry to the audit trail. An append failure is
// logged and swallowed; it must never fail the request that produced the
// event.
func (al *auditLogger) appendTrail(r *http.Request, event AuditEvent, userID, detail string) {
	if al.trail == nil {
		return
	}
	err := al.trail.Append(auditlog.Entry{
		ID:         uuid.NewString(),
		Event:      string(event),
		UserID:     userID,
		RemoteAddr: r.RemoteAddr,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		al.logger.LogAttrs(r.Context(), slog.LevelWarn, "audit trail append failed",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
	}
}
