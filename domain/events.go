package domain

import "time"

// AuditEventKind defines the type of audit event
type AuditEventKind string

const (
	// Authentication events
	LoginSuccessEvent     AuditEventKind = "LOGIN_SUCCESS"
	LoginFailedEvent      AuditEventKind = "LOGIN_FAILED"
	LoginRateLimitedEvent AuditEventKind = "LOGIN_RATE_LIMITED"
	AccountLockedEvent    AuditEventKind = "ACCOUNT_LOCKED"
	SessionRevokedEvent   AuditEventKind = "SESSION_REVOKED"

	// Verification events
	VerificationRequestedEvent  AuditEventKind = "VERIFICATION_REQUESTED"
	VerificationSuppressedEvent AuditEventKind = "VERIFICATION_SUPPRESSED"
	VerificationRedeemedEvent   AuditEventKind = "VERIFICATION_REDEEMED"

	// Password reset events
	ResetRequestedEvent  AuditEventKind = "RESET_REQUESTED"
	ResetSuppressedEvent AuditEventKind = "RESET_SUPPRESSED"
	ResetCompletedEvent  AuditEventKind = "RESET_COMPLETED"

	// Anomaly reporting
	SecurityEvent AuditEventKind = "SECURITY_EVENT"
)

// AuditSeverity classifies audit events for downstream review
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEvent represents a security event. Immutable once recorded; Details
// is sanitized unconditionally before persistence.
type AuditEvent struct {
	ID            string
	Kind          AuditEventKind
	PrincipalID   *uint
	Origin        string
	Details       map[string]interface{}
	Severity      AuditSeverity
	PreviousState *string
	NewState      *string
	Metadata      map[string]interface{}
	OccurredAt    time.Time
}

// NewAuditEvent creates an audit event with common fields populated
func NewAuditEvent(kind AuditEventKind, severity AuditSeverity) *AuditEvent {
	return &AuditEvent{
		Kind:       kind,
		Severity:   severity,
		Details:    make(map[string]interface{}),
		Metadata:   make(map[string]interface{}),
		OccurredAt: time.Now().UTC(),
	}
}

// WithPrincipal sets the principal linkage
func (e *AuditEvent) WithPrincipal(id uint) *AuditEvent {
	e.PrincipalID = &id
	return e
}

// WithOrigin sets the originating address
func (e *AuditEvent) WithOrigin(origin string) *AuditEvent {
	e.Origin = origin
	return e
}

// WithDetail adds a detail field (sanitized at record time)
func (e *AuditEvent) WithDetail(key string, value interface{}) *AuditEvent {
	e.Details[key] = value
	return e
}

// WithStateChange records a state transition
func (e *AuditEvent) WithStateChange(previous, next string) *AuditEvent {
	e.PreviousState = &previous
	e.NewState = &next
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}

// AnomalyType classifies a detected anomaly
type AnomalyType string

const (
	AnomalyMultipleAttempts AnomalyType = "multiple_attempts"
	AnomalyHighAmount       AnomalyType = "high_amount"
)

// Anomaly is an advisory flag raised over recent audit events. It never
// blocks the operation that triggered detection.
type Anomaly struct {
	Type        AnomalyType
	PrincipalID uint
	Count       int64
	Detail      string
}
