package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
)

// RedactionMarker replaces denied field values in audit details
const RedactionMarker = "[REDACTED]"

// redactedFields is the deny-list of detail field names whose values are
// replaced entirely. Matching is case-insensitive.
var redactedFields = map[string]bool{
	"password":      true,
	"password_hash": true,
	"new_password":  true,
	"token":         true,
	"token_hash":    true,
	"secret":        true,
	"api_key":       true,
	"cvv":           true,
	"cvc":           true,
}

// maskedFields hold card-like numbers, masked to their last four characters
var maskedFields = map[string]bool{
	"card_number": true,
	"card":        true,
	"pan":         true,
}

// AuditServiceImpl implements domain.AuditTrail. Every entry passes the
// sanitizer before persistence; persistence failures are logged and never
// abort the operation being described.
type AuditServiceImpl struct {
	repo   domain.AuditRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit trail service
func NewAuditService(repo domain.AuditRepository, logger *zap.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record implements domain.AuditTrail
func (s *AuditServiceImpl) Record(ctx context.Context, event *domain.AuditEvent) (string, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	event.Details = SanitizeDetails(event.Details)

	if err := s.repo.InsertEvent(ctx, event); err != nil {
		s.logger.Error("failed to record audit event",
			zap.String("kind", string(event.Kind)), zap.Error(err))
		return "", err
	}
	return event.ID, nil
}

// RecordLoginAttempt implements domain.AuditTrail
func (s *AuditServiceImpl) RecordLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	if attempt.OccurredAt.IsZero() {
		attempt.OccurredAt = s.now().UTC()
	}
	if err := s.repo.InsertLoginAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			zap.String("outcome", string(attempt.Outcome)), zap.Error(err))
		return err
	}
	return nil
}

// DetectAnomalies implements domain.AuditTrail. Advisory only: detected
// anomalies are themselves recorded but the triggering operation proceeds.
func (s *AuditServiceImpl) DetectAnomalies(ctx context.Context, principalID uint, check domain.AnomalyCheck) ([]domain.Anomaly, error) {
	since := s.now().UTC().Add(-check.Window)
	count, err := s.repo.CountEventsSince(ctx, principalID, check.Kind, since)
	if err != nil {
		return nil, err
	}

	var anomalies []domain.Anomaly
	if check.MaxAttempts > 0 && count >= check.MaxAttempts {
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyMultipleAttempts,
			PrincipalID: principalID,
			Count:       count,
			Detail:      fmt.Sprintf("%d %s events within %s", count, check.Kind, check.Window),
		})
	}
	if check.MaxAmount > 0 && check.Amount > check.MaxAmount {
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyHighAmount,
			PrincipalID: principalID,
			Detail:      fmt.Sprintf("amount %.2f exceeds ceiling %.2f", check.Amount, check.MaxAmount),
		})
	}

	for _, anomaly := range anomalies {
		event := domain.NewAuditEvent(domain.SecurityEvent, domain.SeverityWarning).
			WithPrincipal(principalID).
			WithDetail("anomaly_type", string(anomaly.Type)).
			WithDetail("detail", anomaly.Detail)
		if _, err := s.Record(ctx, event); err != nil {
			s.logger.Error("failed to record anomaly", zap.Error(err))
		}
	}

	return anomalies, nil
}

// SanitizeDetails applies the deny-list transform to a details payload.
// Nested maps and slices are sanitized recursively.
func SanitizeDetails(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	clean := make(map[string]interface{}, len(details))
	for key, value := range details {
		clean[key] = sanitizeField(key, value)
	}
	return clean
}

func sanitizeField(key string, value interface{}) interface{} {
	lower := strings.ToLower(key)
	if redactedFields[lower] {
		return RedactionMarker
	}
	if maskedFields[lower] {
		if s, ok := value.(string); ok {
			return maskCardNumber(s)
		}
		return RedactionMarker
	}

	switch v := value.(type) {
	case map[string]interface{}:
		return SanitizeDetails(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = sanitizeField("", item)
		}
		return out
	default:
		return value
	}
}

// maskCardNumber keeps only the last four characters of a card-like value
func maskCardNumber(s string) string {
	if len(s) <= 4 {
		return RedactionMarker
	}
	return "****" + s[len(s)-4:]
}
