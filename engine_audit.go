package credAuth

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/credAuth/internal/audit"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventPasswordRehash       = "password_rehash"
	auditEventSecurityAlert        = "security_alert"
	auditEventAccountCreated       = "account_created"
	auditEventAccountCreateFailure = "account_creation_failure"
	auditEventAccountDuplicate     = "account_creation_duplicate"
	auditEventRegisterRateLimited  = "account_creation_rate_limited"
	auditEventCredentialsUpdated   = "credentials_updated"
	auditEventPasswordChanged      = "password_changed"
	auditEventCredentialsRejected  = "credentials_update_rejected"
	auditEventNotificationFailed   = "notification_failed"
	auditEventTokenRejected        = "token_rejected"
)

// AuditErrorCode is the stable error classification written into audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := internalaudit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrPersistence),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// now reads the engine clock, falling back to time.Now on a zero Engine.
func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
