package authcore

import (
	"context"
	"time"
)

const (
	auditEventLogin               = "login"
	auditEventLoginLocked         = "login_locked"
	auditEventLogout              = "logout"
	auditEventRefresh             = "refresh"
	auditEventRegister            = "register"
	auditEventPasswordChange      = "password_change"
	auditEventPasswordResetReq    = "password_reset_request"
	auditEventPasswordReset       = "password_reset"
	auditEventVerificationRequest = "email_verification_request"
	auditEventVerification        = "email_verification"
	auditEventSessionDestroyed    = "session_destroyed"
	auditEventMailDispatchFailed  = "mail_dispatch_failed"
)

// emitAudit hands one event to the async dispatcher. metadataBuilder runs
// only when auditing is enabled so hot paths never build maps for nothing.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
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

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = KindOf(err)
	}

	e.audit.Emit(ctx, event)
}
