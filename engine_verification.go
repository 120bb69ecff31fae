package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donorhub/authcore/internal"
	"github.com/donorhub/authcore/internal/stores"
)

// RequestEmailVerification re-issues a verification code for an unverified
// account, replacing any pending one. An already-verified account is a
// no-op validation error; an unknown email succeeds silently so the
// endpoint cannot be used to probe for accounts.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if user.IsEmailVerified {
		return fmt.Errorf("%w: email already verified", ErrValidation)
	}

	if err := e.issueVerificationTicket(ctx, user); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventVerificationRequest, true, user.ID, "", nil, nil)
	return nil
}

// VerifyEmail consumes a verification code. On match the account becomes
// active and verified in one update. A wrong code leaves the ticket in
// place; a missing or expired ticket surfaces the same error so callers
// cannot tell the cases apart.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || code == "" {
		e.metricInc(MetricVerificationFailure)
		return ErrInvalidOrExpiredToken
	}

	record, err := e.verifyTickets.Consume(ctx, email, internal.HashSecret(code))
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrTicketNotFound), errors.Is(err, stores.ErrTicketMismatch):
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerification, false, "", "", ErrInvalidOrExpiredToken, func() map[string]string {
				return map[string]string{"email": email}
			})
			return ErrInvalidOrExpiredToken
		default:
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	now := time.Now()
	active := true
	verified := true
	if _, err := e.directory.Update(ctx, record.UserID, UserPatch{
		IsActive:        &active,
		IsEmailVerified: &verified,
		EmailVerifiedAt: &now,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerification, true, record.UserID, "", nil, nil)
	return nil
}
