package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donorhub/authcore/internal"
	"github.com/donorhub/authcore/internal/stores"
)

// ChangePassword verifies the current password and replaces the hash. Every
// refresh record of the user is revoked so stolen refresh tokens die with
// the old password; live access tokens ride out their short TTL.
func (e *Engine) ChangePassword(ctx context.Context, userID, current, newPass, confirm string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	if newPass != confirm {
		e.metricInc(MetricPasswordChangeFailure)
		return ErrPasswordMismatch
	}
	if err := e.policy.Check(newPass); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricPasswordChangeFailure)
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	match, err := e.passwords.Verify(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !match {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if err := e.replacePassword(ctx, user.ID, newPass); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, userID, "", nil, nil)
	return nil
}

// RequestPasswordReset issues a reset code for email and mails it
// asynchronously. Unknown emails succeed silently so the endpoint cannot
// enumerate accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
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

	code, err := internal.NewOTP(e.config.Reset.CodeDigits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	record := &stores.TicketRecord{
		UserID:    user.ID,
		CodeHash:  internal.HashSecret(code),
		ExpiresAt: time.Now().Add(e.config.Reset.TTL).Unix(),
	}
	if err := e.resetTickets.Save(ctx, email, record, e.config.Reset.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetReq, true, user.ID, "", nil, nil)
	e.dispatchMail(email, MailPurposeReset, code)
	return nil
}

// ResetPassword consumes a reset code and replaces the password. The new
// password is validated before the ticket is consumed so a weak choice does
// not burn the code. Success revokes every refresh record of the user.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPass, confirm string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || code == "" {
		e.metricInc(MetricPasswordResetFailure)
		return ErrInvalidOrExpiredToken
	}
	if newPass != confirm {
		e.metricInc(MetricPasswordResetFailure)
		return ErrPasswordMismatch
	}
	if err := e.policy.Check(newPass); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	record, err := e.resetTickets.Consume(ctx, email, internal.HashSecret(code))
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrTicketNotFound), errors.Is(err, stores.ErrTicketMismatch):
			e.metricInc(MetricPasswordResetFailure)
			e.emitAudit(ctx, auditEventPasswordReset, false, "", "", ErrInvalidOrExpiredToken, func() map[string]string {
				return map[string]string{"email": email}
			})
			return ErrInvalidOrExpiredToken
		default:
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	if err := e.replacePassword(ctx, record.UserID, newPass); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordReset, true, record.UserID, "", nil, nil)
	return nil
}

// replacePassword rehashes, stores, and revokes all refresh records for the
// user.
func (e *Engine) replacePassword(ctx context.Context, userID, newPass string) error {
	hash, err := e.passwords.Hash(newPass)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if _, err := e.directory.Update(ctx, userID, UserPatch{PasswordHash: &hash}); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if _, err := e.refreshTokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}
