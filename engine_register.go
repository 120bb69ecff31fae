package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donorhub/authcore/internal"
	"github.com/donorhub/authcore/internal/stores"
)

// Register creates a new account. The account starts inactive and
// unverified; a verification code is issued and mailed asynchronously.
// Registration still auto-logs-in so onboarding flows can carry tokens,
// even though Login will refuse the account until the email is verified.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	req.Email = normalizeEmail(req.Email)
	if err := validateEmail(req.Email); err != nil {
		e.metricInc(MetricRegisterFailure)
		return nil, err
	}
	if req.Name == "" {
		e.metricInc(MetricRegisterFailure)
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Password == "" {
		e.metricInc(MetricRegisterFailure)
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if err := e.policy.Check(req.Password); err != nil {
		e.metricInc(MetricRegisterFailure)
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	// Early duplicate check for a clean error; the directory's Create is
	// still the authority under concurrency.
	if _, err := e.directory.FindByEmail(ctx, req.Email); err == nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegister, false, "", "", ErrDuplicateEmail, func() map[string]string {
			return map[string]string{"email": req.Email}
		})
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := time.Now()
	user, err := e.directory.Create(ctx, UserRecord{
		ID:           internal.NewUserID(),
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         RoleUser,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricRegisterFailure)
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := e.issueVerificationTicket(ctx, user); err != nil {
		return nil, err
	}

	pair, sessionID, err := e.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, user.ID, sessionID, nil, nil)

	return &RegisterResult{
		Tokens:  *pair,
		Profile: user.Profile(),
	}, nil
}

// issueVerificationTicket stores a fresh verification code for user and
// mails it asynchronously. A pending ticket for the same email is replaced.
func (e *Engine) issueVerificationTicket(ctx context.Context, user UserRecord) error {
	code, err := internal.NewOTP(e.config.Verification.CodeDigits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	record := &stores.TicketRecord{
		UserID:    user.ID,
		CodeHash:  internal.HashSecret(code),
		ExpiresAt: time.Now().Add(e.config.Verification.TTL).Unix(),
	}
	if err := e.verifyTickets.Save(ctx, user.Email, record, e.config.Verification.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.metricInc(MetricVerificationRequest)
	e.dispatchMail(user.Email, MailPurposeVerification, code)
	return nil
}
