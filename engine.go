package authcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/donorhub/authcore/internal"
	"github.com/donorhub/authcore/internal/limiters"
	"github.com/donorhub/authcore/internal/stores"
	"github.com/donorhub/authcore/password"
	"github.com/donorhub/authcore/permission"
	"github.com/donorhub/authcore/session"
	"github.com/donorhub/authcore/token"
)

// Engine is the authentication core. Construct one through [New] and its
// builder; the zero value is unusable. All methods are safe for concurrent
// use.
type Engine struct {
	config Config
	log    *zap.Logger

	directory UserDirectory
	mailer    Mailer
	perms     *permission.Table

	tokens    *token.Manager
	passwords *password.Hasher
	policy    password.Policy

	sessions      *session.Store
	refreshTokens *stores.RefreshStore
	verifyTickets *stores.TicketStore
	resetTickets  *stores.TicketStore
	lockout       *limiters.LockoutLimiter

	audit   *auditDispatcher
	metrics *Metrics

	mailWG sync.WaitGroup
}

// Close waits for in-flight mail dispatches and drains the audit buffer.
// The engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mailWG.Wait()
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login authenticates email/password and opens a new session. The lockout
// check runs before any password work so locked accounts cost no hashing.
// On success the failure counter resets and the result carries the count
// accumulated before this login cleared it.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrEmptyCredentials
	}
	email = normalizeEmail(email)

	locked, err := e.lockout.IsLocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", "", ErrAccountLocked, func() map[string]string {
			return map[string]string{"email": email}
		})
		return nil, ErrAccountLocked
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.failLogin(ctx, email, "", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if !user.IsEmailVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, user.ID, "", ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}
	if !user.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, user.ID, "", ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	match, err := e.passwords.Verify(pass, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !match {
		return nil, e.failLogin(ctx, email, user.ID, ErrInvalidCredentials)
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, user, pass)
	}

	failedBefore, err := e.lockout.FailureCount(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := e.lockout.Reset(ctx, email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	pair, sessionID, err := e.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := e.directory.Update(ctx, user.ID, UserPatch{LastLoginAt: &now})
	if err != nil {
		e.log.Warn("last login update failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		updated = user
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, user.ID, sessionID, nil, nil)

	return &LoginResult{
		Tokens:         *pair,
		Profile:        updated.Profile(),
		FailedAttempts: failedBefore,
	}, nil
}

// maybeUpgradeHash rehashes a stored password that was produced with weaker
// cost parameters. Best effort, never blocks a successful login.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user UserRecord, pass string) {
	needs, err := e.passwords.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	upgraded, err := e.passwords.Hash(pass)
	if err != nil {
		e.log.Warn("password hash upgrade failed", zap.Error(err))
		return
	}
	if _, err := e.directory.Update(ctx, user.ID, UserPatch{PasswordHash: &upgraded}); err != nil {
		e.log.Warn("password hash upgrade update failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}

// failLogin records one failed attempt and reports the resulting state.
func (e *Engine) failLogin(ctx context.Context, email, userID string, cause error) error {
	count, nowLocked, err := e.lockout.RecordFailure(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLogin, false, userID, "", cause, func() map[string]string {
		m := map[string]string{"email": email}
		if nowLocked {
			m["locked"] = "true"
		}
		return m
	})

	if nowLocked {
		e.log.Warn("account locked after repeated failures",
			zap.String("email", email),
			zap.Int("failures", count),
		)
	}
	return cause
}

// Logout revokes the presented refresh token and destroys every session
// belonging to its owner.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.refreshTokens == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return ErrInvalidToken
	}

	if _, err := e.tokens.Parse(refreshToken, token.KindRefresh); err != nil {
		return ErrInvalidToken
	}

	record, err := e.refreshTokens.Consume(ctx, internal.HashSecret(refreshToken))
	if err != nil {
		if errors.Is(err, stores.ErrRefreshNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if _, err := e.refreshTokens.RevokeAllForUser(ctx, record.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	destroyed, err := e.sessions.DeleteAllForUser(ctx, record.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	for i := 0; i < destroyed; i++ {
		e.metricInc(MetricSessionDestroyed)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, record.UserID, record.SessionID, nil, nil)
	return nil
}

// Refresh rotates a refresh token: the presented token is consumed in the
// same step that validates it, so a replay of an already-used token always
// fails. The fresh pair stays bound to the original session.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.refreshTokens == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrInvalidToken
	}

	claims, err := e.tokens.Parse(refreshToken, token.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, "", "", ErrInvalidToken, nil)
		return nil, ErrInvalidToken
	}

	record, err := e.refreshTokens.Consume(ctx, internal.HashSecret(refreshToken))
	if err != nil {
		if errors.Is(err, stores.ErrRefreshNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefresh, false, claims.UserID, claims.SessionID, ErrInvalidToken, nil)
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user, err := e.directory.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricRefreshFailure)
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !user.IsActive {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, user.ID, record.SessionID, ErrAccountDisabled, nil)
		return nil, ErrInvalidToken
	}

	pair, err := e.issueTokens(ctx, user, record.SessionID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, user.ID, record.SessionID, nil, nil)
	return pair, nil
}

// Authenticate validates an access token, confirms its session is still
// live, touches the session's last-activity time, and returns the caller's
// profile.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Profile, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	claims, err := e.tokens.Parse(accessToken, token.KindAccess)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	user, err := e.directory.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !user.IsActive {
		return nil, ErrAuthenticationFailed
	}

	if err := e.sessions.Touch(ctx, claims.SessionID, time.Now()); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	profile := user.Profile()
	return &profile, nil
}

// HasPermission reports whether the user's role grants the named
// capability. Missing or inactive users hold nothing; the method never
// returns an error.
func (e *Engine) HasPermission(ctx context.Context, userID, capability string) bool {
	if e == nil || e.directory == nil {
		return false
	}

	user, err := e.directory.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return false
	}
	return e.perms.Grants(string(user.Role), capability)
}

// DestroySession removes one session by id and reports whether it existed.
func (e *Engine) DestroySession(ctx context.Context, sessionID string) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, ErrEngineNotReady
	}

	existed, err := e.sessions.Delete(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if existed {
		e.metricInc(MetricSessionDestroyed)
		e.emitAudit(ctx, auditEventSessionDestroyed, true, "", sessionID, nil, nil)
	}
	return existed, nil
}

// ActiveSessions returns a read-only view of the user's live sessions.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	ids, err := e.sessions.ActiveSessionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		sess, err := e.sessions.Get(ctx, id)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		infos = append(infos, SessionInfo{
			SessionID:    sess.ID,
			UserAgent:    sess.UserAgent,
			IP:           sess.IP,
			LoginTime:    time.Unix(sess.LoginTime, 0),
			LastActivity: time.Unix(sess.LastActivity, 0),
		})
	}
	return infos, nil
}

// openSession creates a session record for user and mints its first token
// pair.
func (e *Engine) openSession(ctx context.Context, user UserRecord) (*TokenPair, string, error) {
	sessionID, err := internal.NewSessionID()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := time.Now()
	sess := &session.Session{
		ID:           sessionID,
		UserID:       user.ID,
		UserAgent:    userAgentFromContext(ctx),
		IP:           clientIPFromContext(ctx),
		LoginTime:    now.Unix(),
		LastActivity: now.Unix(),
		ExpiresAt:    now.Add(e.sessionLifetime()).Unix(),
	}
	if err := e.sessions.Save(ctx, sess, e.sessionLifetime()); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInternal, err)
	}
	e.metricInc(MetricSessionCreated)

	pair, err := e.issueTokens(ctx, user, sessionID)
	if err != nil {
		return nil, "", err
	}
	return pair, sessionID, nil
}

// issueTokens mints an access/refresh pair bound to sessionID and registers
// the refresh record.
func (e *Engine) issueTokens(ctx context.Context, user UserRecord, sessionID string) (*TokenPair, error) {
	access, err := e.tokens.IssueAccess(user.ID, sessionID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	refresh, err := e.tokens.IssueRefresh(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	ttl := e.tokens.RefreshTTL()
	record := &stores.RefreshRecord{
		UserID:    user.ID,
		SessionID: sessionID,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	if err := e.refreshTokens.Save(ctx, internal.HashSecret(refresh), record, ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// sessionLifetime is the session TTL; it follows the refresh TTL unless
// configured explicitly.
func (e *Engine) sessionLifetime() time.Duration {
	if e.config.Session.Lifetime > 0 {
		return e.config.Session.Lifetime
	}
	return e.config.Token.RefreshTTL
}

// dispatchMail sends a code on a detached goroutine. Delivery failure is
// logged and counted but never fails the triggering workflow.
func (e *Engine) dispatchMail(toEmail, purpose, code string) {
	e.mailWG.Add(1)
	go func() {
		defer e.mailWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.mailer.Send(ctx, toEmail, purpose, code); err != nil {
			e.metricInc(MetricMailDispatchFailure)
			e.log.Warn("mail dispatch failed",
				zap.String("purpose", purpose),
				zap.Error(err),
			)
			e.emitAudit(ctx, auditEventMailDispatchFailed, false, "", "", err, func() map[string]string {
				return map[string]string{"purpose": purpose}
			})
		}
	}()
}
