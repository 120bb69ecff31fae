package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when a required dependency was not wired.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrValidation covers malformed input: bad email shape, empty required field.
	ErrValidation = errors.New("invalid input")
	// ErrEmptyCredentials is returned by Login when email or password is missing.
	ErrEmptyCredentials = errors.New("email and password are required")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrWeakPassword is returned when a password fails the strength rules.
	ErrWeakPassword = errors.New("password does not meet strength requirements")
	// ErrInvalidCredentials deliberately conflates unknown-user and
	// wrong-password so login failures do not reveal which half was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned by id-addressed operations such as ChangePassword.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDisabled is returned when the account is deactivated.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrEmailNotVerified is returned when the account has not confirmed its email.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrAccountLocked is returned while the timed login lockout is in effect.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrInvalidToken is returned for an unknown, expired, or already-used
	// refresh token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidOrExpiredToken is returned for a bad verification or reset code.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired code")
	// ErrMissingToken is returned by Authenticate when no token was supplied.
	ErrMissingToken = errors.New("missing token")
	// ErrAuthenticationFailed is returned by Authenticate for any undecodable
	// token or unusable account.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrSessionExpired is returned when the token's session no longer exists.
	ErrSessionExpired = errors.New("session expired")
	// ErrPasswordMismatch is returned when a new password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInternal wraps unexpected collaborator failures (directory, Redis)
	// so callers never see a raw backend error.
	ErrInternal = errors.New("internal failure")
)

// Error kind strings returned by [KindOf], matching the platform taxonomy.
const (
	KindValidation           = "validation_error"
	KindDuplicateEmail       = "duplicate_email"
	KindWeakPassword         = "weak_password"
	KindInvalidCredentials   = "invalid_credentials"
	KindUserNotFound         = "user_not_found"
	KindAccountDisabled      = "account_disabled"
	KindEmailNotVerified     = "email_not_verified"
	KindAccountLocked        = "account_locked"
	KindInvalidToken         = "invalid_token"
	KindInvalidOrExpiredCode = "invalid_or_expired_code"
	KindMissingToken         = "missing_token"
	KindAuthenticationFailed = "authentication_failed"
	KindSessionExpired       = "session_expired"
	KindPasswordMismatch     = "password_mismatch"
	KindInternalFailure      = "internal_failure"
)

// KindOf maps any engine error onto its taxonomy kind, so callers can build
// structured {success, kind, message} responses without string matching.
// A nil error maps to "".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCredentials), errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrDuplicateEmail):
		return KindDuplicateEmail
	case errors.Is(err, ErrWeakPassword):
		return KindWeakPassword
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrAccountDisabled):
		return KindAccountDisabled
	case errors.Is(err, ErrEmailNotVerified):
		return KindEmailNotVerified
	case errors.Is(err, ErrAccountLocked):
		return KindAccountLocked
	case errors.Is(err, ErrInvalidToken):
		return KindInvalidToken
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return KindInvalidOrExpiredCode
	case errors.Is(err, ErrMissingToken):
		return KindMissingToken
	case errors.Is(err, ErrAuthenticationFailed):
		return KindAuthenticationFailed
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrPasswordMismatch):
		return KindPasswordMismatch
	default:
		return KindInternalFailure
	}
}
