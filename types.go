package authcore

import (
	"context"
	"time"
)

// Role is the coarse access level of a user account. The permission sets
// granted to each role are explicit (see permission.DefaultRoles); no role
// implicitly contains another.
type Role string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "user"
	// RoleManager can manage projects and reporting.
	RoleManager Role = "manager"
	// RoleAdmin can additionally manage users.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// UserRecord is the full account record held by the [UserDirectory].
// ID and Email are immutable once set; Email comparisons are
// case-insensitive. An unverified record is always inactive.
type UserRecord struct {
	ID              string
	Email           string
	Name            string
	Phone           string
	Role            Role
	IsActive        bool
	IsEmailVerified bool
	PasswordHash    string

	Bio         string
	AvatarURL   string
	Preferences map[string]string

	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     *time.Time
	EmailVerifiedAt *time.Time
}

// Profile returns the sanitized projection of the record. The password hash
// never leaves the engine through any result type.
func (u UserRecord) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		Bio:             u.Bio,
		AvatarURL:       u.AvatarURL,
		Preferences:     u.Preferences,
		CreatedAt:       u.CreatedAt,
		LastLoginAt:     u.LastLoginAt,
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}

// Profile is the caller-visible view of a user account.
type Profile struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	Name            string            `json:"name"`
	Phone           string            `json:"phone,omitempty"`
	Role            Role              `json:"role"`
	IsActive        bool              `json:"is_active"`
	IsEmailVerified bool              `json:"is_email_verified"`
	Bio             string            `json:"bio,omitempty"`
	AvatarURL       string            `json:"avatar_url,omitempty"`
	Preferences     map[string]string `json:"preferences,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	LastLoginAt     *time.Time        `json:"last_login_at,omitempty"`
	EmailVerifiedAt *time.Time        `json:"email_verified_at,omitempty"`
}

// UserPatch is a partial update applied through [UserDirectory.Update].
// Nil pointers leave the field untouched. Email and ID are immutable and
// therefore absent.
type UserPatch struct {
	Name            *string
	Phone           *string
	Bio             *string
	AvatarURL       *string
	Preferences     map[string]string
	Role            *Role
	IsActive        *bool
	IsEmailVerified *bool
	PasswordHash    *string
	LastLoginAt     *time.Time
	EmailVerifiedAt *time.Time
}

// UserDirectory is the system of record for user accounts. Implementations
// must keep emails unique case-insensitively and return [ErrUserNotFound]
// for missing records and [ErrDuplicateEmail] on a conflicting Create.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	Create(ctx context.Context, record UserRecord) (UserRecord, error)
	Update(ctx context.Context, id string, patch UserPatch) (UserRecord, error)
}

// Mail purposes passed to [Mailer.Send].
const (
	// MailPurposeVerification accompanies an email-verification code.
	MailPurposeVerification = "email_verification"
	// MailPurposeReset accompanies a password-reset code.
	MailPurposeReset = "password_reset"
)

// Mailer delivers a one-time code to a user out of band. The engine invokes
// Send on a detached goroutine without holding any internal lock; a failure
// is logged but never rolls back the workflow that triggered it.
type Mailer interface {
	Send(ctx context.Context, toEmail, purpose, code string) error
}

// TokenPair carries one freshly minted access/refresh pair. Both tokens are
// always issued together.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest is the input for [Engine.Register]. Email, Password, and
// Name are required; Phone is optional.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// RegisterResult is returned by [Engine.Register]. Registration auto-logs-in
// for convenience even though the account cannot authenticate through Login
// until the email is verified.
type RegisterResult struct {
	Tokens  TokenPair
	Profile Profile
}

// LoginResult is returned by [Engine.Login]. FailedAttempts is the failure
// count accumulated before this successful login cleared it, useful for UX
// warnings.
type LoginResult struct {
	Tokens         TokenPair
	Profile        Profile
	FailedAttempts int
}

// SessionInfo is a read-only view of one tracked session.
type SessionInfo struct {
	SessionID    string
	UserAgent    string
	IP           string
	LoginTime    time.Time
	LastActivity time.Time
}
