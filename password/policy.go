package password

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrPolicy is the sentinel wrapped by every policy violation.
var ErrPolicy = errors.New("password policy violation")

// Policy defines the strength rules applied to new passwords. Existing
// hashes are never re-checked against it.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicy returns the platform baseline: at least 8 characters with
// one uppercase letter, one lowercase letter, one digit, and one symbol.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Check returns nil when plaintext satisfies the policy, or an error
// wrapping [ErrPolicy] naming the first unmet rule.
func (p Policy) Check(plaintext string) error {
	runes := []rune(plaintext)
	if len(runes) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPolicy, p.MinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	switch {
	case p.RequireUpper && !hasUpper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrPolicy)
	case p.RequireLower && !hasLower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrPolicy)
	case p.RequireDigit && !hasDigit:
		return fmt.Errorf("%w: must contain a digit", ErrPolicy)
	case p.RequireSymbol && !hasSymbol:
		return fmt.Errorf("%w: must contain a symbol", ErrPolicy)
	}
	return nil
}
