package authcore

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: one @ with non-empty local part and a
// dotted domain. Real deliverability is proven by the verification mail,
// not by the regex.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// normalizeEmail lowercases and trims an email for storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return nil
}
