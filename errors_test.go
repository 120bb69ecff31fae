package authcore

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrEmptyCredentials, KindValidation},
		{ErrValidation, KindValidation},
		{fmt.Errorf("%w: email is required", ErrValidation), KindValidation},
		{ErrDuplicateEmail, KindDuplicateEmail},
		{ErrWeakPassword, KindWeakPassword},
		{fmt.Errorf("%w: must contain a digit", ErrWeakPassword), KindWeakPassword},
		{ErrInvalidCredentials, KindInvalidCredentials},
		{ErrUserNotFound, KindUserNotFound},
		{ErrAccountDisabled, KindAccountDisabled},
		{ErrEmailNotVerified, KindEmailNotVerified},
		{ErrAccountLocked, KindAccountLocked},
		{ErrInvalidToken, KindInvalidToken},
		{ErrInvalidOrExpiredToken, KindInvalidOrExpiredCode},
		{ErrMissingToken, KindMissingToken},
		{ErrAuthenticationFailed, KindAuthenticationFailed},
		{ErrSessionExpired, KindSessionExpired},
		{ErrPasswordMismatch, KindPasswordMismatch},
		{ErrInternal, KindInternalFailure},
		{errors.New("anything else"), KindInternalFailure},
		{fmt.Errorf("%w: redis gone", ErrInternal), KindInternalFailure},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
