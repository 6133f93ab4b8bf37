package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	base := NotFound("lesson")
	wrapped := fmt.Errorf("get lesson: %w", base)

	if got := CodeOf(wrapped); got != CodeNotFound {
		t.Fatalf("CodeOf: got=%q want=%q", got, CodeNotFound)
	}
	if !Is(wrapped, CodeNotFound) {
		t.Fatalf("Is: expected true")
	}
	if Is(errors.New("plain"), CodeNotFound) {
		t.Fatalf("Is: plain error should not match")
	}
}

func TestConstructorsCarryStatus(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{Unauthenticated(nil), http.StatusUnauthorized, CodeUnauthenticated},
		{InvalidCredential(nil), http.StatusUnauthorized, CodeInvalidCredential},
		{Upstream(errors.New("x")), http.StatusBadGateway, CodeUpstreamFailure},
		{Validation(errors.New("x")), http.StatusBadRequest, CodeValidationFailed},
		{Internal(errors.New("x")), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		if tc.err.Status != tc.status || tc.err.Code != tc.code {
			t.Fatalf("unexpected error shape: %+v", tc.err)
		}
		if tc.err.Error() == "" {
			t.Fatalf("empty message for %s", tc.code)
		}
	}
}
