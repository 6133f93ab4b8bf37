package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes shared by every surface. Status codes are fixed per code so a
// client can branch on either.
const (
	CodeUnauthenticated   = "unauthenticated"
	CodeInvalidCredential = "invalid_credential"
	CodeNotFound          = "not_found"
	CodeUpstreamFailure   = "upstream_failure"
	CodeValidationFailed  = "validation_failed"
	CodeInternal          = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthenticated(err error) *Error {
	if err == nil {
		err = errors.New("missing credential")
	}
	return New(http.StatusUnauthorized, CodeUnauthenticated, err)
}

func InvalidCredential(err error) *Error {
	if err == nil {
		err = errors.New("invalid or expired credential")
	}
	return New(http.StatusUnauthorized, CodeInvalidCredential, err)
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func Upstream(err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamFailure, err)
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidationFailed, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// CodeOf returns the code carried by err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae.Code
	}
	return ""
}

func Is(err error, code string) bool {
	return code != "" && CodeOf(err) == code
}
