package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies authentication, token and authorization failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// Login path
	KindInvalidCredentials
	KindAccountDisabled
	KindNoSuchPrincipal

	// Token path
	KindBadSignature
	KindMalformed
	KindUnsupportedAlgorithm
	KindExpired
	KindRefreshWindow
	KindSubjectMismatch
)

var kindNames = map[ErrorKind]string{
	KindUnknown:              "unknown",
	KindInvalidCredentials:   "invalid_credentials",
	KindAccountDisabled:      "account_disabled",
	KindNoSuchPrincipal:      "no_such_principal",
	KindBadSignature:         "bad_signature",
	KindMalformed:            "malformed",
	KindUnsupportedAlgorithm: "unsupported_algorithm",
	KindExpired:              "expired",
	KindRefreshWindow:        "refresh_window",
	KindSubjectMismatch:      "subject_mismatch",
}

// String returns the snake_case name of the kind, suitable for logs and metric labels.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is the error type returned by every fallible operation in this package.
// Two errors are equal under errors.Is when their kinds match.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

var (
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials}
	ErrAccountDisabled      = &Error{Kind: KindAccountDisabled}
	ErrNoSuchPrincipal      = &Error{Kind: KindNoSuchPrincipal}
	ErrBadSignature         = &Error{Kind: KindBadSignature}
	ErrMalformed            = &Error{Kind: KindMalformed}
	ErrUnsupportedAlgorithm = &Error{Kind: KindUnsupportedAlgorithm}
	ErrExpired              = &Error{Kind: KindExpired}
	ErrRefreshWindow        = &Error{Kind: KindRefreshWindow}
	ErrSubjectMismatch      = &Error{Kind: KindSubjectMismatch}
)

// KindOf returns the kind carried by err, or KindUnknown when err is not an *Error.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}

// IsCredentialError reports whether err is a login-path failure.
func IsCredentialError(err error) bool {
	switch KindOf(err) {
	case KindInvalidCredentials, KindAccountDisabled, KindNoSuchPrincipal:
		return true
	}
	return false
}

// IsTokenError reports whether err is a token validation or refresh failure.
func IsTokenError(err error) bool {
	switch KindOf(err) {
	case KindBadSignature, KindMalformed, KindUnsupportedAlgorithm,
		KindExpired, KindRefreshWindow, KindSubjectMismatch:
		return true
	}
	return false
}
