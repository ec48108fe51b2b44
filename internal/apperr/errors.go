// Package apperr holds the error taxonomy shared by the authentication
// subsystem. Kinds are client-visible classification tags; messages and
// wrapped causes stay server-side.
package apperr

import (
	"errors"
)

type Kind string

const (
	KindDuplicateAccount    Kind = "DuplicateAccount"
	KindRoleNotConfigured   Kind = "RoleNotConfigured"
	KindNotFound            Kind = "NotFound"
	KindAlreadyActivated    Kind = "AlreadyActivated"
	KindCredentialsNotFound Kind = "CredentialsNotFound"
	KindInvalidToken        Kind = "InvalidToken"
	KindDisabled            Kind = "Disabled"
	KindBadCredentials      Kind = "BadCredentials"
	KindAccessDenied        Kind = "AccessDenied"
	KindInvalidRequest      Kind = "InvalidRequest"
	KindInternal            Kind = "Internal"
)

// IsAuthentication reports whether the kind is raised by the request
// authentication gate rather than by domain logic.
func (k Kind) IsAuthentication() bool {
	return k == KindCredentialsNotFound || k == KindInvalidToken
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels compare equal to
// wrapped instances carrying a different message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrDuplicateAccount    = New(KindDuplicateAccount, "account already exists")
	ErrRoleNotConfigured   = New(KindRoleNotConfigured, "default role not configured")
	ErrNotFound            = New(KindNotFound, "not found")
	ErrAlreadyActivated    = New(KindAlreadyActivated, "account already activated")
	ErrCredentialsNotFound = New(KindCredentialsNotFound, "token not found")
	ErrInvalidToken        = New(KindInvalidToken, "invalid token")
	ErrDisabled            = New(KindDisabled, "account not activated")
	ErrBadCredentials      = New(KindBadCredentials, "bad credentials")
	ErrAccessDenied        = New(KindAccessDenied, "access denied")
	ErrInvalidRequest      = New(KindInvalidRequest, "invalid request")
)
