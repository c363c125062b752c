package matchcore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures. Domain kinds are never retried
// by the engine; retry policy belongs to the caller. KindInternal marks
// transient storage faults and is kept distinct from the domain kinds.
type ErrorKind uint8

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidRequest
	KindConflict
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// DomainError carries the failure kind plus enough context (operation,
// public id, user id) for upstream logging and user messaging.
type DomainError struct {
	Kind     ErrorKind
	Op       string
	Reason   string
	PublicID string
	UserID   int
	Err      error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.PublicID != "" {
		msg += fmt.Sprintf(" (public_id=%s)", e.PublicID)
	}
	if e.UserID != 0 {
		msg += fmt.Sprintf(" (user_id=%d)", e.UserID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Err }

func kindOf(err error) (ErrorKind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return KindInternal, false
}

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsInvalidRequest reports whether err is a malformed or self-targeting
// request.
func IsInvalidRequest(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidRequest
}

// IsConflict reports whether err is a duplicate request or a lost
// concurrent-update race.
func IsConflict(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConflict
}

// IsUnauthorized reports whether err is an ownership violation.
func IsUnauthorized(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnauthorized
}

func notFoundf(op string, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindNotFound, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func invalidRequestf(op string, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindInvalidRequest, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func conflictf(op string, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindConflict, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func unauthorizedf(op string, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindUnauthorized, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func internalErr(op string, err error) *DomainError {
	return &DomainError{Kind: KindInternal, Op: op, Err: err}
}
