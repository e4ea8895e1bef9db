package apperror

import (
	"errors"
	"fmt"
)

// Kind is the stable error category surfaced to callers.
type Kind string

const (
	KindConfiguration   Kind = "ConfigurationError"
	KindUpstream        Kind = "UpstreamUnavailable"
	KindValidation      Kind = "ValidationError"
	KindPartialEvidence Kind = "PartialEvidenceFailure"
	KindNotFound        Kind = "NotFound"
	KindInternal        Kind = "InternalError"
)

// Error carries a Kind alongside the failing operation and its cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.ErrValidation) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrPartialEvidence = &Error{Kind: KindPartialEvidence}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op, format string, args ...interface{}) *Error {
	return New(KindConfiguration, op, fmt.Sprintf(format, args...))
}

func Validation(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, fmt.Sprintf(format, args...))
}

func NotFound(op, format string, args ...interface{}) *Error {
	return New(KindNotFound, op, fmt.Sprintf(format, args...))
}

func Upstream(op string, err error) *Error {
	return Wrap(KindUpstream, op, err)
}

func PartialEvidence(op, format string, args ...interface{}) *Error {
	return New(KindPartialEvidence, op, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
