// Package errors defines the failure taxonomy of the fix pipeline.
// Every per-file and per-fix failure is one of these kinds so callers can
// report something more specific than a generic "failed".
package errors

import (
	"fmt"
)

// Kind is the category of a pipeline error.
type Kind int

const (
	// KindDecode - file content is unreadable or binary. Skip the file,
	// report it, keep scanning the rest.
	KindDecode Kind = iota
	// KindProviderUnavailable - the AI fix provider is down or
	// misconfigured. Rule-based fixes must still be produced.
	KindProviderUnavailable
	// KindStaleFix - file content changed since the analysis that produced
	// the fix. The fix fails; the operator must re-analyze.
	KindStaleFix
	// KindConflict - two selected fixes target the same region. One is
	// applied deterministically, the other fails with this kind.
	KindConflict
	// KindPublish - commit or pull-request creation failed. The rewritten
	// content is preserved in the result.
	KindPublish
	// KindConfig - invalid configuration. The only kind that aborts a
	// whole operation.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "DecodeError"
	case KindProviderUnavailable:
		return "ProviderUnavailable"
	case KindStaleFix:
		return "StaleFixError"
	case KindConflict:
		return "ConflictError"
	case KindPublish:
		return "PublishError"
	case KindConfig:
		return "ConfigError"
	default:
		return "UnknownError"
	}
}

// Error is a categorized pipeline error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Kind, so sentinel comparison with
// errors.Is works across independently constructed instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under the given kind. Returns nil for a nil
// cause so call sites can wrap unconditionally.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// Sentinels for errors.Is checks.
var (
	ErrDecode              = &Error{Kind: KindDecode, Message: "undecodable content"}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable, Message: "fix provider unavailable"}
	ErrStaleFix            = &Error{Kind: KindStaleFix, Message: "fix is stale"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "conflicting fixes"}
	ErrPublish             = &Error{Kind: KindPublish, Message: "publish failed"}
	ErrConfig              = &Error{Kind: KindConfig, Message: "invalid configuration"}
)

// IsKind reports whether err (or anything it wraps) is a pipeline error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
