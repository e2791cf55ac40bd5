package strongbox

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failure conditions that secret operations can
// surface. The set is closed - callers can rely on matching against these
// kinds rather than inspecting error message text.
type ErrorKind string

const (
	// KindUnknown is the catch-all for failures that do not match any other
	// kind. The underlying cause is preserved for diagnostics.
	KindUnknown ErrorKind = "unknown"
	// KindNotFound indicates the requested secret does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindAccessDenied indicates the caller is not authorized to perform the
	// operation.
	KindAccessDenied ErrorKind = "access_denied"
	// KindThrottled indicates the service rejected the request due to
	// throttling. The wrapper surfaces throttling rather than absorbing it.
	KindThrottled ErrorKind = "throttled"
	// KindInvalidState indicates the secret exists but is marked for deletion
	// and cannot be used until it is restored.
	KindInvalidState ErrorKind = "invalid_state"
	// KindUnsupportedFormat indicates the secret holds a binary payload,
	// which this wrapper does not support.
	KindUnsupportedFormat ErrorKind = "unsupported_format"

	// KindCreateFailed wraps any failure to create a secret.
	KindCreateFailed ErrorKind = "create_failed"
	// KindUpdateFailed wraps any failure to update a secret.
	KindUpdateFailed ErrorKind = "update_failed"
	// KindDeleteFailed wraps any failure to delete a secret.
	KindDeleteFailed ErrorKind = "delete_failed"
	// KindExistenceCheckFailed wraps any failure to check whether a secret
	// exists, other than the secret not being found.
	KindExistenceCheckFailed ErrorKind = "existence_check_failed"
	// KindListFailed wraps any failure to list secrets.
	KindListFailed ErrorKind = "list_failed"
	// KindTagFailed wraps any failure to tag a secret.
	KindTagFailed ErrorKind = "tag_failed"
	// KindGetTagsFailed wraps any failure to read a secret's tags.
	KindGetTagsFailed ErrorKind = "get_tags_failed"
	// KindGetVersionsFailed wraps any failure to list a secret's versions.
	KindGetVersionsFailed ErrorKind = "get_versions_failed"
)

// Error is the uniform error type returned by all secret operations. It
// carries a human-readable message, the kind of failure, and, when available,
// the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError returns an error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError returns an error of the given kind wrapping the underlying cause.
// It returns nil if the cause is nil.
func WrapError(cause error, kind ErrorKind, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the given error. Errors that did not originate
// from this package report KindUnknown.
func KindOf(err error) ErrorKind {
	var sbErr *Error
	if errors.As(err, &sbErr) {
		return sbErr.Kind
	}
	return KindUnknown
}

func isKind(err error, kind ErrorKind) bool {
	var sbErr *Error
	return errors.As(err, &sbErr) && sbErr.Kind == kind
}

// IsNotFound returns whether the error indicates a missing secret.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsAccessDenied returns whether the error indicates an authorization
// failure.
func IsAccessDenied(err error) bool { return isKind(err, KindAccessDenied) }

// IsThrottled returns whether the error indicates service-side throttling.
func IsThrottled(err error) bool { return isKind(err, KindThrottled) }

// IsInvalidState returns whether the error indicates a secret that is marked
// for deletion.
func IsInvalidState(err error) bool { return isKind(err, KindInvalidState) }

// IsUnsupportedFormat returns whether the error indicates a binary secret.
func IsUnsupportedFormat(err error) bool { return isKind(err, KindUnsupportedFormat) }
