package cloud

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// Kind classifies a cloud API failure so callers can decide whether to
// retry, degrade, or fail hard without string-matching messages.
type Kind string

const (
	// KindTransient marks retryable network or API flakiness.
	KindTransient Kind = "transient"
	// KindNotFound marks a definitively absent resource, zone, or metric.
	KindNotFound Kind = "not-found"
	// KindAccessDenied marks authentication or permission failures.
	KindAccessDenied Kind = "access-denied"
	// KindConflict marks a resource that exists in an unexpected state,
	// typically drift between a plan and live cloud state.
	KindConflict Kind = "conflict"
	// KindInvalidRequest marks a malformed or inconsistent request.
	KindInvalidRequest Kind = "invalid-request"
	// KindTimeout marks a deadline exceeded while waiting on the platform.
	KindTimeout Kind = "timeout"
)

// Error is a kind-tagged cloud API error. Op names the failed call and
// Resource the target, both for diagnostics only.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	Err      error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Resource, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a kind-tagged error directly, for callers that classify
// their own failures (the fake client, existence checks).
func NewError(kind Kind, op, resource string, err error) *Error {
	return &Error{Kind: kind, Op: op, Resource: resource, Err: err}
}

// Classify wraps an error from the control-plane SDK with a Kind derived
// from its HTTP status. Unrecognized errors default to transient so that
// callers retry rather than give up on flaky infrastructure.
func Classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return err
	}

	kind := KindTransient
	var gerr *googleapi.Error
	switch {
	case errors.As(err, &gerr):
		switch {
		case gerr.Code == 404:
			kind = KindNotFound
		case gerr.Code == 401 || gerr.Code == 403:
			kind = KindAccessDenied
		case gerr.Code == 409:
			kind = KindConflict
		case gerr.Code == 400 || gerr.Code == 412 || gerr.Code == 422:
			kind = KindInvalidRequest
		case gerr.Code == 408 || gerr.Code == 429 || gerr.Code >= 500:
			kind = KindTransient
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case isNetError(err):
		kind = KindTransient
	}

	return &Error{Kind: kind, Op: op, Resource: resource, Err: err}
}

func isNetError(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr)
}

// ErrKind returns the Kind of a classified error, or empty for anything
// that did not come out of this package.
func ErrKind(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return ErrKind(err) == kind
}

// IsTransient reports whether err is retryable flakiness.
func IsTransient(err error) bool { return IsKind(err, KindTransient) }

// IsNotFound reports whether err marks an absent resource.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsAccessDenied reports whether err is an auth or permission failure.
func IsAccessDenied(err error) bool { return IsKind(err, KindAccessDenied) }

// IsConflict reports whether err marks plan/reality drift.
func IsConflict(err error) bool { return IsKind(err, KindConflict) }
