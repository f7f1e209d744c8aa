package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Kind classifies a store failure so callers can decide whether to retry.
type Kind int

const (
	// KindNotFound means the object does not exist.
	KindNotFound Kind = iota

	// KindConflict means a concurrent modification was detected.
	KindConflict

	// KindTransient means the operation may succeed on retry.
	KindTransient

	// KindFatal means retrying will not help.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Error is a classified store failure for a given object path.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("blobstore: %s %q: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a missing-object failure.
func IsNotFound(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Kind == KindNotFound
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Kind == KindTransient
}

// classify wraps a backend error with the path it occurred on. Only known
// transient conditions are marked retryable; everything else is fatal so
// misconfiguration and permission failures surface immediately.
func classify(path string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindFatal
	switch {
	case os.IsNotExist(err) || strings.Contains(err.Error(), "not exist") || strings.Contains(err.Error(), "not found"):
		kind = KindNotFound
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		kind = KindFatal
	case os.IsPermission(err):
		kind = KindFatal
	case isTransientBackend(err):
		kind = KindTransient
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

func isTransientBackend(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"timeout", "timed out", "temporarily",
		"connection reset", "connection refused", "broken pipe",
		"unexpected EOF",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
