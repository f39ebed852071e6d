// Package wraperr defines the errors returned by the storage and queue clients.
//
// Every failure is an *Error whose Kind is one of the sentinels below. The
// underlying SDK error stays reachable, so callers can use errors.Is against the
// kind and errors.As against the AWS error types on the same value.
package wraperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a required argument is empty or blank.
	ErrValidation = errors.New("validation error")

	// ErrStorageOperation is returned when listing, fetching metadata for or
	// uploading an object fails.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrNotFound is returned when a download or move cannot complete.
	ErrNotFound = errors.New("object not found")

	// ErrQueueOperation is returned when a queue request fails.
	ErrQueueOperation = errors.New("queue operation failed")

	// ErrClosed is returned by any operation on a client after Close.
	ErrClosed = errors.New("client is closed")
)

// Error carries the operation and resource that failed.
type Error struct {
	// Op is the operation name, e.g. "list objects" or "receive messages".
	Op string

	// Kind is one of the package sentinels.
	Kind error

	// Resource is an s3:// URI or a queue URL.
	Resource string

	// Err is the cause, usually an SDK error.
	Err error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Resource != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Resource)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind error, op, resource string, err error) *Error {
	return &Error{Op: op, Kind: kind, Resource: resource, Err: err}
}

// Validation reports a rejected argument.
func Validation(op, message string) *Error {
	return newError(ErrValidation, op, "", errors.New(message))
}

// StorageOperation wraps a failed list, metadata or upload call.
func StorageOperation(op, resource string, err error) *Error {
	return newError(ErrStorageOperation, op, resource, err)
}

// NotFound wraps a failed download or move.
func NotFound(op, resource string, err error) *Error {
	return newError(ErrNotFound, op, resource, err)
}

// QueueOperation wraps a failed queue call.
func QueueOperation(op, resource string, err error) *Error {
	return newError(ErrQueueOperation, op, resource, err)
}

// Closed reports use of a client after Close.
func Closed(op, resource string) *Error {
	return newError(ErrClosed, op, resource, nil)
}

// ObjectURI formats a bucket and key as s3://bucket/key.
func ObjectURI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// IsValidation reports whether err is of kind ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsStorageOperation reports whether err is of kind ErrStorageOperation.
func IsStorageOperation(err error) bool { return errors.Is(err, ErrStorageOperation) }

// IsNotFound reports whether err is of kind ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsQueueOperation reports whether err is of kind ErrQueueOperation.
func IsQueueOperation(err error) bool { return errors.Is(err, ErrQueueOperation) }

// IsClosed reports whether err is of kind ErrClosed.
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }
