package files

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure classes the engine reports.
// Expected conditions (not found, already exists) are values here, not
// panics; panics are reserved for invariant violations.
type ErrorKind int

const (
	// ErrInternal is an unexpected OS or I/O failure.
	ErrInternal ErrorKind = iota
	// ErrPermissionDenied is a sandbox containment violation.
	ErrPermissionDenied
	// ErrNotFound means the target does not exist where existence is
	// required.
	ErrNotFound
	// ErrAlreadyExists is a target collision without overwrite.
	ErrAlreadyExists
	// ErrValidation is a structurally invalid request.
	ErrValidation
	// ErrTypeNotAllowed means the entry name carries a denylisted
	// extension.
	ErrTypeNotAllowed
	// ErrTooLarge means the payload exceeds the configured maximum.
	ErrTooLarge
)

// Code returns the stable wire code for the kind.
func (k ErrorKind) Code() string {
	switch k {
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrValidation:
		return "validation_error"
	case ErrTypeNotAllowed:
		return "file_type_not_allowed"
	case ErrTooLarge:
		return "file_too_large"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps the kind to its HTTP status class.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrPermissionDenied:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAlreadyExists:
		return http.StatusConflict
	case ErrValidation:
		return http.StatusBadRequest
	case ErrTypeNotAllowed:
		return http.StatusUnprocessableEntity
	case ErrTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is the engine's error type. Op names the operation, Path the
// tenant-relative path it failed on, Message a caller-safe description.
// Err holds the wrapped cause for internal failures and is not exposed
// to clients in release builds.
type Error struct {
	Kind    ErrorKind
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Code()
	}
	s := e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	s += ": " + msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, defaulting to ErrInternal
// for foreign errors.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrInternal
}

func permissionDenied(op, path string) *Error {
	return &Error{Kind: ErrPermissionDenied, Op: op, Path: path, Message: "path escapes tenant sandbox"}
}

func notFound(op, path string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Path: path, Message: "no such file or directory"}
}

func alreadyExists(op, path string) *Error {
	return &Error{Kind: ErrAlreadyExists, Op: op, Path: path, Message: "target already exists"}
}

func validation(op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

func typeNotAllowed(op, name string) *Error {
	return &Error{Kind: ErrTypeNotAllowed, Op: op, Path: name, Message: "file type is not allowed"}
}

func tooLarge(op, path string, size, limit int64) *Error {
	return &Error{
		Kind: ErrTooLarge, Op: op, Path: path,
		Message: fmt.Sprintf("payload of %d bytes exceeds the %d byte limit", size, limit),
	}
}

func internal(op, path string, err error) *Error {
	return &Error{Kind: ErrInternal, Op: op, Path: path, Message: "filesystem operation failed", Err: err}
}
