package engine

import (
	"errors"
	"fmt"
)

// Class groups failures by who is at fault; transports map it to a status.
type Class int

const (
	// ClassInternal is an environment or engine failure.
	ClassInternal Class = iota
	// ClassBadRequest is a caller error that retrying will not fix.
	ClassBadRequest
	// ClassNotImplemented is a request for a capability this service lacks.
	ClassNotImplemented
)

func (c Class) String() string {
	switch c {
	case ClassBadRequest:
		return "bad_request"
	case ClassNotImplemented:
		return "not_implemented"
	default:
		return "internal"
	}
}

var (
	// ErrMissingSQL is returned when a request carries no statement.
	ErrMissingSQL = errors.New("sql is required")
	// ErrStatementTooLong is returned for statements over MaxStatementLength bytes.
	ErrStatementTooLong = errors.New("sql statement exceeds maximum length")
	// ErrSchemaUnsupported is returned when a schema is selected.
	ErrSchemaUnsupported = errors.New("schema selection is not supported")
	// ErrTransactionUnsupported is returned for requests that join an
	// explicit transaction.
	ErrTransactionUnsupported = errors.New("explicit transactions are not supported")
	// ErrDuplicateParameter is returned when a parameter set names a parameter twice.
	ErrDuplicateParameter = errors.New("duplicate parameter")
	// ErrMissingParameter is returned when a referenced parameter is not supplied.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrUnsupportedParameterType is returned for array parameters.
	ErrUnsupportedParameterType = errors.New("array parameters are not supported")
	// ErrInvalidBlobEncoding is returned when a blob parameter is not valid base64.
	ErrInvalidBlobEncoding = errors.New("failed to decode base64 blob")
	// ErrSessionUnavailable is returned when no database session can be opened.
	ErrSessionUnavailable = errors.New("failed to acquire a database connection")
	// ErrDatabaseSelection is returned when the database directive fails.
	ErrDatabaseSelection = errors.New("failed to select database")
	// ErrExecution is returned when the engine rejects or fails a statement.
	ErrExecution = errors.New("failed to execute statement")
	// ErrCommit is returned when the unit of work cannot be committed.
	ErrCommit = errors.New("failed to commit transaction")
)

var classes = map[error]Class{
	ErrMissingSQL:               ClassBadRequest,
	ErrStatementTooLong:         ClassBadRequest,
	ErrDuplicateParameter:       ClassBadRequest,
	ErrMissingParameter:         ClassBadRequest,
	ErrUnsupportedParameterType: ClassBadRequest,
	ErrInvalidBlobEncoding:      ClassBadRequest,
	ErrSchemaUnsupported:        ClassNotImplemented,
	ErrTransactionUnsupported:   ClassNotImplemented,
	ErrSessionUnavailable:       ClassInternal,
	ErrDatabaseSelection:        ClassInternal,
	ErrExecution:                ClassInternal,
	ErrCommit:                   ClassInternal,
}

// Error is a classified request failure. Err is one of the sentinels above,
// Detail names the offending parameter or database, and Cause keeps the
// native error for logs.
type Error struct {
	Class  Class
	Err    error
	Detail string
	Cause  error
}

func newError(sentinel error, detail string, cause error) *Error {
	return &Error{Class: classes[sentinel], Err: sentinel, Detail: detail, Cause: cause}
}

// Message is the caller-facing text: the sentinel plus detail, never the
// native cause.
func (e *Error) Message() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", e.Message(), e.Cause)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// ClassOf returns the class of err. Errors that are not *Error are internal.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return "internal error"
}
