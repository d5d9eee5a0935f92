// Package errors provides the error taxonomy used across railctl.
// Every failure the console can surface to a user is one of the typed
// errors below, so callers branch on kind instead of matching strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
	// Join joins errors into one
	Join = errors.Join
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// Transport and backend kinds
	NetworkFailure
	APIFailure
	SessionExpired
	// Input kinds
	ValidationFailed
	// Config kinds
	InvalidConfig
	ConfigNotFound
	// SQL console kinds
	DatabaseConnectionFailed
	DatabaseQueryFailed
)

var kindNames = map[ErrorKind]string{
	Unknown:                  "unknown",
	NetworkFailure:           "network",
	APIFailure:               "api",
	SessionExpired:           "session_expired",
	ValidationFailed:         "validation",
	InvalidConfig:            "invalid_config",
	ConfigNotFound:           "config_not_found",
	DatabaseConnectionFailed: "db_connect",
	DatabaseQueryFailed:      "db_query",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Common error values
var (
	ErrInvalidConfig  = NewConfigError("invalid configuration", "", InvalidConfig, nil)
	ErrSessionExpired = NewSessionExpiredError(http.StatusUnauthorized)
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// NetworkError is a transport failure: the request never produced an HTTP response.
type NetworkError struct {
	ApplicationError
	op string
}

// NewNetworkError creates a network error for the operation op (e.g. "GET /employees").
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{
		ApplicationError: ApplicationError{
			msg:  "network request failed",
			err:  err,
			kind: NetworkFailure,
		},
		op: op,
	}
}

// Error returns the network error message
func (e *NetworkError) Error() string {
	if e.op != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.op, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.op)
	}
	return e.ApplicationError.Error()
}

// Op returns the failed operation
func (e *NetworkError) Op() string {
	return e.op
}

// APIError is a non-2xx backend response. Its message is the backend's
// {message} field, or the HTTP status text when the body carries none.
type APIError struct {
	ApplicationError
	status int
}

// NewAPIError creates an API error. An empty message falls back to the status text.
func NewAPIError(status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{
		ApplicationError: ApplicationError{
			msg:  message,
			kind: APIFailure,
		},
		status: status,
	}
}

// Error returns the backend message verbatim
func (e *APIError) Error() string {
	return e.msg
}

// Status returns the HTTP status code
func (e *APIError) Status() int {
	return e.status
}

// ValidationError reports input that failed validation, either locally or
// as a 400/422 rejection of a mutation by the backend.
type ValidationError struct {
	ApplicationError
	field string
}

// NewValidationError creates a validation error for field (may be empty).
func NewValidationError(field, msg string, err error) *ValidationError {
	return &ValidationError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: ValidationFailed,
		},
		field: field,
	}
}

// Error returns the validation message without the wrapped cause
func (e *ValidationError) Error() string {
	return e.msg
}

// Field returns the offending field, if known
func (e *ValidationError) Field() string {
	return e.field
}

// SessionExpiredError is returned for every 401/403 response.
type SessionExpiredError struct {
	ApplicationError
	status int
}

// NewSessionExpiredError creates a session expiry error for the given status.
func NewSessionExpiredError(status int) *SessionExpiredError {
	return &SessionExpiredError{
		ApplicationError: ApplicationError{
			msg:  "session expired",
			kind: SessionExpired,
		},
		status: status,
	}
}

// Status returns the HTTP status that triggered the expiry
func (e *SessionExpiredError) Status() int {
	return e.status
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// DatabaseError represents errors raised by the raw SQL console
type DatabaseError struct {
	ApplicationError
	operation string
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, kind ErrorKind, err error) *DatabaseError {
	return &DatabaseError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
	}
}

// WithOperation adds operation information to the database error
func (e *DatabaseError) WithOperation(operation string) *DatabaseError {
	e.operation = operation
	return e
}

// Error returns the database error message
func (e *DatabaseError) Error() string {
	if e.operation != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: operation=%s: %v", e.msg, e.operation, e.err)
		}
		return fmt.Sprintf("%s: operation=%s", e.msg, e.operation)
	}
	return e.ApplicationError.Error()
}

// Operation returns the database operation associated with the error
func (e *DatabaseError) Operation() string {
	return e.operation
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// IsNetwork checks if the error is a transport failure
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsAPI checks if the error is a non-2xx backend response.
// Validation rejections wrap an APIError and therefore also match.
func IsAPI(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// APIStatus returns the HTTP status carried by an APIError in err's chain.
func APIStatus(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status(), true
	}
	return 0, false
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsSessionExpired checks if the error is a session expiry
func IsSessionExpired(err error) bool {
	var sessErr *SessionExpiredError
	return errors.As(err, &sessErr)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsDatabaseError checks if the error is a database error
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) ErrorKind {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return Unknown
}
