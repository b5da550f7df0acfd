// Package yomerr defines the closed error taxonomy shared by every layer of
// the library. Callers classify failures with errors.Is against the
// exported sentinels; human-facing or wire-facing code extracts the
// {code, message} pair with AsError.
package yomerr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code is one of a fixed set of error classifications. New codes are never
// added silently — every caller that switches on Code must be updated.
type Code string

const (
	CodeConfigNotFound       Code = "config_not_found"
	CodeConfigReadFailed     Code = "config_read_failed"
	CodeConfigWriteFailed    Code = "config_write_failed"
	CodeConfigParseFailed    Code = "config_parse_failed"
	CodeSerializationFailed  Code = "serialization_failed"
	CodeInvalidSettingKey    Code = "invalid_setting_key"
	CodeInvalidSettingValue  Code = "invalid_setting_value"
	CodeIOError              Code = "io_error"
	CodeFormatUnsupported    Code = "format_unsupported"
	CodeEmptyArchive         Code = "empty_archive"
	CodeDuplicateEntry       Code = "duplicate_entry"
	CodePageOutOfRange       Code = "page_out_of_range"
	CodeDatabaseNotInit      Code = "database_not_initialized"
	CodeDatabaseConnFailed   Code = "database_connection_failed"
	CodeDatabaseMigration    Code = "database_migration_failed"
	CodeDatabaseQueryFailed  Code = "database_query_failed"
	CodeDuplicateConstraint  Code = "duplicate_constraint"
	CodeNotAuthenticated     Code = "not_authenticated"
	CodeTokenRefreshFailed   Code = "token_refresh_failed"
	CodeSyncTransportFailed  Code = "sync_transport_failed"
	CodeSyncFailed           Code = "sync_failed"
)

// Error is the concrete error type carried across every package boundary.
// It marshals to the wire shape {"code": "...", "message": "..."} expected
// by any caller persisting or displaying it.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is the sentinel for e's Code, so that
// errors.Is(err, yomerr.ErrDuplicateEntry) works even though err is a
// *Error carrying additional context rather than the sentinel itself.
func (e *Error) Is(target error) bool {
	var sentinel *sentinelError
	if errors.As(target, &sentinel) {
		return sentinel.code == e.Code
	}
	return false
}

// MarshalJSON re-implements json.Marshaler explicitly so the cause field
// (an arbitrary error, possibly unmarshalable) never leaks onto the wire.
func (e *Error) MarshalJSON() ([]byte, error) {
	type wire struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	}
	return json.Marshal(wire{Code: e.Code, Message: e.Message})
}

// sentinelError is the comparable value returned by each exported sentinel
// below, so errors.Is can match on Code alone.
type sentinelError struct {
	code Code
}

func (s *sentinelError) Error() string { return string(s.code) }

// New builds an *Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error around a causing error, composing its message
// into Message while preserving cause for errors.Unwrap/errors.As.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinels for errors.Is checks against a bare Code, independent of any
// particular *Error instance's message or cause.
var (
	ErrConfigNotFound      = &sentinelError{CodeConfigNotFound}
	ErrConfigReadFailed    = &sentinelError{CodeConfigReadFailed}
	ErrConfigWriteFailed   = &sentinelError{CodeConfigWriteFailed}
	ErrConfigParseFailed   = &sentinelError{CodeConfigParseFailed}
	ErrSerializationFailed = &sentinelError{CodeSerializationFailed}
	ErrInvalidSettingKey   = &sentinelError{CodeInvalidSettingKey}
	ErrInvalidSettingValue = &sentinelError{CodeInvalidSettingValue}
	ErrIOError             = &sentinelError{CodeIOError}
	ErrFormatUnsupported   = &sentinelError{CodeFormatUnsupported}
	ErrEmptyArchive        = &sentinelError{CodeEmptyArchive}
	ErrDuplicateEntry      = &sentinelError{CodeDuplicateEntry}
	ErrPageOutOfRange      = &sentinelError{CodePageOutOfRange}
	ErrDatabaseNotInit     = &sentinelError{CodeDatabaseNotInit}
	ErrDatabaseConnFailed  = &sentinelError{CodeDatabaseConnFailed}
	ErrDatabaseMigration   = &sentinelError{CodeDatabaseMigration}
	ErrDatabaseQueryFailed = &sentinelError{CodeDatabaseQueryFailed}
	ErrDuplicateConstraint = &sentinelError{CodeDuplicateConstraint}
	ErrNotAuthenticated    = &sentinelError{CodeNotAuthenticated}
	ErrTokenRefreshFailed  = &sentinelError{CodeTokenRefreshFailed}
	ErrSyncTransportFailed = &sentinelError{CodeSyncTransportFailed}
	ErrSyncFailed          = &sentinelError{CodeSyncFailed}
)

// AsError extracts the *Error form of err, if any is present in its chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
