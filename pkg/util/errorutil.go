package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Retryable  bool
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewIllegalTransition flags a (status, actor, action) triple with no entry in
// the legal-transition table.
func NewIllegalTransition(message string, details map[string]any) error {
	return NewDomainError("ILLEGAL_TRANSITION", message, http.StatusConflict, details)
}

// NewMissingRequiredField flags an action whose required payload is absent.
func NewMissingRequiredField(field string) error {
	return NewDomainError("MISSING_REQUIRED_FIELD", fmt.Sprintf("required field %s missing", field),
		http.StatusBadRequest, map[string]any{"field": field})
}

// NewSchemaViolation flags a job payload that failed schema validation.
// Permanent: the job can never succeed without a code or data fix.
func NewSchemaViolation(kind string, details map[string]any) error {
	return &DomainError{
		Code:       "SCHEMA_VIOLATION",
		Message:    fmt.Sprintf("payload for job kind %s violates schema", kind),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// NewUnknownJobKind flags a job kind with no registered handler. Permanent.
func NewUnknownJobKind(kind string) error {
	return &DomainError{
		Code:       "UNKNOWN_JOB_KIND",
		Message:    fmt.Sprintf("no handler registered for job kind %s", kind),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewLockTimeout flags a row-lock acquisition timeout. Transient: the caller
// may retry the whole unit of work.
func NewLockTimeout(resource string, err error) error {
	return &DomainError{
		Code:       "LOCK_TIMEOUT",
		Message:    fmt.Sprintf("timed out locking %s", resource),
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  true,
		Err:        err,
	}
}

// NewTransientSendFailure flags a sender failure the pipeline should retry.
func NewTransientSendFailure(channel string, err error) error {
	return &DomainError{
		Code:       "TRANSIENT_SEND_FAILURE",
		Message:    fmt.Sprintf("%s delivery failed", channel),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsPermanent reports whether the error must never be retried by the job
// dispatch pipeline.
func IsPermanent(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case "SCHEMA_VIOLATION", "UNKNOWN_JOB_KIND":
			return true
		}
	}
	return false
}

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

const pgLockNotAvailable = "55P03"

// ToDomainError converts generic errors to DomainError. pgx sentinel and
// lock-timeout errors map to the matching taxonomy kinds.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return NewLockTimeout("row", err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
