package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors. Services wrap these with context; handlers match them with errors.Is.
var (
	ErrQuotaExceeded        = errors.New("identity quota exceeded")
	ErrDuplicateIdentity    = errors.New("identity already exists")
	ErrDuplicateApplication = errors.New("application already exists")
	ErrJobUnavailable       = errors.New("job is not accepting applications")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyConverted     = errors.New("guest application already converted")
	ErrAlreadyExists        = errors.New("already exists")
	ErrForbidden            = errors.New("forbidden")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")

	// ErrIntegrity marks a detected invariant violation in stored data. It needs
	// operator attention and is never repaired on read.
	ErrIntegrity = errors.New("data integrity violation")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a *ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: ErrAlreadyConverted must be matched before the generic ones.
var errorMappings = []errorMapping{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrQuotaExceeded, http.StatusConflict, "QUOTA_EXCEEDED"},
	{ErrDuplicateIdentity, http.StatusConflict, "DUPLICATE_IDENTITY"},
	{ErrDuplicateApplication, http.StatusConflict, "DUPLICATE_APPLICATION"},
	{ErrAlreadyConverted, http.StatusConflict, "ALREADY_CONVERTED"},
	{ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
	{ErrJobUnavailable, http.StatusUnprocessableEntity, "JOB_UNAVAILABLE"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
}

// ClassifyError returns the HTTP status and error code for err. Anything that
// is not a domain error is reported as an opaque server error.
func ClassifyError(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, "SERVER_ERROR", false
}
