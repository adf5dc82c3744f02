package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ActorKey contextKey = "actor"
)

// Roles known to the platform.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleRecruiter  = "recruiter"
	RoleEmployee   = "employee"
	RoleCandidate  = "candidate"
)

// Actor is the authenticated principal behind a request, decoded from a
// verified bearer token.
type Actor struct {
	IdentityID uuid.UUID
	Role       string
	TenantID   *uuid.UUID
}

// IsPlatform reports whether the actor is a tenant-less platform operator.
func (a Actor) IsPlatform() bool {
	return a.Role == RoleSuperAdmin && a.TenantID == nil
}

// IsStaff reports whether the actor may review applications.
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleSuperAdmin, RoleAdmin, RoleRecruiter, RoleEmployee:
		return true
	}
	return false
}

// CanAccessTenant reports whether the actor may act on resources of tenantID.
func (a Actor) CanAccessTenant(tenantID uuid.UUID) bool {
	if a.IsPlatform() {
		return true
	}
	return a.TenantID != nil && *a.TenantID == tenantID
}

// AuthorizeTenant returns ErrForbidden for cross-tenant access attempts.
func (a Actor) AuthorizeTenant(tenantID uuid.UUID) error {
	if !a.CanAccessTenant(tenantID) {
		return fmt.Errorf("tenant %s: %w", tenantID, ErrForbidden)
	}
	return nil
}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActorFromContext extracts the actor from the request context
func GetActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(Actor)
	return actor, ok
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendError maps err onto the error envelope. Store-level failures are
// reported as an opaque server error; the caller is expected to have logged them.
func SendError(c echo.Context, err error) error {
	status, code, domain := ClassifyError(err)
	if !domain {
		return c.JSON(status, CreateErrorResponse(code, "operation could not be completed", nil))
	}

	var details map[string]string
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		details = map[string]string{verr.Field: verr.Message}
	}
	return c.JSON(status, CreateErrorResponse(code, err.Error(), details))
}

// ValidateUUID parses a path or body identifier.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, NewValidationError(fieldName, "is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, NewValidationError(fieldName, "must be a valid UUID")
	}
	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(fieldName, "is required")
	}
	return nil
}

// ValidateMaxLength rejects values longer than maxLength bytes.
func ValidateMaxLength(value, fieldName string, maxLength int) error {
	if len(value) > maxLength {
		return NewValidationError(fieldName, fmt.Sprintf("cannot exceed %d characters", maxLength))
	}
	return nil
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", NewValidationError("email", "is not a valid address")
	}
	return email, nil
}

// ValidatePaginationParams clamps pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
