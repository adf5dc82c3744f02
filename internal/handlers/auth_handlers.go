package handlers

import (
	"errors"
	"net/http"
	"strings"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService     services.AuthService
	identityService services.IdentityService
	tenantService   services.TenantService
	logger          *zap.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, identityService services.IdentityService,
	tenantService services.TenantService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService:     authService,
		identityService: identityService,
		tenantService:   tenantService,
		logger:          logger,
	}
}

// LoginResponse represents the login response
type LoginResponse struct {
	models.TokenResponse
	Identity *models.Identity `json:"identity"`
}

// LoginRequest represents the login request payload. An empty subdomain
// signs in a platform operator.
type LoginRequest struct {
	Subdomain string `json:"subdomain"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterRequest is a candidate self-registration under a tenant.
type RegisterRequest struct {
	Subdomain string `json:"subdomain"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// resolveTenant maps a login subdomain to a tenant. Unknown subdomains are
// reported as bad credentials so tenants cannot be enumerated.
func (h *AuthHandlers) resolveTenant(c echo.Context, subdomain string) (*uuid.UUID, error) {
	if strings.TrimSpace(subdomain) == "" {
		return nil, nil
	}
	tenant, err := h.tenantService.GetBySubdomain(c.Request().Context(), subdomain)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, common.ErrForbidden
	}
	return &tenant.ID, nil
}

// Login handles identity login with email and password
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()
	var req LoginRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "email", "email and password are required")
	}

	tenantID, err := h.resolveTenant(c, req.Subdomain)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	identity, err := h.identityService.Authenticate(ctx, tenantID, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tokens, err := h.authService.GenerateTokens(ctx, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.logger.Info("identity signed in", zap.String("identity_id", identity.ID.String()), zap.String("role", identity.Role))
	return c.JSON(http.StatusOK, LoginResponse{TokenResponse: *tokens, Identity: identity})
}

// Register creates a candidate account and signs it in.
func (h *AuthHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()
	var req RegisterRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if strings.TrimSpace(req.Subdomain) == "" {
		return common.SendValidationError(c, "subdomain", "is required")
	}

	tenantID, err := h.resolveTenant(c, req.Subdomain)
	if errors.Is(err, common.ErrInvalidCredentials) {
		return respondError(c, h.logger, common.NewValidationError("subdomain", "does not name a tenant"))
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}

	identity, err := h.identityService.Provision(ctx, services.ProvisionRequest{
		TenantID:  tenantID,
		Role:      common.RoleCandidate,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tokens, err := h.authService.GenerateTokens(ctx, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, LoginResponse{TokenResponse: *tokens, Identity: identity})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req models.RefreshTokenRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if req.RefreshToken == "" {
		return common.SendValidationError(c, "refresh_token", "is required")
	}

	tokens, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes the presented access token and, when given, the refresh token.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	var req models.LogoutRequest
	if c.Request().ContentLength > 0 {
		if err := bindBody(c, &req); err != nil {
			return respondError(c, h.logger, err)
		}
	}

	accessToken := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if err := h.authService.RevokeToken(ctx, accessToken, nil); err != nil {
		return respondError(c, h.logger, err)
	}
	if req.RefreshToken != "" {
		hint := "refresh_token"
		if err := h.authService.RevokeToken(ctx, req.RefreshToken, &hint); err != nil {
			return respondError(c, h.logger, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated identity.
func (h *AuthHandlers) Me(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	identity, err := h.identityService.Get(c.Request().Context(), actor, actor.IdentityID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, identity)
}
