package handlers

import (
	"context"
	"net/http"

	"talentdesk/internal/common"
	"talentdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IdentityHandlers handles identity administration.
type IdentityHandlers struct {
	identityService services.IdentityService
	logger          *zap.Logger
}

func NewIdentityHandlers(identityService services.IdentityService, logger *zap.Logger) *IdentityHandlers {
	return &IdentityHandlers{identityService: identityService, logger: logger}
}

// CreateIdentity provisions an identity; tenant admins default to their own tenant.
func (h *IdentityHandlers) CreateIdentity(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req services.ProvisionRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if req.TenantID == nil && !actor.IsPlatform() {
		req.TenantID = actor.TenantID
	}

	identity, err := h.identityService.Create(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, identity)
}

func (h *IdentityHandlers) GetIdentity(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	identity, err := h.identityService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, identity)
}

func (h *IdentityHandlers) ListIdentities(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tenantID, err := optionalQueryUUID(c, "tenant_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	params, err := bindList(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	identities, err := h.identityService.List(c.Request().Context(), actor, tenantID, params.Limit, params.Offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"identities": identities,
		"limit":      params.Limit,
		"offset":     params.Offset,
	})
}

func (h *IdentityHandlers) DeactivateIdentity(c echo.Context) error {
	return h.mutate(c, h.identityService.Deactivate)
}

func (h *IdentityHandlers) ReactivateIdentity(c echo.Context) error {
	return h.mutate(c, h.identityService.Reactivate)
}

func (h *IdentityHandlers) DeleteIdentity(c echo.Context) error {
	return h.mutate(c, h.identityService.Delete)
}

type identityMutation func(ctx context.Context, actor common.Actor, id uuid.UUID) error

func (h *IdentityHandlers) mutate(c echo.Context, fn identityMutation) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := fn(c.Request().Context(), actor, id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
