package handlers

import (
	"net/http"

	"talentdesk/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantHandlers handles tenant-related HTTP requests
type TenantHandlers struct {
	tenantService services.TenantService
	logger        *zap.Logger
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(tenantService services.TenantService, logger *zap.Logger) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService, logger: logger}
}

// ListTenants handles getting a list of tenants (platform only)
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	params, err := bindList(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tenants, err := h.tenantService.List(c.Request().Context(), actor, params.Limit, params.Offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   params.Limit,
		"offset":  params.Offset,
	})
}

// CreateTenant handles creating a new tenant (platform only)
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req services.CreateTenantRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	tenant, err := h.tenantService.Create(c.Request().Context(), actor, &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant handles getting tenant details by ID
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tenantID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tenant, err := h.tenantService.GetByID(c.Request().Context(), actor, tenantID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant changes name, cap or active flag.
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tenantID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req services.UpdateTenantRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	req.ID = tenantID

	tenant, err := h.tenantService.Update(c.Request().Context(), actor, &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant removes a tenant and everything it owns.
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tenantID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.tenantService.Delete(c.Request().Context(), actor, tenantID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTenantUsage reports identity quota usage.
func (h *TenantHandlers) GetTenantUsage(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tenantID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	usage, err := h.tenantService.Usage(c.Request().Context(), actor, tenantID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, usage)
}
