package handlers

import (
	"net/http"

	"talentdesk/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JobHandlers handles job postings.
type JobHandlers struct {
	jobService services.JobService
	logger     *zap.Logger
}

func NewJobHandlers(jobService services.JobService, logger *zap.Logger) *JobHandlers {
	return &JobHandlers{jobService: jobService, logger: logger}
}

func (h *JobHandlers) CreateJob(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req services.CreateJobRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	job, err := h.jobService.Create(c.Request().Context(), actor, &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, job)
}

func (h *JobHandlers) GetJob(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	job, err := h.jobService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, job)
}

// GetPublicJob serves a published job to unauthenticated applicants.
func (h *JobHandlers) GetPublicJob(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	job, err := h.jobService.GetPublished(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, job)
}

func (h *JobHandlers) ListJobs(c echo.Context) error {
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

	jobs, err := h.jobService.List(c.Request().Context(), actor, tenantID, params.Limit, params.Offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (h *JobHandlers) PublishJob(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	job, err := h.jobService.Publish(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, job)
}

func (h *JobHandlers) CloseJob(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	job, err := h.jobService.Close(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, job)
}
