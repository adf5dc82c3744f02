package handlers

import (
	"net/http"

	"talentdesk/internal/models"
	"talentdesk/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ApplicationHandlers serves the registered application track and the
// reviewer workflow on top of it.
type ApplicationHandlers struct {
	applicationService services.ApplicationService
	statusService      services.StatusService
	logger             *zap.Logger
}

func NewApplicationHandlers(applicationService services.ApplicationService, statusService services.StatusService,
	logger *zap.Logger) *ApplicationHandlers {
	return &ApplicationHandlers{
		applicationService: applicationService,
		statusService:      statusService,
		logger:             logger,
	}
}

// StatusChangeRequest moves an application to a new status.
type StatusChangeRequest struct {
	Status models.ApplicationStatus `json:"status"`
	Note   *string                  `json:"note"`
}

// NoteRequest carries the text of a new or edited note.
type NoteRequest struct {
	Text string `json:"text"`
}

// SubmitApplication applies the signed-in candidate to a job.
func (h *ApplicationHandlers) SubmitApplication(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	jobID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var payload services.SubmissionPayload
	if err := bindBody(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	application, err := h.applicationService.SubmitRegistered(c.Request().Context(), actor, jobID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, application)
}

func (h *ApplicationHandlers) GetApplication(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	application, err := h.applicationService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, application)
}

func (h *ApplicationHandlers) ListJobApplications(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	jobID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	params, err := bindList(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	applications, err := h.applicationService.ListByJob(c.Request().Context(), actor, jobID, params.Limit, params.Offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"applications": applications,
		"limit":        params.Limit,
		"offset":       params.Offset,
	})
}

func (h *ApplicationHandlers) TransitionStatus(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req StatusChangeRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	entry, err := h.statusService.Transition(c.Request().Context(), actor, id, req.Status, req.Note)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *ApplicationHandlers) AddNote(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req NoteRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	note, err := h.statusService.AddNote(c.Request().Context(), actor, id, req.Text)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, note)
}

// EditNote replaces the text of the note at the 0-based :index.
func (h *ApplicationHandlers) EditNote(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	index, err := pathIndex(c, "index")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req NoteRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	note, err := h.statusService.EditNote(c.Request().Context(), actor, id, index, req.Text)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, note)
}

// GetResumeURL returns a short-lived download link for the attached résumé.
func (h *ApplicationHandlers) GetResumeURL(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	url, err := h.applicationService.ResumeURL(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
