package handlers

import (
	"fmt"
	"net/http"

	"talentdesk/internal/common"
	"talentdesk/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GuestHandlers serves the unauthenticated applicant surface. The tracking
// token in the path is a bearer capability and must never be logged.
type GuestHandlers struct {
	applicationService services.ApplicationService
	conversionService  services.ConversionService
	resumes            services.ResumeStore
	logger             *zap.Logger
}

// NewGuestHandlers wires the guest endpoints. resumes may be nil when object
// storage is not configured.
func NewGuestHandlers(applicationService services.ApplicationService, conversionService services.ConversionService,
	resumes services.ResumeStore, logger *zap.Logger) *GuestHandlers {
	return &GuestHandlers{
		applicationService: applicationService,
		conversionService:  conversionService,
		resumes:            resumes,
		logger:             logger,
	}
}

// ConvertRequest sets the password of the account created from a guest application.
type ConvertRequest struct {
	Password string `json:"password"`
}

func (h *GuestHandlers) SubmitGuestApplication(c echo.Context) error {
	jobID, err := pathUUID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var payload services.GuestPayload
	if err := bindBody(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.applicationService.SubmitGuest(c.Request().Context(), jobID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, submission)
}

func (h *GuestHandlers) TrackGuestApplication(c echo.Context) error {
	tracking, err := h.applicationService.TrackGuest(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tracking)
}

func (h *GuestHandlers) ConvertGuestApplication(c echo.Context) error {
	var req ConvertRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.conversionService.Convert(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// UploadResume stores a multipart "file" and returns the object key to
// reference from an application.
func (h *GuestHandlers) UploadResume(c echo.Context) error {
	if h.resumes == nil {
		return c.JSON(http.StatusServiceUnavailable,
			common.CreateErrorResponse("STORAGE_UNAVAILABLE", "resume storage is not configured", nil))
	}

	header, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "a multipart file field is required")
	}
	file, err := header.Open()
	if err != nil {
		return respondError(c, h.logger, fmt.Errorf("open uploaded resume: %w", err))
	}
	defer file.Close()

	key, err := h.resumes.Upload(c.Request().Context(), header.Header.Get(echo.HeaderContentType), file, header.Size)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"resume_object_key": key})
}
