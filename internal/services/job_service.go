package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobService interface {
	Create(ctx context.Context, actor common.Actor, req *CreateJobRequest) (*models.Job, error)
	Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Job, error)
	// GetPublished is the unauthenticated view used by guest applicants.
	GetPublished(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, actor common.Actor, tenantID *uuid.UUID, limit, offset int) ([]*models.Job, error)
	Publish(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Job, error)
	Close(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Job, error)
}

type CreateJobRequest struct {
	TenantID        *uuid.UUID `json:"tenant_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	Deadline        *time.Time `json:"deadline"`
	MaxApplications *int       `json:"max_applications"`
}

type jobService struct {
	jobRepo repositories.JobRepository
	logger  *zap.Logger
}

func NewJobService(jobRepo repositories.JobRepository, logger *zap.Logger) JobService {
	return &jobService{jobRepo: jobRepo, logger: logger}
}

func canManageJobs(actor common.Actor) bool {
	switch actor.Role {
	case common.RoleSuperAdmin, common.RoleAdmin, common.RoleRecruiter:
		return true
	}
	return false
}

func (s *jobService) Create(ctx context.Context, actor common.Actor, req *CreateJobRequest) (*models.Job, error) {
	if !canManageJobs(actor) {
		return nil, common.ErrForbidden
	}

	tenantID := req.TenantID
	if tenantID == nil {
		tenantID = actor.TenantID
	}
	if tenantID == nil {
		return nil, common.NewValidationError("tenant_id", "is required")
	}
	if err := actor.AuthorizeTenant(*tenantID); err != nil {
		return nil, err
	}

	if err := common.ValidateRequiredString(req.Title, "title"); err != nil {
		return nil, err
	}
	if err := common.ValidateMaxLength(req.Title, "title", 200); err != nil {
		return nil, err
	}
	if req.Deadline != nil && !req.Deadline.After(time.Now()) {
		return nil, common.NewValidationError("deadline", "must be in the future")
	}
	if req.MaxApplications != nil && *req.MaxApplications < 1 {
		return nil, common.NewValidationError("max_applications", "must be at least 1")
	}

	job := &models.Job{
		ID:              uuid.New(),
		TenantID:        *tenantID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Location:        strings.TrimSpace(req.Location),
		Status:          models.JobStatusDraft,
		Deadline:        req.Deadline,
		MaxApplications: req.MaxApplications,
		CreatedBy:       actor.IdentityID,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("job created", zap.String("job_id", job.ID.String()), zap.String("tenant_id", job.TenantID.String()))
	return job, nil
}

func (s *jobService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.AuthorizeTenant(job.TenantID); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *jobService) GetPublished(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusPublished {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return job, nil
}

func (s *jobService) List(ctx context.Context, actor common.Actor, tenantID *uuid.UUID, limit, offset int) ([]*models.Job, error) {
	if tenantID == nil {
		tenantID = actor.TenantID
	}
	if tenantID == nil {
		return nil, common.NewValidationError("tenant_id", "is required")
	}
	if err := actor.AuthorizeTenant(*tenantID); err != nil {
		return nil, err
	}
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.jobRepo.List(ctx, *tenantID, limit, offset)
}

func (s *jobService) Publish(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Job, error) {
	return s.setStatus(ctx, actor, id, models.JobStatusPublished)
}

func (s *jobService) Close(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Job, error) {
	return s.setStatus(ctx, actor, id, models.JobStatusClosed)
}

func (s *jobService) setStatus(ctx context.Context, actor common.Actor, id uuid.UUID, status string) (*models.Job, error) {
	if !canManageJobs(actor) {
		return nil, common.ErrForbidden
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.AuthorizeTenant(job.TenantID); err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusClosed && status == models.JobStatusPublished {
		return nil, common.NewValidationError("status", "a closed job cannot be published again")
	}
	if job.Status == status {
		return job, nil
	}

	job, err = s.jobRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job status changed", zap.String("job_id", id.String()), zap.String("status", status))
	return job, nil
}
