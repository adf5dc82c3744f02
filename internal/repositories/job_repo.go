package repositories

import (
	"context"
	"errors"
	"fmt"

	"talentdesk/internal/common"
	"talentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Job, error)
	// ReserveApplicationSlot increments application_count iff the job is
	// published, before its deadline and below its cap.
	ReserveApplicationSlot(ctx context.Context, id uuid.UUID) (int, error)
}

type jobRepo struct {
	baseRepo
}

func NewJobRepo(db DB) JobRepository {
	return &jobRepo{baseRepo{db: db}}
}

const jobColumns = `id, tenant_id, title, description, location, status, deadline, max_applications, application_count, created_by, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	job := &models.Job{}
	err := row.Scan(&job.ID, &job.TenantID, &job.Title, &job.Description, &job.Location, &job.Status,
		&job.Deadline, &job.MaxApplications, &job.ApplicationCount, &job.CreatedBy, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, tenant_id, title, description, location, status, deadline, max_applications, application_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.conn(ctx).QueryRow(ctx, query,
		job.ID, job.TenantID, job.Title, job.Description, job.Location, job.Status,
		job.Deadline, job.MaxApplications, job.CreatedBy,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *jobRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Job, error) {
	query := `
		UPDATE jobs SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + jobColumns
	return scanJob(r.conn(ctx).QueryRow(ctx, query, id, status))
}

func (r *jobRepo) ReserveApplicationSlot(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE jobs
		SET application_count = application_count + 1, updated_at = NOW()
		WHERE id = $1
			AND status = 'published'
			AND (deadline IS NULL OR deadline > NOW())
			AND (max_applications IS NULL OR application_count < max_applications)
		RETURNING application_count
	`
	var count int
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return 0, fmt.Errorf("job %s: %w", id, common.ErrJobUnavailable)
}
