package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"talentdesk/internal/common"
	"talentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type GuestApplicationRepository interface {
	Create(ctx context.Context, guest *models.GuestApplication) error
	GetByToken(ctx context.Context, token string) (*models.GuestApplication, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*models.GuestApplication, error)
	// MarkConverted sets the converted flag once. A second call fails with
	// ErrAlreadyConverted.
	MarkConverted(ctx context.Context, id, identityID uuid.UUID) error
}

type guestApplicationRepo struct {
	baseRepo
}

func NewGuestApplicationRepo(db DB) GuestApplicationRepository {
	return &guestApplicationRepo{baseRepo{db: db}}
}

const guestColumns = `id, job_id, candidate_info, tracking_token, converted_to_user, converted_user_id, converted_at, created_at`

func scanGuest(row pgx.Row) (*models.GuestApplication, error) {
	guest := &models.GuestApplication{}
	var info []byte
	err := row.Scan(&guest.ID, &guest.JobID, &info, &guest.TrackingToken, &guest.ConvertedToUser,
		&guest.ConvertedUserID, &guest.ConvertedAt, &guest.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(info, &guest.CandidateInfo); err != nil {
		return nil, fmt.Errorf("decode candidate info of guest application %s: %w", guest.ID, err)
	}
	return guest, nil
}

// Create inserts the guest record. A second guest submission for the same
// (job, email) is reported as ErrDuplicateApplication.
func (r *guestApplicationRepo) Create(ctx context.Context, guest *models.GuestApplication) error {
	info, err := json.Marshal(guest.CandidateInfo)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO guest_applications (id, job_id, candidate_info, email, tracking_token, converted_to_user, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`
	err = r.conn(ctx).QueryRow(ctx, query, guest.ID, guest.JobID, info, guest.CandidateInfo.Email, guest.TrackingToken).
		Scan(&guest.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return fmt.Errorf("guest application for job %s: %w", guest.JobID, common.ErrDuplicateApplication)
	}
	return err
}

func (r *guestApplicationRepo) GetByToken(ctx context.Context, token string) (*models.GuestApplication, error) {
	query := `SELECT ` + guestColumns + ` FROM guest_applications WHERE tracking_token = $1`
	return scanGuest(r.conn(ctx).QueryRow(ctx, query, token))
}

func (r *guestApplicationRepo) GetByTokenForUpdate(ctx context.Context, token string) (*models.GuestApplication, error) {
	query := `SELECT ` + guestColumns + ` FROM guest_applications WHERE tracking_token = $1 FOR UPDATE`
	return scanGuest(r.conn(ctx).QueryRow(ctx, query, token))
}

func (r *guestApplicationRepo) MarkConverted(ctx context.Context, id, identityID uuid.UUID) error {
	query := `
		UPDATE guest_applications
		SET converted_to_user = TRUE, converted_user_id = $2, converted_at = NOW()
		WHERE id = $1 AND NOT converted_to_user
	`
	tag, err := r.conn(ctx).Exec(ctx, query, id, identityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("guest application %s: %w", id, common.ErrAlreadyConverted)
	}
	return nil
}
