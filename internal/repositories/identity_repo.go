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

type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	// GetByEmail looks the email up in the scope of tenantID; nil means the
	// platform scope.
	GetByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (*models.Identity, error)
	ExistsByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (bool, error)
	List(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Identity, error)
	// SetActive flips is_active and reports whether the row changed.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type identityRepo struct {
	baseRepo
}

func NewIdentityRepo(db DB) IdentityRepository {
	return &identityRepo{baseRepo{db: db}}
}

const identityColumns = `id, tenant_id, role, email, password_hash, first_name, last_name, phone, is_active, created_by, created_at, updated_at`

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	identity := &models.Identity{}
	err := row.Scan(&identity.ID, &identity.TenantID, &identity.Role, &identity.Email, &identity.PasswordHash,
		&identity.FirstName, &identity.LastName, &identity.Phone, &identity.IsActive, &identity.CreatedBy,
		&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return identity, nil
}

// Create inserts the identity. Losing a race on the email unique index is
// reported as ErrDuplicateIdentity.
func (r *identityRepo) Create(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (id, tenant_id, role, email, password_hash, first_name, last_name, phone, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at
	`
	err := r.conn(ctx).QueryRow(ctx, query,
		identity.ID, identity.TenantID, identity.Role, identity.Email, identity.PasswordHash,
		identity.FirstName, identity.LastName, identity.Phone, identity.IsActive, identity.CreatedBy,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", identity.Email, common.ErrDuplicateIdentity)
	}
	return err
}

func (r *identityRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *identityRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1 FOR UPDATE`
	return scanIdentity(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *identityRepo) GetByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (*models.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE tenant_id IS NOT DISTINCT FROM $1 AND lower(email) = lower($2)
	`
	return scanIdentity(r.conn(ctx).QueryRow(ctx, query, tenantID, email))
}

func (r *identityRepo) ExistsByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM identities
			WHERE tenant_id IS NOT DISTINCT FROM $1 AND lower(email) = lower($2)
		)
	`
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, query, tenantID, email).Scan(&exists)
	return exists, err
}

func (r *identityRepo) List(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE tenant_id IS NOT DISTINCT FROM $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identities := []*models.Identity{}
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

func (r *identityRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	query := `
		UPDATE identities
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1 AND is_active <> $2
	`
	tag, err := r.conn(ctx).Exec(ctx, query, id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *identityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return common.NewValidationError("identity", "has applications on record; deactivate it instead")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
