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

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)

	// ReserveIdentitySlot increments the identity counter iff the tenant is
	// active and below its cap, in a single statement.
	ReserveIdentitySlot(ctx context.Context, id uuid.UUID) (int, error)
	// ReleaseIdentitySlot decrements the counter clamped at zero. clamped is
	// true when the counter was already zero.
	ReleaseIdentitySlot(ctx context.Context, id uuid.UUID) (count int, clamped bool, err error)
}

type tenantRepo struct {
	baseRepo
}

func NewTenantRepo(db DB) TenantRepository {
	return &tenantRepo{baseRepo{db: db}}
}

const tenantColumns = `id, name, subdomain, max_identities, current_identity_count, is_active, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.MaxIdentities,
		&tenant.CurrentIdentityCount, &tenant.IsActive, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, subdomain, max_identities, current_identity_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, NOW(), NOW())
		ON CONFLICT (subdomain) DO NOTHING
		RETURNING current_identity_count, created_at, updated_at
	`
	err := r.conn(ctx).QueryRow(ctx, query, tenant.ID, tenant.Name, tenant.Subdomain, tenant.MaxIdentities, tenant.IsActive).
		Scan(&tenant.CurrentIdentityCount, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("subdomain %q: %w", tenant.Subdomain, common.ErrAlreadyExists)
	}
	return err
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *tenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1`
	return scanTenant(r.conn(ctx).QueryRow(ctx, query, subdomain))
}

// Update changes name, cap and active flag. The counter is never written here.
func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, max_identities = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING current_identity_count, updated_at
	`
	err := r.conn(ctx).QueryRow(ctx, query, tenant.ID, tenant.Name, tenant.MaxIdentities, tenant.IsActive).
		Scan(&tenant.CurrentIdentityCount, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	return err
}

// Delete removes the tenant and everything it owns. Callers run it inside a
// transaction.
func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	statements := []string{
		`DELETE FROM application_note_edits WHERE note_id IN (
			SELECT n.id FROM application_notes n
			JOIN applications a ON a.id = n.application_id
			JOIN jobs j ON j.id = a.job_id
			WHERE j.tenant_id = $1)`,
		`DELETE FROM application_notes WHERE application_id IN (
			SELECT a.id FROM applications a JOIN jobs j ON j.id = a.job_id WHERE j.tenant_id = $1)`,
		`DELETE FROM application_logs WHERE application_id IN (
			SELECT a.id FROM applications a JOIN jobs j ON j.id = a.job_id WHERE j.tenant_id = $1)`,
		`DELETE FROM applications WHERE job_id IN (SELECT id FROM jobs WHERE tenant_id = $1)`,
		`DELETE FROM guest_applications WHERE job_id IN (SELECT id FROM jobs WHERE tenant_id = $1)`,
		`DELETE FROM jobs WHERE tenant_id = $1`,
		`DELETE FROM identities WHERE tenant_id = $1`,
	}
	conn := r.conn(ctx)
	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete tenant data: %w", err)
		}
	}

	tag, err := conn.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []*models.Tenant{}
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (r *tenantRepo) ReserveIdentitySlot(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE tenants
		SET current_identity_count = current_identity_count + 1, updated_at = NOW()
		WHERE id = $1 AND is_active AND current_identity_count < max_identities
		RETURNING current_identity_count
	`
	var count int
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// No row updated: tell a missing or inactive tenant apart from a full one.
	var active bool
	err = r.conn(ctx).QueryRow(ctx, `SELECT is_active FROM tenants WHERE id = $1`, id).Scan(&active)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("tenant %s: %w", id, common.ErrNotFound)
	case err != nil:
		return 0, err
	case !active:
		return 0, fmt.Errorf("tenant %s is inactive: %w", id, common.ErrForbidden)
	}
	return 0, fmt.Errorf("tenant %s: %w", id, common.ErrQuotaExceeded)
}

func (r *tenantRepo) ReleaseIdentitySlot(ctx context.Context, id uuid.UUID) (int, bool, error) {
	query := `
		WITH prev AS (
			SELECT current_identity_count FROM tenants WHERE id = $1 FOR UPDATE
		)
		UPDATE tenants t
		SET current_identity_count = GREATEST(t.current_identity_count - 1, 0), updated_at = NOW()
		FROM prev
		WHERE t.id = $1
		RETURNING t.current_identity_count, prev.current_identity_count
	`
	var count, previous int
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(&count, &previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("tenant %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return 0, false, err
	}
	return count, previous == 0, nil
}
