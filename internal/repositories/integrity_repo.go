package repositories

import (
	"context"
	"fmt"

	"talentdesk/internal/models"
)

// IntegrityRepository runs read-only consistency checks over stored data.
type IntegrityRepository interface {
	FindViolations(ctx context.Context) ([]models.IntegrityViolation, error)
}

type integrityRepo struct {
	baseRepo
}

func NewIntegrityRepo(db DB) IntegrityRepository {
	return &integrityRepo{baseRepo{db: db}}
}

type integrityCheck struct {
	kind  string
	query string
}

// Each query yields (entity id, detail).
var integrityChecks = []integrityCheck{
	{
		kind: models.ViolationCounterOutOfRange,
		query: `
			SELECT id::text, format('count=%s max=%s', current_identity_count, max_identities)
			FROM tenants
			WHERE current_identity_count < 0 OR max_identities < 0`,
	},
	{
		kind: models.ViolationCounterMismatch,
		query: `
			SELECT t.id::text, format('count=%s active=%s', t.current_identity_count, COUNT(i.id))
			FROM tenants t
			LEFT JOIN identities i ON i.tenant_id = t.id AND i.is_active
			GROUP BY t.id
			HAVING t.current_identity_count <> COUNT(i.id)`,
	},
	{
		kind: models.ViolationOrphanGuest,
		query: `
			SELECT g.id::text, format('job=%s', g.job_id)
			FROM guest_applications g
			WHERE NOT g.converted_to_user
				AND NOT EXISTS (SELECT 1 FROM applications a WHERE a.guest_application_id = g.id)`,
	},
	{
		kind: models.ViolationApplicantRef,
		query: `
			SELECT id::text, format('candidate=%s guest=%s is_guest=%s', candidate_id, guest_application_id, is_guest_application)
			FROM applications
			WHERE (candidate_id IS NULL) = (guest_application_id IS NULL)
				OR is_guest_application <> (guest_application_id IS NOT NULL)`,
	},
	{
		kind: models.ViolationHalfConverted,
		query: `
			SELECT g.id::text, format('converted_user=%s application=%s', g.converted_user_id, a.id)
			FROM guest_applications g
			JOIN applications a ON a.guest_application_id = g.id
			WHERE g.converted_to_user`,
	},
}

func (r *integrityRepo) FindViolations(ctx context.Context) ([]models.IntegrityViolation, error) {
	violations := []models.IntegrityViolation{}
	for _, check := range integrityChecks {
		found, err := r.runCheck(ctx, check)
		if err != nil {
			return nil, fmt.Errorf("integrity check %s: %w", check.kind, err)
		}
		violations = append(violations, found...)
	}
	return violations, nil
}

func (r *integrityRepo) runCheck(ctx context.Context, check integrityCheck) ([]models.IntegrityViolation, error) {
	rows, err := r.conn(ctx).Query(ctx, check.query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []models.IntegrityViolation
	for rows.Next() {
		v := models.IntegrityViolation{Kind: check.kind}
		if err := rows.Scan(&v.EntityID, &v.Detail); err != nil {
			return nil, err
		}
		found = append(found, v)
	}
	return found, rows.Err()
}
