package services

import (
	"context"

	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaService gates identity creation by the tenant's identity cap. The
// counter lives in the database and is only changed by single conditional
// statements, so any number of replicas may call it concurrently.
type QuotaService interface {
	ReserveSlot(ctx context.Context, tenantID uuid.UUID) (int, error)
	ReleaseSlot(ctx context.Context, tenantID uuid.UUID) (int, error)
	Usage(ctx context.Context, tenantID uuid.UUID) (*models.QuotaUsage, error)
}

type quotaService struct {
	tenantRepo repositories.TenantRepository
	logger     *zap.Logger
}

func NewQuotaService(tenantRepo repositories.TenantRepository, logger *zap.Logger) QuotaService {
	return &quotaService{tenantRepo: tenantRepo, logger: logger}
}

func (s *quotaService) ReserveSlot(ctx context.Context, tenantID uuid.UUID) (int, error) {
	count, err := s.tenantRepo.ReserveIdentitySlot(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("identity slot reserved", zap.String("tenant_id", tenantID.String()), zap.Int("count", count))
	return count, nil
}

// ReleaseSlot returns one slot. Releasing from an empty counter is left at
// zero and reported as an integrity problem.
func (s *quotaService) ReleaseSlot(ctx context.Context, tenantID uuid.UUID) (int, error) {
	count, clamped, err := s.tenantRepo.ReleaseIdentitySlot(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if clamped {
		s.logger.Error("identity slot released from empty counter",
			zap.String("tenant_id", tenantID.String()),
			zap.String("violation", models.ViolationCounterMismatch),
		)
	}
	return count, nil
}

func (s *quotaService) Usage(ctx context.Context, tenantID uuid.UUID) (*models.QuotaUsage, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	usage := tenant.Usage()
	return &usage, nil
}
