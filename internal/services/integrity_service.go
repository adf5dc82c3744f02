package services

import (
	"context"

	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"go.uber.org/zap"
)

// IntegrityService reports stored-data invariant violations for operators.
// It never repairs anything.
type IntegrityService interface {
	Scan(ctx context.Context) ([]models.IntegrityViolation, error)
}

type integrityService struct {
	repo   repositories.IntegrityRepository
	logger *zap.Logger
}

func NewIntegrityService(repo repositories.IntegrityRepository, logger *zap.Logger) IntegrityService {
	return &integrityService{repo: repo, logger: logger}
}

func (s *integrityService) Scan(ctx context.Context) ([]models.IntegrityViolation, error) {
	violations, err := s.repo.FindViolations(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range violations {
		s.logger.Error("data integrity violation",
			zap.String("violation", v.Kind),
			zap.String("entity_id", v.EntityID),
			zap.String("detail", v.Detail),
		)
	}
	if len(violations) == 0 {
		s.logger.Debug("integrity scan clean")
	}
	return violations, nil
}
