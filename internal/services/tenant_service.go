package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"talentdesk/internal/caching"
	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TenantService interface {
	Create(ctx context.Context, actor common.Actor, req *CreateTenantRequest) (*models.Tenant, error)
	GetByID(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Tenant, error)
	// GetBySubdomain resolves a tenant for unauthenticated login and
	// registration.
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	Update(ctx context.Context, actor common.Actor, req *UpdateTenantRequest) (*models.Tenant, error)
	Deactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	List(ctx context.Context, actor common.Actor, limit, offset int) ([]*models.Tenant, error)
	Usage(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.QuotaUsage, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	quota      QuotaService
	tx         repositories.Transactor
	cache      caching.CacheService
	logger     *zap.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, quota QuotaService, tx repositories.Transactor,
	cache caching.CacheService, logger *zap.Logger) TenantService {
	return &tenantService{tenantRepo: tenantRepo, quota: quota, tx: tx, cache: cache, logger: logger}
}

const tenantCacheTTL = time.Minute

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

type CreateTenantRequest struct {
	Name          string `json:"name"`
	Subdomain     string `json:"subdomain"`
	MaxIdentities int    `json:"max_identities"`
}

type UpdateTenantRequest struct {
	ID            uuid.UUID `json:"-"`
	Name          *string   `json:"name"`
	MaxIdentities *int      `json:"max_identities"`
	IsActive      *bool     `json:"is_active"`
}

func (s *tenantService) Create(ctx context.Context, actor common.Actor, req *CreateTenantRequest) (*models.Tenant, error) {
	if !actor.IsPlatform() {
		return nil, common.ErrForbidden
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return nil, err
	}
	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if !subdomainPattern.MatchString(subdomain) {
		return nil, common.NewValidationError("subdomain", "must be lowercase letters, digits and hyphens")
	}
	if req.MaxIdentities < 1 {
		return nil, common.NewValidationError("max_identities", "must be at least 1")
	}

	tenant := &models.Tenant{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Subdomain:     subdomain,
		MaxIdentities: req.MaxIdentities,
		IsActive:      true,
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("tenant created", zap.String("tenant_id", tenant.ID.String()), zap.String("subdomain", subdomain))
	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Tenant, error) {
	if err := actor.AuthorizeTenant(id); err != nil {
		return nil, err
	}
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, common.NewValidationError("subdomain", "is required")
	}

	if cached, err := s.cache.GetTenantBySubdomain(ctx, subdomain); err != nil {
		s.logger.Warn("tenant cache read failed", zap.String("subdomain", subdomain), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	tenant, err := s.tenantRepo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetTenant(ctx, tenant, tenantCacheTTL); err != nil {
		s.logger.Warn("tenant cache write failed", zap.String("subdomain", subdomain), zap.Error(err))
	}
	return tenant, nil
}

// Update changes tenant settings. Tenant admins may rename their own tenant;
// the cap and the active flag are platform decisions. Lowering the cap below
// current usage is accepted and only blocks new reservations.
func (s *tenantService) Update(ctx context.Context, actor common.Actor, req *UpdateTenantRequest) (*models.Tenant, error) {
	if err := actor.AuthorizeTenant(req.ID); err != nil {
		return nil, err
	}
	if !actor.IsPlatform() && (actor.Role != common.RoleAdmin || req.MaxIdentities != nil || req.IsActive != nil) {
		return nil, common.ErrForbidden
	}

	tenant, err := s.tenantRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := common.ValidateRequiredString(*req.Name, "name"); err != nil {
			return nil, err
		}
		tenant.Name = strings.TrimSpace(*req.Name)
	}
	if req.MaxIdentities != nil {
		if *req.MaxIdentities < 0 {
			return nil, common.NewValidationError("max_identities", "cannot be negative")
		}
		tenant.MaxIdentities = *req.MaxIdentities
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)

	if tenant.CurrentIdentityCount > tenant.MaxIdentities {
		s.logger.Info("tenant cap lowered below current usage",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Int("max_identities", tenant.MaxIdentities),
			zap.Int("current_identity_count", tenant.CurrentIdentityCount),
		)
	}
	return tenant, nil
}

func (s *tenantService) Deactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, actor, &UpdateTenantRequest{ID: id, IsActive: &inactive})
	return err
}

// Delete removes the tenant with all of its jobs, applications and identities
// in one transaction.
func (s *tenantService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if !actor.IsPlatform() {
		return common.ErrForbidden
	}

	var tenant *models.Tenant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if tenant, err = s.tenantRepo.GetByID(ctx, id); err != nil {
			return err
		}
		return s.tenantRepo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}

	s.invalidate(ctx, tenant)
	s.logger.Info("tenant deleted", zap.String("tenant_id", id.String()), zap.String("subdomain", tenant.Subdomain))
	return nil
}

func (s *tenantService) List(ctx context.Context, actor common.Actor, limit, offset int) ([]*models.Tenant, error) {
	if !actor.IsPlatform() {
		return nil, common.ErrForbidden
	}
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.tenantRepo.List(ctx, limit, offset)
}

func (s *tenantService) Usage(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.QuotaUsage, error) {
	if err := actor.AuthorizeTenant(id); err != nil {
		return nil, err
	}
	return s.quota.Usage(ctx, id)
}

func (s *tenantService) invalidate(ctx context.Context, tenant *models.Tenant) {
	if err := s.cache.DeleteTenant(ctx, tenant); err != nil {
		s.logger.Warn("tenant cache invalidation failed", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
	}
}
