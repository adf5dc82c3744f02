package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// IdentityService provisions and manages identities. Every tenant-scoped
// identity occupies one quota slot while it is active.
type IdentityService interface {
	// Provision creates an identity. A reserved slot is released again before
	// any error is returned.
	Provision(ctx context.Context, req ProvisionRequest) (*models.Identity, error)
	// Create is Provision on behalf of an authenticated actor.
	Create(ctx context.Context, actor common.Actor, req ProvisionRequest) (*models.Identity, error)
	Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Identity, error)
	List(ctx context.Context, actor common.Actor, tenantID *uuid.UUID, limit, offset int) ([]*models.Identity, error)
	Deactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error
	Reactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	// Authenticate verifies credentials; a nil tenantID means a platform login.
	Authenticate(ctx context.Context, tenantID *uuid.UUID, email, password string) (*models.Identity, error)
}

type ProvisionRequest struct {
	TenantID  *uuid.UUID `json:"tenant_id"`
	Role      string     `json:"role"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	CreatedBy *uuid.UUID `json:"-"`
}

type identityService struct {
	identityRepo repositories.IdentityRepository
	tenantRepo   repositories.TenantRepository
	quota        QuotaService
	hasher       PasswordHasher
	tx           repositories.Transactor
	logger       *zap.Logger
}

func NewIdentityService(identityRepo repositories.IdentityRepository, tenantRepo repositories.TenantRepository,
	quota QuotaService, hasher PasswordHasher, tx repositories.Transactor, logger *zap.Logger) IdentityService {
	return &identityService{
		identityRepo: identityRepo,
		tenantRepo:   tenantRepo,
		quota:        quota,
		hasher:       hasher,
		tx:           tx,
		logger:       logger,
	}
}

func validateProvision(req *ProvisionRequest) error {
	email, err := common.NormalizeEmail(req.Email)
	if err != nil {
		return err
	}
	req.Email = email

	if len(req.Password) < minPasswordLength {
		return common.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := common.ValidateMaxLength(req.Password, "password", 72); err != nil {
		return err
	}

	switch req.Role {
	case common.RoleSuperAdmin:
		if req.TenantID != nil {
			return common.NewValidationError("tenant_id", "platform administrators cannot belong to a tenant")
		}
	case common.RoleAdmin, common.RoleRecruiter, common.RoleEmployee, common.RoleCandidate:
		if req.TenantID == nil {
			return common.NewValidationError("tenant_id", "is required for this role")
		}
	default:
		return common.NewValidationError("role", "is not a known role")
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := common.ValidateMaxLength(req.FirstName, "first_name", 100); err != nil {
		return err
	}
	return common.ValidateMaxLength(req.LastName, "last_name", 100)
}

func (s *identityService) Provision(ctx context.Context, req ProvisionRequest) (*models.Identity, error) {
	if err := validateProvision(&req); err != nil {
		return nil, err
	}

	exists, err := s.identityRepo.ExistsByEmail(ctx, req.TenantID, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email %s: %w", req.Email, common.ErrDuplicateIdentity)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity := &models.Identity{
		ID:           uuid.New(),
		TenantID:     req.TenantID,
		Role:         req.Role,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        strings.TrimSpace(req.Phone),
		IsActive:     true,
		CreatedBy:    req.CreatedBy,
	}

	// Slot and row commit together. Inside a caller's transaction this is a
	// savepoint, so a failed insert rolls the reservation back with it.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.TenantID != nil {
			if _, err := s.quota.ReserveSlot(ctx, *req.TenantID); err != nil {
				return err
			}
		}
		return s.identityRepo.Create(ctx, identity)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("identity provisioned",
		zap.String("identity_id", identity.ID.String()),
		zap.String("role", identity.Role),
		zap.Stringp("tenant_id", uuidString(identity.TenantID)),
	)
	return identity, nil
}

// Create lets platform operators provision anyone and tenant admins provision
// non-platform identities in their own tenant.
func (s *identityService) Create(ctx context.Context, actor common.Actor, req ProvisionRequest) (*models.Identity, error) {
	switch {
	case actor.IsPlatform():
	case actor.Role == common.RoleAdmin && req.TenantID != nil && actor.CanAccessTenant(*req.TenantID):
	default:
		return nil, common.ErrForbidden
	}
	creator := actor.IdentityID
	req.CreatedBy = &creator
	return s.Provision(ctx, req)
}

func (s *identityService) authorizeIdentity(actor common.Actor, identity *models.Identity) error {
	if identity.TenantID == nil {
		if !actor.IsPlatform() {
			return common.ErrForbidden
		}
		return nil
	}
	return actor.AuthorizeTenant(*identity.TenantID)
}

func (s *identityService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Identity, error) {
	identity, err := s.identityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IdentityID == id {
		return identity, nil
	}
	if !actor.IsStaff() {
		return nil, common.ErrForbidden
	}
	if err := s.authorizeIdentity(actor, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *identityService) List(ctx context.Context, actor common.Actor, tenantID *uuid.UUID, limit, offset int) ([]*models.Identity, error) {
	if tenantID == nil && !actor.IsPlatform() {
		tenantID = actor.TenantID
	}
	if tenantID == nil {
		if !actor.IsPlatform() {
			return nil, common.ErrForbidden
		}
	} else if err := actor.AuthorizeTenant(*tenantID); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, common.ErrForbidden
	}

	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.identityRepo.List(ctx, tenantID, limit, offset)
}

func (s *identityService) canManage(actor common.Actor) bool {
	return actor.IsPlatform() || actor.Role == common.RoleAdmin
}

// Deactivate flips the identity inactive and frees its slot in one
// transaction. Deactivating an inactive identity changes nothing.
func (s *identityService) Deactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if !s.canManage(actor) {
		return common.ErrForbidden
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		identity, err := s.identityRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeIdentity(actor, identity); err != nil {
			return err
		}
		changed, err := s.identityRepo.SetActive(ctx, id, false)
		if err != nil || !changed || identity.TenantID == nil {
			return err
		}
		_, err = s.quota.ReleaseSlot(ctx, *identity.TenantID)
		return err
	})
}

// Reactivate needs a free slot; the reservation rolls back with the
// transaction if the flip fails.
func (s *identityService) Reactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if !s.canManage(actor) {
		return common.ErrForbidden
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		identity, err := s.identityRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeIdentity(actor, identity); err != nil {
			return err
		}
		if identity.IsActive {
			return nil
		}
		if identity.TenantID != nil {
			if _, err := s.quota.ReserveSlot(ctx, *identity.TenantID); err != nil {
				return err
			}
		}
		_, err = s.identityRepo.SetActive(ctx, id, true)
		return err
	})
}

func (s *identityService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if !s.canManage(actor) {
		return common.ErrForbidden
	}
	if actor.IdentityID == id {
		return common.NewValidationError("id", "cannot delete your own identity")
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		identity, err := s.identityRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeIdentity(actor, identity); err != nil {
			return err
		}
		if err := s.identityRepo.Delete(ctx, id); err != nil {
			return err
		}
		if identity.IsActive && identity.TenantID != nil {
			_, err = s.quota.ReleaseSlot(ctx, *identity.TenantID)
		}
		return err
	})
}

func (s *identityService) Authenticate(ctx context.Context, tenantID *uuid.UUID, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	identity, err := s.identityRepo.GetByEmail(ctx, tenantID, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Compare(identity.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok || !identity.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	if tenantID != nil {
		tenant, err := s.tenantRepo.GetByID(ctx, *tenantID)
		if err != nil {
			return nil, err
		}
		if !tenant.IsActive {
			return nil, fmt.Errorf("tenant %s is inactive: %w", tenant.ID, common.ErrForbidden)
		}
	}
	return identity, nil
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
