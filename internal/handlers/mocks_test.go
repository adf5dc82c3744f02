package handlers

import (
	"context"
	"io"
	"time"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) GenerateTokens(ctx context.Context, identity *models.Identity) (*models.TokenResponse, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenClaims), args.Error(1)
}

func (m *MockAuthService) RevokeToken(ctx context.Context, token string, tokenType *string) error {
	return m.Called(ctx, token, tokenType).Error(0)
}

func (m *MockAuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type MockIdentityService struct{ mock.Mock }

func (m *MockIdentityService) identity(args mock.Arguments) (*models.Identity, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityService) Provision(ctx context.Context, req services.ProvisionRequest) (*models.Identity, error) {
	return m.identity(m.Called(ctx, req))
}

func (m *MockIdentityService) Create(ctx context.Context, actor common.Actor, req services.ProvisionRequest) (*models.Identity, error) {
	return m.identity(m.Called(ctx, actor, req))
}

func (m *MockIdentityService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Identity, error) {
	return m.identity(m.Called(ctx, actor, id))
}

func (m *MockIdentityService) List(ctx context.Context, actor common.Actor, tenantID *uuid.UUID, limit, offset int) ([]*models.Identity, error) {
	args := m.Called(ctx, actor, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Identity), args.Error(1)
}

func (m *MockIdentityService) Deactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockIdentityService) Reactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockIdentityService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockIdentityService) Authenticate(ctx context.Context, tenantID *uuid.UUID, email, password string) (*models.Identity, error) {
	return m.identity(m.Called(ctx, tenantID, email, password))
}

type MockTenantService struct{ mock.Mock }

func (m *MockTenantService) tenant(args mock.Arguments) (*models.Tenant, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) Create(ctx context.Context, actor common.Actor, req *services.CreateTenantRequest) (*models.Tenant, error) {
	return m.tenant(m.Called(ctx, actor, req))
}

func (m *MockTenantService) GetByID(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Tenant, error) {
	return m.tenant(m.Called(ctx, actor, id))
}

func (m *MockTenantService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	return m.tenant(m.Called(ctx, subdomain))
}

func (m *MockTenantService) Update(ctx context.Context, actor common.Actor, req *services.UpdateTenantRequest) (*models.Tenant, error) {
	return m.tenant(m.Called(ctx, actor, req))
}

func (m *MockTenantService) Deactivate(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockTenantService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockTenantService) List(ctx context.Context, actor common.Actor, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, actor, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *MockTenantService) Usage(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.QuotaUsage, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuotaUsage), args.Error(1)
}

type MockApplicationService struct{ mock.Mock }

func (m *MockApplicationService) application(args mock.Arguments) (*models.Application, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationService) SubmitRegistered(ctx context.Context, actor common.Actor, jobID uuid.UUID, payload services.SubmissionPayload) (*models.Application, error) {
	return m.application(m.Called(ctx, actor, jobID, payload))
}

func (m *MockApplicationService) SubmitGuest(ctx context.Context, jobID uuid.UUID, payload services.GuestPayload) (*services.GuestSubmission, error) {
	args := m.Called(ctx, jobID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GuestSubmission), args.Error(1)
}

func (m *MockApplicationService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Application, error) {
	return m.application(m.Called(ctx, actor, id))
}

func (m *MockApplicationService) ListByJob(ctx context.Context, actor common.Actor, jobID uuid.UUID, limit, offset int) ([]*models.Application, error) {
	args := m.Called(ctx, actor, jobID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Application), args.Error(1)
}

func (m *MockApplicationService) TrackGuest(ctx context.Context, token string) (*models.GuestTracking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuestTracking), args.Error(1)
}

func (m *MockApplicationService) ResumeURL(ctx context.Context, actor common.Actor, id uuid.UUID) (string, error) {
	args := m.Called(ctx, actor, id)
	return args.String(0), args.Error(1)
}

type MockStatusService struct{ mock.Mock }

func (m *MockStatusService) Transition(ctx context.Context, actor common.Actor, applicationID uuid.UUID, status models.ApplicationStatus, note *string) (*models.ApplicationLog, error) {
	args := m.Called(ctx, actor, applicationID, status, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationLog), args.Error(1)
}

func (m *MockStatusService) AddNote(ctx context.Context, actor common.Actor, applicationID uuid.UUID, text string) (*models.ApplicationNote, error) {
	args := m.Called(ctx, actor, applicationID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationNote), args.Error(1)
}

func (m *MockStatusService) EditNote(ctx context.Context, actor common.Actor, applicationID uuid.UUID, index int, text string) (*models.ApplicationNote, error) {
	args := m.Called(ctx, actor, applicationID, index, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationNote), args.Error(1)
}

type MockConversionService struct{ mock.Mock }

func (m *MockConversionService) Convert(ctx context.Context, trackingToken, password string) (*services.ConversionResult, error) {
	args := m.Called(ctx, trackingToken, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ConversionResult), args.Error(1)
}

type MockResumeStore struct{ mock.Mock }

func (m *MockResumeStore) EnsureBucket(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockResumeStore) Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error) {
	args := m.Called(ctx, contentType, reader, size)
	return args.String(0), args.Error(1)
}

func (m *MockResumeStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockResumeStore) Read(ctx context.Context, key string, limit int64) ([]byte, string, int64, error) {
	args := m.Called(ctx, key, limit)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Get(2).(int64), args.Error(3)
}
