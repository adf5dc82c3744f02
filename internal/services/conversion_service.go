package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"go.uber.org/zap"
)

// ConversionService turns a guest application into a registered candidate
// account, once per tracking token.
type ConversionService interface {
	Convert(ctx context.Context, trackingToken, password string) (*ConversionResult, error)
}

type ConversionResult struct {
	Identity    *models.Identity      `json:"identity"`
	Application *models.Application   `json:"application"`
	Tokens      *models.TokenResponse `json:"tokens,omitempty"`
}

type conversionService struct {
	guestRepo    repositories.GuestApplicationRepository
	appRepo      repositories.ApplicationRepository
	jobRepo      repositories.JobRepository
	identityRepo repositories.IdentityRepository
	identities   IdentityService
	auth         AuthService
	tx           repositories.Transactor
	dispatcher   NotificationDispatcher
	logger       *zap.Logger
}

func NewConversionService(guestRepo repositories.GuestApplicationRepository, appRepo repositories.ApplicationRepository,
	jobRepo repositories.JobRepository, identityRepo repositories.IdentityRepository, identities IdentityService,
	auth AuthService, tx repositories.Transactor, dispatcher NotificationDispatcher, logger *zap.Logger) ConversionService {
	return &conversionService{
		guestRepo:    guestRepo,
		appRepo:      appRepo,
		jobRepo:      jobRepo,
		identityRepo: identityRepo,
		identities:   identities,
		auth:         auth,
		tx:           tx,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// Convert provisions the identity, marks the guest record converted and
// re-links the application in one transaction. The guest row lock serializes
// concurrent attempts on the same token; the losers see ErrAlreadyConverted.
// The application's snapshot is left as submitted.
func (s *conversionService) Convert(ctx context.Context, trackingToken, password string) (*ConversionResult, error) {
	if strings.TrimSpace(trackingToken) == "" {
		return nil, common.ErrNotFound
	}

	var (
		identity *models.Identity
		app      *models.Application
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		guest, err := s.guestRepo.GetByTokenForUpdate(ctx, trackingToken)
		if err != nil {
			return err
		}
		if guest.ConvertedToUser {
			return fmt.Errorf("guest application %s: %w", guest.ID, common.ErrAlreadyConverted)
		}

		job, err := s.jobRepo.GetByID(ctx, guest.JobID)
		if err != nil {
			return err
		}
		tenantID := job.TenantID

		exists, err := s.identityRepo.ExistsByEmail(ctx, &tenantID, guest.CandidateInfo.Email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("an account for %s already exists, sign in instead: %w", guest.CandidateInfo.Email, common.ErrAlreadyExists)
		}

		if app, err = s.appRepo.GetByGuestID(ctx, guest.ID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("guest application %s has no application: %w", guest.ID, common.ErrIntegrity)
			}
			return err
		}

		identity, err = s.identities.Provision(ctx, ProvisionRequest{
			TenantID:  &tenantID,
			Role:      common.RoleCandidate,
			Email:     guest.CandidateInfo.Email,
			Password:  password,
			FirstName: guest.CandidateInfo.FirstName,
			LastName:  guest.CandidateInfo.LastName,
			Phone:     guest.CandidateInfo.Phone,
		})
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return fmt.Errorf("%v: %w", err, common.ErrAlreadyExists)
		}
		if err != nil {
			return err
		}

		if err := s.guestRepo.MarkConverted(ctx, guest.ID, identity.ID); err != nil {
			return err
		}

		relinked, err := s.appRepo.RelinkGuest(ctx, guest.ID, identity.ID)
		if err != nil {
			return err
		}
		if relinked != 1 {
			return fmt.Errorf("guest application %s relinked %d applications: %w", guest.ID, relinked, common.ErrIntegrity)
		}
		app.Applicant = models.RegisteredRef{IdentityID: identity.ID}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			s.logger.Error("guest conversion hit an integrity violation", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("guest application converted",
		zap.String("identity_id", identity.ID.String()),
		zap.String("application_id", app.ID.String()),
	)

	result := &ConversionResult{Identity: identity, Application: app}
	tokens, err := s.auth.GenerateTokens(ctx, identity)
	if err != nil {
		// The account exists; the caller can still sign in normally.
		s.logger.Warn("token issuance after conversion failed", zap.String("identity_id", identity.ID.String()), zap.Error(err))
	} else {
		result.Tokens = tokens
	}

	s.dispatcher.Dispatch(ctx, models.Notification{
		Recipient: identity.Email,
		Kind:      models.NotificationGuestConverted,
		Context: map[string]string{
			"identity_id":    identity.ID.String(),
			"application_id": app.ID.String(),
			"name":           identity.FullName(),
		},
	})
	return result, nil
}
