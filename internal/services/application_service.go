package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplicationService is the application ledger. It admits at most one
// application per (job, applicant) across the registered and guest tracks.
type ApplicationService interface {
	SubmitRegistered(ctx context.Context, actor common.Actor, jobID uuid.UUID, payload SubmissionPayload) (*models.Application, error)
	SubmitGuest(ctx context.Context, jobID uuid.UUID, payload GuestPayload) (*GuestSubmission, error)
	Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Application, error)
	ListByJob(ctx context.Context, actor common.Actor, jobID uuid.UUID, limit, offset int) ([]*models.Application, error)
	// TrackGuest is the capability read behind a guest tracking token.
	TrackGuest(ctx context.Context, token string) (*models.GuestTracking, error)
	ResumeURL(ctx context.Context, actor common.Actor, id uuid.UUID) (string, error)
}

type SubmissionPayload struct {
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	LinkedInURL     string `json:"linkedin_url"`
	CoverLetter     string `json:"cover_letter"`
	ResumeObjectKey string `json:"resume_object_key"`
}

type GuestPayload struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	LinkedInURL     string `json:"linkedin_url"`
	CoverLetter     string `json:"cover_letter"`
	ResumeObjectKey string `json:"resume_object_key"`
}

// GuestSubmission carries the tracking token. It is only ever returned here.
type GuestSubmission struct {
	Application      *models.Application      `json:"application"`
	GuestApplication *models.GuestApplication `json:"guest_application"`
	TrackingToken    string                   `json:"tracking_token"`
}

// TokenGenerator returns an unguessable capability token.
type TokenGenerator func() (string, error)

// GenerateTrackingToken returns 256 random bits, base64url encoded.
func GenerateTrackingToken() (string, error) {
	return generateSecureToken()
}

type applicationService struct {
	appRepo      repositories.ApplicationRepository
	guestRepo    repositories.GuestApplicationRepository
	jobRepo      repositories.JobRepository
	identityRepo repositories.IdentityRepository
	tx           repositories.Transactor
	extractor    ResumeExtractor
	resumes      ResumeStore
	dispatcher   NotificationDispatcher
	newToken     TokenGenerator
	resumeURLTTL time.Duration
	logger       *zap.Logger
}

type ApplicationServiceDeps struct {
	Applications repositories.ApplicationRepository
	Guests       repositories.GuestApplicationRepository
	Jobs         repositories.JobRepository
	Identities   repositories.IdentityRepository
	Tx           repositories.Transactor
	// Extractor and Resumes may be nil when object storage is not configured.
	Extractor    ResumeExtractor
	Resumes      ResumeStore
	Dispatcher   NotificationDispatcher
	TokenGen     TokenGenerator
	ResumeURLTTL time.Duration
	Logger       *zap.Logger
}

func NewApplicationService(deps ApplicationServiceDeps) ApplicationService {
	if deps.TokenGen == nil {
		deps.TokenGen = GenerateTrackingToken
	}
	if deps.ResumeURLTTL == 0 {
		deps.ResumeURLTTL = 15 * time.Minute
	}
	return &applicationService{
		appRepo:      deps.Applications,
		guestRepo:    deps.Guests,
		jobRepo:      deps.Jobs,
		identityRepo: deps.Identities,
		tx:           deps.Tx,
		extractor:    deps.Extractor,
		resumes:      deps.Resumes,
		dispatcher:   deps.Dispatcher,
		newToken:     deps.TokenGen,
		resumeURLTTL: deps.ResumeURLTTL,
		logger:       deps.Logger,
	}
}

func validateSubmission(phone, linkedIn, coverLetter, resumeKey string) error {
	if err := common.ValidateMaxLength(phone, "phone", 40); err != nil {
		return err
	}
	if err := common.ValidateMaxLength(linkedIn, "linkedin_url", 500); err != nil {
		return err
	}
	if err := common.ValidateMaxLength(coverLetter, "cover_letter", 10000); err != nil {
		return err
	}
	if resumeKey != "" && !ValidResumeKey(resumeKey) {
		return common.NewValidationError("resume_object_key", "does not reference an uploaded resume")
	}
	return nil
}

// enrich runs résumé extraction. Any failure leaves the snapshot without a
// profile.
func (s *applicationService) enrich(ctx context.Context, snapshot *models.CandidateSnapshot) {
	if snapshot.ResumeObjectKey == "" || s.extractor == nil {
		return
	}
	profile, err := s.extractor.Extract(ctx, snapshot.ResumeObjectKey)
	if err != nil {
		s.logger.Warn("resume extraction failed", zap.String("resume_object_key", snapshot.ResumeObjectKey), zap.Error(err))
		return
	}
	snapshot.ResumeProfile = profile
}

func (s *applicationService) SubmitRegistered(ctx context.Context, actor common.Actor, jobID uuid.UUID, payload SubmissionPayload) (*models.Application, error) {
	if actor.Role != common.RoleCandidate {
		return nil, common.ErrForbidden
	}
	if err := validateSubmission(payload.Phone, payload.LinkedInURL, payload.CoverLetter, payload.ResumeObjectKey); err != nil {
		return nil, err
	}

	candidate, err := s.identityRepo.GetByID(ctx, actor.IdentityID)
	if err != nil {
		return nil, err
	}
	if !candidate.IsActive || candidate.Role != common.RoleCandidate {
		return nil, common.ErrForbidden
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if candidate.TenantID == nil || *candidate.TenantID != job.TenantID {
		return nil, fmt.Errorf("job %s: %w", jobID, common.ErrForbidden)
	}

	phone := strings.TrimSpace(payload.Phone)
	if phone == "" {
		phone = candidate.Phone
	}
	snapshot := models.CandidateSnapshot{
		FirstName:       candidate.FirstName,
		LastName:        candidate.LastName,
		Email:           candidate.Email,
		Phone:           phone,
		Location:        strings.TrimSpace(payload.Location),
		LinkedInURL:     strings.TrimSpace(payload.LinkedInURL),
		CoverLetter:     payload.CoverLetter,
		ResumeObjectKey: payload.ResumeObjectKey,
	}
	s.enrich(ctx, &snapshot)

	app := &models.Application{
		ID:        uuid.New(),
		JobID:     job.ID,
		TenantID:  job.TenantID,
		Applicant: models.RegisteredRef{IdentityID: candidate.ID},
		Status:    models.StatusNew,
		Snapshot:  snapshot,
	}
	candidateID := candidate.ID

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.appRepo.ExistsForApplicant(ctx, job.ID, &candidateID, candidate.Email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("job %s: %w", job.ID, common.ErrDuplicateApplication)
		}
		if _, err := s.jobRepo.ReserveApplicationSlot(ctx, job.ID); err != nil {
			return err
		}
		if err := s.appRepo.Create(ctx, app); err != nil {
			return err
		}
		return s.appendInitialLog(ctx, app, &candidateID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("candidate_id", candidateID.String()),
	)
	s.notifyReceived(ctx, app, job)
	return app, nil
}

func (s *applicationService) SubmitGuest(ctx context.Context, jobID uuid.UUID, payload GuestPayload) (*GuestSubmission, error) {
	email, err := common.NormalizeEmail(payload.Email)
	if err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(payload.FirstName, "first_name"); err != nil {
		return nil, err
	}
	if err := common.ValidateMaxLength(payload.FirstName, "first_name", 100); err != nil {
		return nil, err
	}
	if err := common.ValidateMaxLength(payload.LastName, "last_name", 100); err != nil {
		return nil, err
	}
	if err := validateSubmission(payload.Phone, payload.LinkedInURL, payload.CoverLetter, payload.ResumeObjectKey); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate tracking token: %w", err)
	}

	info := models.GuestCandidateInfo{
		FirstName:   strings.TrimSpace(payload.FirstName),
		LastName:    strings.TrimSpace(payload.LastName),
		Email:       email,
		Phone:       strings.TrimSpace(payload.Phone),
		Location:    strings.TrimSpace(payload.Location),
		LinkedInURL: strings.TrimSpace(payload.LinkedInURL),
	}
	snapshot := models.CandidateSnapshot{
		FirstName:       info.FirstName,
		LastName:        info.LastName,
		Email:           info.Email,
		Phone:           info.Phone,
		Location:        info.Location,
		LinkedInURL:     info.LinkedInURL,
		CoverLetter:     payload.CoverLetter,
		ResumeObjectKey: payload.ResumeObjectKey,
	}
	s.enrich(ctx, &snapshot)

	guest := &models.GuestApplication{
		ID:            uuid.New(),
		JobID:         job.ID,
		CandidateInfo: info,
		TrackingToken: token,
	}
	app := &models.Application{
		ID:        uuid.New(),
		JobID:     job.ID,
		TenantID:  job.TenantID,
		Applicant: models.GuestRef{GuestApplicationID: guest.ID},
		Status:    models.StatusNew,
		Snapshot:  snapshot,
	}

	// Guest record and application are written together or not at all.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.appRepo.ExistsForApplicant(ctx, job.ID, nil, email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("job %s: %w", job.ID, common.ErrDuplicateApplication)
		}
		if _, err := s.jobRepo.ReserveApplicationSlot(ctx, job.ID); err != nil {
			return err
		}
		if err := s.guestRepo.Create(ctx, guest); err != nil {
			return err
		}
		if err := s.appRepo.Create(ctx, app); err != nil {
			return err
		}
		return s.appendInitialLog(ctx, app, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("guest application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("guest_application_id", guest.ID.String()),
		zap.String("job_id", job.ID.String()),
	)
	s.notifyReceived(ctx, app, job)
	return &GuestSubmission{Application: app, GuestApplication: guest, TrackingToken: token}, nil
}

func (s *applicationService) appendInitialLog(ctx context.Context, app *models.Application, actorID *uuid.UUID) error {
	entry := &models.ApplicationLog{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		FromStatus:    "",
		ToStatus:      models.StatusNew,
		ActorID:       actorID,
	}
	if err := s.appRepo.AppendLog(ctx, entry); err != nil {
		return err
	}
	app.Logs = []*models.ApplicationLog{entry}
	app.Notes = []*models.ApplicationNote{}
	return nil
}

func (s *applicationService) notifyReceived(ctx context.Context, app *models.Application, job *models.Job) {
	s.dispatcher.Dispatch(ctx, models.Notification{
		Recipient: app.Snapshot.Email,
		Kind:      models.NotificationApplicationReceived,
		Context: map[string]string{
			"application_id": app.ID.String(),
			"job_id":         job.ID.String(),
			"job_title":      job.Title,
		},
	})
}

// authorizeRead lets tenant staff and the registered applicant read an
// application.
func authorizeRead(actor common.Actor, app *models.Application) error {
	if actor.IsStaff() {
		return actor.AuthorizeTenant(app.TenantID)
	}
	if ref, ok := app.Applicant.(models.RegisteredRef); ok && ref.IdentityID == actor.IdentityID {
		return nil
	}
	return common.ErrForbidden
}

func (s *applicationService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*models.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, app); err != nil {
		return nil, err
	}

	if app.Logs, err = s.appRepo.ListLogs(ctx, id); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		// Review notes are internal to the hiring team.
		app.Notes = []*models.ApplicationNote{}
		for _, entry := range app.Logs {
			entry.Note = nil
		}
		return app, nil
	}
	if app.Notes, err = s.appRepo.ListNotes(ctx, id); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) ListByJob(ctx context.Context, actor common.Actor, jobID uuid.UUID, limit, offset int) ([]*models.Application, error) {
	if !actor.IsStaff() {
		return nil, common.ErrForbidden
	}
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := actor.AuthorizeTenant(job.TenantID); err != nil {
		return nil, err
	}
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.appRepo.ListByJob(ctx, jobID, limit, offset)
}

func (s *applicationService) TrackGuest(ctx context.Context, token string) (*models.GuestTracking, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.ErrNotFound
	}
	guest, err := s.guestRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	job, err := s.jobRepo.GetByID(ctx, guest.JobID)
	if err != nil {
		return nil, err
	}

	tracking := &models.GuestTracking{
		GuestApplicationID: guest.ID,
		JobID:              job.ID,
		JobTitle:           job.Title,
		CandidateInfo:      guest.CandidateInfo,
		ConvertedToUser:    guest.ConvertedToUser,
		SubmittedAt:        guest.CreatedAt,
	}
	if guest.ConvertedToUser {
		// The application now belongs to the registered account.
		return tracking, nil
	}

	app, err := s.appRepo.GetByGuestID(ctx, guest.ID)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Error("guest application without linked application",
			zap.String("guest_application_id", guest.ID.String()),
			zap.String("violation", models.ViolationOrphanGuest),
		)
		return nil, fmt.Errorf("guest application %s: %w", guest.ID, common.ErrIntegrity)
	}
	if err != nil {
		return nil, err
	}
	tracking.Status = app.Status
	return tracking, nil
}

func (s *applicationService) ResumeURL(ctx context.Context, actor common.Actor, id uuid.UUID) (string, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := authorizeRead(actor, app); err != nil {
		return "", err
	}
	if app.Snapshot.ResumeObjectKey == "" || s.resumes == nil {
		return "", fmt.Errorf("resume of application %s: %w", id, common.ErrNotFound)
	}
	return s.resumes.PresignedURL(ctx, app.Snapshot.ResumeObjectKey, s.resumeURLTTL)
}
