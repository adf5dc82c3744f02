package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusService moves applications between statuses and keeps their audit
// trail. Any status may follow any other except that Hired and Rejected are
// final.
type StatusService interface {
	Transition(ctx context.Context, actor common.Actor, applicationID uuid.UUID, status models.ApplicationStatus, note *string) (*models.ApplicationLog, error)
	AddNote(ctx context.Context, actor common.Actor, applicationID uuid.UUID, text string) (*models.ApplicationNote, error)
	EditNote(ctx context.Context, actor common.Actor, applicationID uuid.UUID, index int, text string) (*models.ApplicationNote, error)
}

const maxNoteLength = 5000

type statusService struct {
	appRepo    repositories.ApplicationRepository
	tx         repositories.Transactor
	dispatcher NotificationDispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewStatusService(appRepo repositories.ApplicationRepository, tx repositories.Transactor,
	dispatcher NotificationDispatcher, logger *zap.Logger) StatusService {
	return &statusService{
		appRepo:    appRepo,
		tx:         tx,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func validateNoteText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", common.NewValidationError("text", "is required")
	}
	if err := common.ValidateMaxLength(text, "text", maxNoteLength); err != nil {
		return "", err
	}
	return text, nil
}

// lockForReview locks the application row and checks the actor may review it.
func (s *statusService) lockForReview(ctx context.Context, actor common.Actor, applicationID uuid.UUID) (*models.Application, error) {
	app, err := s.appRepo.GetByIDForUpdate(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := actor.AuthorizeTenant(app.TenantID); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *statusService) Transition(ctx context.Context, actor common.Actor, applicationID uuid.UUID, status models.ApplicationStatus, note *string) (*models.ApplicationLog, error) {
	if !actor.IsStaff() {
		return nil, common.ErrForbidden
	}
	if !status.Valid() {
		return nil, common.NewValidationError("status", fmt.Sprintf("%q is not a known status", status))
	}
	if note != nil {
		if strings.TrimSpace(*note) == "" {
			note = nil
		} else {
			text, err := validateNoteText(*note)
			if err != nil {
				return nil, err
			}
			note = &text
		}
	}

	actorID := actor.IdentityID
	var (
		app   *models.Application
		entry *models.ApplicationLog
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if app, err = s.lockForReview(ctx, actor, applicationID); err != nil {
			return err
		}
		if app.Status.Terminal() && status != app.Status {
			return common.NewValidationError("status", fmt.Sprintf("application is %s and cannot change status", app.Status))
		}

		if err := s.appRepo.UpdateStatus(ctx, app.ID, status); err != nil {
			return err
		}
		entry = &models.ApplicationLog{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			FromStatus:    app.Status,
			ToStatus:      status,
			ActorID:       &actorID,
			Note:          note,
		}
		if err := s.appRepo.AppendLog(ctx, entry); err != nil {
			return err
		}
		if note != nil {
			return s.appRepo.AppendNote(ctx, &models.ApplicationNote{
				ID:            uuid.New(),
				ApplicationID: app.ID,
				Text:          *note,
				AuthorID:      actorID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application status changed",
		zap.String("application_id", app.ID.String()),
		zap.String("from", string(entry.FromStatus)),
		zap.String("to", string(entry.ToStatus)),
		zap.String("actor_id", actorID.String()),
	)

	// Delivery happens after commit and its outcome never reaches the caller.
	s.dispatcher.Dispatch(ctx, models.Notification{
		Recipient: app.Snapshot.Email,
		Kind:      models.NotificationStatusChanged,
		Context: map[string]string{
			"application_id": app.ID.String(),
			"job_id":         app.JobID.String(),
			"from_status":    string(entry.FromStatus),
			"to_status":      string(entry.ToStatus),
		},
	})
	return entry, nil
}

func (s *statusService) AddNote(ctx context.Context, actor common.Actor, applicationID uuid.UUID, text string) (*models.ApplicationNote, error) {
	if !actor.IsStaff() {
		return nil, common.ErrForbidden
	}
	text, err := validateNoteText(text)
	if err != nil {
		return nil, err
	}

	note := &models.ApplicationNote{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		Text:          text,
		AuthorID:      actor.IdentityID,
		History:       []*models.NoteEdit{},
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockForReview(ctx, actor, applicationID); err != nil {
			return err
		}
		return s.appRepo.AppendNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// EditNote keeps the previous text, author and time of the note in its edit
// history before overwriting it.
func (s *statusService) EditNote(ctx context.Context, actor common.Actor, applicationID uuid.UUID, index int, text string) (*models.ApplicationNote, error) {
	if !actor.IsStaff() {
		return nil, common.ErrForbidden
	}
	if index < 0 {
		return nil, fmt.Errorf("note %d: %w", index, common.ErrNotFound)
	}
	text, err := validateNoteText(text)
	if err != nil {
		return nil, err
	}

	var edited *models.ApplicationNote
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockForReview(ctx, actor, applicationID); err != nil {
			return err
		}
		note, err := s.appRepo.GetNoteForUpdate(ctx, applicationID, index)
		if err != nil {
			return err
		}

		previousBy, previousAt := note.AuthorID, note.CreatedAt
		if note.EditedBy != nil && note.EditedAt != nil {
			previousBy, previousAt = *note.EditedBy, *note.EditedAt
		}
		now := s.now()
		editor := actor.IdentityID
		if err := s.appRepo.AppendNoteEdit(ctx, &models.NoteEdit{
			ID:           uuid.New(),
			NoteID:       note.ID,
			PreviousText: note.Text,
			PreviousBy:   previousBy,
			PreviousAt:   previousAt,
			EditedBy:     editor,
			EditedAt:     now,
		}); err != nil {
			return err
		}

		note.Text = text
		note.EditedBy = &editor
		note.EditedAt = &now
		if err := s.appRepo.UpdateNoteText(ctx, note); err != nil {
			return err
		}

		notes, err := s.appRepo.ListNotes(ctx, applicationID)
		if err != nil {
			return err
		}
		for _, n := range notes {
			if n.ID == note.ID {
				edited = n
			}
		}
		if edited == nil {
			return fmt.Errorf("note %s vanished during edit: %w", note.ID, common.ErrIntegrity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}
