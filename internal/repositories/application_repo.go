package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"talentdesk/internal/common"
	"talentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ApplicationRepository interface {
	// ExistsForApplicant reports whether the job already has an application
	// from candidateID (when set) or from email on either track.
	ExistsForApplicant(ctx context.Context, jobID uuid.UUID, candidateID *uuid.UUID, email string) (bool, error)
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetByGuestID(ctx context.Context, guestApplicationID uuid.UUID) (*models.Application, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]*models.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error
	// RelinkGuest moves an application from its guest reference to a
	// registered candidate and returns the number of rows changed.
	RelinkGuest(ctx context.Context, guestApplicationID, candidateID uuid.UUID) (int64, error)

	AppendLog(ctx context.Context, entry *models.ApplicationLog) error
	ListLogs(ctx context.Context, applicationID uuid.UUID) ([]*models.ApplicationLog, error)

	AppendNote(ctx context.Context, note *models.ApplicationNote) error
	GetNoteForUpdate(ctx context.Context, applicationID uuid.UUID, index int) (*models.ApplicationNote, error)
	UpdateNoteText(ctx context.Context, note *models.ApplicationNote) error
	AppendNoteEdit(ctx context.Context, edit *models.NoteEdit) error
	// ListNotes returns notes in index order with their edit history.
	ListNotes(ctx context.Context, applicationID uuid.UUID) ([]*models.ApplicationNote, error)
}

type applicationRepo struct {
	baseRepo
}

func NewApplicationRepo(db DB) ApplicationRepository {
	return &applicationRepo{baseRepo{db: db}}
}

const applicationColumns = `a.id, a.job_id, j.tenant_id, a.candidate_id, a.guest_application_id, a.status, a.candidate_snapshot, a.created_at, a.updated_at`

func scanApplication(row pgx.Row) (*models.Application, error) {
	app := &models.Application{}
	var (
		candidateID, guestID *uuid.UUID
		snapshot             []byte
	)
	err := row.Scan(&app.ID, &app.JobID, &app.TenantID, &candidateID, &guestID, &app.Status, &snapshot,
		&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	app.Applicant, err = models.ApplicantFromColumns(candidateID, guestID)
	if err != nil {
		return nil, fmt.Errorf("application %s: %v: %w", app.ID, err, common.ErrIntegrity)
	}
	if err := json.Unmarshal(snapshot, &app.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot of application %s: %w", app.ID, err)
	}
	return app, nil
}

func (r *applicationRepo) ExistsForApplicant(ctx context.Context, jobID uuid.UUID, candidateID *uuid.UUID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE job_id = $1
				AND (($2::uuid IS NOT NULL AND candidate_id = $2) OR lower(applicant_email) = lower($3))
		)
	`
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, query, jobID, candidateID, email).Scan(&exists)
	return exists, err
}

// Create inserts the application. The unique indexes on (job, candidate),
// (job, guest) and (job, email) decide concurrent duplicates; the loser gets
// ErrDuplicateApplication.
func (r *applicationRepo) Create(ctx context.Context, app *models.Application) error {
	candidateID, guestID, isGuest := models.ApplicantColumns(app.Applicant)
	if candidateID == nil && guestID == nil {
		return common.NewValidationError("applicant", "is required")
	}
	snapshot, err := json.Marshal(app.Snapshot)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO applications (id, job_id, candidate_id, guest_application_id, is_guest_application, applicant_email, status, candidate_snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at
	`
	err = r.conn(ctx).QueryRow(ctx, query,
		app.ID, app.JobID, candidateID, guestID, isGuest, app.Snapshot.Email, app.Status, snapshot,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return fmt.Errorf("application for job %s: %w", app.JobID, common.ErrDuplicateApplication)
	}
	return err
}

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.id = $1
	`
	return scanApplication(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *applicationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.id = $1
		FOR UPDATE OF a
	`
	return scanApplication(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *applicationRepo) GetByGuestID(ctx context.Context, guestApplicationID uuid.UUID) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.guest_application_id = $1
	`
	return scanApplication(r.conn(ctx).QueryRow(ctx, query, guestApplicationID))
}

func (r *applicationRepo) ListByJob(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.job_id = $1
		ORDER BY a.created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn(ctx).Query(ctx, query, jobID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *applicationRepo) RelinkGuest(ctx context.Context, guestApplicationID, candidateID uuid.UUID) (int64, error) {
	query := `
		UPDATE applications
		SET candidate_id = $2, guest_application_id = NULL, is_guest_application = FALSE, updated_at = NOW()
		WHERE guest_application_id = $1
	`
	tag, err := r.conn(ctx).Exec(ctx, query, guestApplicationID, candidateID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("relink guest application %s: %w", guestApplicationID, common.ErrDuplicateApplication)
		}
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *applicationRepo) AppendLog(ctx context.Context, entry *models.ApplicationLog) error {
	query := `
		INSERT INTO application_logs (id, application_id, from_status, to_status, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`
	return r.conn(ctx).QueryRow(ctx, query,
		entry.ID, entry.ApplicationID, entry.FromStatus, entry.ToStatus, entry.ActorID, entry.Note,
	).Scan(&entry.CreatedAt)
}

func (r *applicationRepo) ListLogs(ctx context.Context, applicationID uuid.UUID) ([]*models.ApplicationLog, error) {
	query := `
		SELECT id, application_id, from_status, to_status, actor_id, note, created_at
		FROM application_logs
		WHERE application_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.conn(ctx).Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.ApplicationLog{}
	for rows.Next() {
		entry := &models.ApplicationLog{}
		if err := rows.Scan(&entry.ID, &entry.ApplicationID, &entry.FromStatus, &entry.ToStatus,
			&entry.ActorID, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// AppendNote assigns the next index. Callers hold the application row lock.
func (r *applicationRepo) AppendNote(ctx context.Context, note *models.ApplicationNote) error {
	query := `
		INSERT INTO application_notes (id, application_id, position, text, author_id, created_at)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), -1) + 1 FROM application_notes WHERE application_id = $2), $3, $4, NOW())
		RETURNING position, created_at
	`
	return r.conn(ctx).QueryRow(ctx, query, note.ID, note.ApplicationID, note.Text, note.AuthorID).
		Scan(&note.Index, &note.CreatedAt)
}

const noteColumns = `id, application_id, position, text, author_id, created_at, edited_by, edited_at`

func scanNote(row pgx.Row) (*models.ApplicationNote, error) {
	note := &models.ApplicationNote{History: []*models.NoteEdit{}}
	err := row.Scan(&note.ID, &note.ApplicationID, &note.Index, &note.Text, &note.AuthorID, &note.CreatedAt,
		&note.EditedBy, &note.EditedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return note, nil
}

func (r *applicationRepo) GetNoteForUpdate(ctx context.Context, applicationID uuid.UUID, index int) (*models.ApplicationNote, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM application_notes
		WHERE application_id = $1 AND position = $2
		FOR UPDATE
	`
	note, err := scanNote(r.conn(ctx).QueryRow(ctx, query, applicationID, index))
	if err != nil {
		return nil, fmt.Errorf("note %d: %w", index, err)
	}
	return note, nil
}

func (r *applicationRepo) UpdateNoteText(ctx context.Context, note *models.ApplicationNote) error {
	query := `
		UPDATE application_notes
		SET text = $2, edited_by = $3, edited_at = $4
		WHERE id = $1
	`
	_, err := r.conn(ctx).Exec(ctx, query, note.ID, note.Text, note.EditedBy, note.EditedAt)
	return err
}

func (r *applicationRepo) AppendNoteEdit(ctx context.Context, edit *models.NoteEdit) error {
	query := `
		INSERT INTO application_note_edits (id, note_id, previous_text, previous_by, previous_at, edited_by, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.conn(ctx).Exec(ctx, query,
		edit.ID, edit.NoteID, edit.PreviousText, edit.PreviousBy, edit.PreviousAt, edit.EditedBy, edit.EditedAt)
	return err
}

func (r *applicationRepo) ListNotes(ctx context.Context, applicationID uuid.UUID) ([]*models.ApplicationNote, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM application_notes
		WHERE application_id = $1
		ORDER BY position ASC
	`
	rows, err := r.conn(ctx).Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}

	notes := []*models.ApplicationNote{}
	byID := map[uuid.UUID]*models.ApplicationNote{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		notes = append(notes, note)
		byID[note.ID] = note
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return notes, nil
	}

	historyQuery := `
		SELECT e.id, e.note_id, e.previous_text, e.previous_by, e.previous_at, e.edited_by, e.edited_at
		FROM application_note_edits e
		JOIN application_notes n ON n.id = e.note_id
		WHERE n.application_id = $1
		ORDER BY e.edited_at ASC, e.id ASC
	`
	rows, err = r.conn(ctx).Query(ctx, historyQuery, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		edit := &models.NoteEdit{}
		if err := rows.Scan(&edit.ID, &edit.NoteID, &edit.PreviousText, &edit.PreviousBy, &edit.PreviousAt,
			&edit.EditedBy, &edit.EditedAt); err != nil {
			return nil, err
		}
		if note, ok := byID[edit.NoteID]; ok {
			note.History = append(note.History, edit)
		}
	}
	return notes, rows.Err()
}
