package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	StatusNew             ApplicationStatus = "New"
	StatusSelected        ApplicationStatus = "Selected"
	StatusInReview        ApplicationStatus = "In Review"
	StatusShortlisted     ApplicationStatus = "Shortlisted"
	StatusSavedForFuture  ApplicationStatus = "Saved for Future"
	StatusOutOfBudget     ApplicationStatus = "Out of Budget"
	StatusDecisionPending ApplicationStatus = "Decision Pending"
	StatusInterview       ApplicationStatus = "Interview"
	StatusOffer           ApplicationStatus = "Offer"
	StatusHired           ApplicationStatus = "Hired"
	StatusRejected        ApplicationStatus = "Rejected"
)

var knownStatuses = map[ApplicationStatus]bool{
	StatusNew: true, StatusSelected: true, StatusInReview: true, StatusShortlisted: true,
	StatusSavedForFuture: true, StatusOutOfBudget: true, StatusDecisionPending: true,
	StatusInterview: true, StatusOffer: true, StatusHired: true, StatusRejected: true,
}

func (s ApplicationStatus) Valid() bool {
	return knownStatuses[s]
}

func (s ApplicationStatus) Terminal() bool {
	return s == StatusHired || s == StatusRejected
}

// ApplicantRef identifies who applied: exactly one of RegisteredRef or GuestRef.
type ApplicantRef interface {
	isApplicantRef()
}

// RegisteredRef points at a registered candidate identity.
type RegisteredRef struct {
	IdentityID uuid.UUID
}

// GuestRef points at an anonymous guest application record.
type GuestRef struct {
	GuestApplicationID uuid.UUID
}

func (RegisteredRef) isApplicantRef() {}
func (GuestRef) isApplicantRef()      {}

// ApplicantColumns flattens ref into its storage columns.
func ApplicantColumns(ref ApplicantRef) (candidateID, guestApplicationID *uuid.UUID, isGuest bool) {
	switch r := ref.(type) {
	case RegisteredRef:
		id := r.IdentityID
		return &id, nil, false
	case GuestRef:
		id := r.GuestApplicationID
		return nil, &id, true
	}
	return nil, nil, false
}

// ApplicantFromColumns rebuilds the variant from storage columns. Rows with
// both or neither reference set violate the ledger invariant.
func ApplicantFromColumns(candidateID, guestApplicationID *uuid.UUID) (ApplicantRef, error) {
	switch {
	case candidateID != nil && guestApplicationID == nil:
		return RegisteredRef{IdentityID: *candidateID}, nil
	case candidateID == nil && guestApplicationID != nil:
		return GuestRef{GuestApplicationID: *guestApplicationID}, nil
	case candidateID != nil:
		return nil, fmt.Errorf("application references both candidate %s and guest %s", *candidateID, *guestApplicationID)
	default:
		return nil, fmt.Errorf("application has no applicant reference")
	}
}

// CandidateSnapshot is copied on create and never resynchronized.
type CandidateSnapshot struct {
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone,omitempty"`
	Location        string         `json:"location,omitempty"`
	LinkedInURL     string         `json:"linkedin_url,omitempty"`
	CoverLetter     string         `json:"cover_letter,omitempty"`
	ResumeObjectKey string         `json:"resume_object_key,omitempty"`
	ResumeProfile   *ResumeProfile `json:"resume_profile,omitempty"`
}

// ResumeProfile is the best-effort output of résumé text extraction.
type ResumeProfile struct {
	ContentType string   `json:"content_type,omitempty"`
	SizeBytes   int64    `json:"size_bytes,omitempty"`
	Text        string   `json:"text,omitempty"`
	Skills      []string `json:"skills,omitempty"`
}

type Application struct {
	ID        uuid.UUID
	JobID     uuid.UUID
	TenantID  uuid.UUID
	Applicant ApplicantRef
	Status    ApplicationStatus
	Snapshot  CandidateSnapshot
	Notes     []*ApplicationNote
	Logs      []*ApplicationLog
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Application) IsGuestApplication() bool {
	_, ok := a.Applicant.(GuestRef)
	return ok
}

type applicationJSON struct {
	ID                 uuid.UUID          `json:"id"`
	JobID              uuid.UUID          `json:"job_id"`
	TenantID           uuid.UUID          `json:"tenant_id"`
	CandidateID        *uuid.UUID         `json:"candidate_id,omitempty"`
	GuestApplicationID *uuid.UUID         `json:"guest_application_id,omitempty"`
	IsGuestApplication bool               `json:"is_guest_application"`
	Status             ApplicationStatus  `json:"status"`
	CandidateSnapshot  CandidateSnapshot  `json:"candidate_snapshot"`
	Notes              []*ApplicationNote `json:"notes"`
	Logs               []*ApplicationLog  `json:"logs"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (a *Application) MarshalJSON() ([]byte, error) {
	candidateID, guestID, isGuest := ApplicantColumns(a.Applicant)
	notes := a.Notes
	if notes == nil {
		notes = []*ApplicationNote{}
	}
	logs := a.Logs
	if logs == nil {
		logs = []*ApplicationLog{}
	}
	return json.Marshal(applicationJSON{
		ID:                 a.ID,
		JobID:              a.JobID,
		TenantID:           a.TenantID,
		CandidateID:        candidateID,
		GuestApplicationID: guestID,
		IsGuestApplication: isGuest,
		Status:             a.Status,
		CandidateSnapshot:  a.Snapshot,
		Notes:              notes,
		Logs:               logs,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	})
}

// ApplicationLog is one immutable audit entry.
type ApplicationLog struct {
	ID            uuid.UUID         `json:"id"`
	ApplicationID uuid.UUID         `json:"application_id"`
	FromStatus    ApplicationStatus `json:"from_status"`
	ToStatus      ApplicationStatus `json:"to_status"`
	ActorID       *uuid.UUID        `json:"actor_id,omitempty"`
	Note          *string           `json:"note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type ApplicationNote struct {
	ID            uuid.UUID   `json:"id"`
	ApplicationID uuid.UUID   `json:"application_id"`
	Index         int         `json:"index"`
	Text          string      `json:"text"`
	AuthorID      uuid.UUID   `json:"author_id"`
	CreatedAt     time.Time   `json:"created_at"`
	EditedBy      *uuid.UUID  `json:"edited_by,omitempty"`
	EditedAt      *time.Time  `json:"edited_at,omitempty"`
	History       []*NoteEdit `json:"history"`
}

// NoteEdit preserves the text a note had before an edit.
type NoteEdit struct {
	ID           uuid.UUID `json:"id"`
	NoteID       uuid.UUID `json:"note_id"`
	PreviousText string    `json:"previous_text"`
	PreviousBy   uuid.UUID `json:"previous_by"`
	PreviousAt   time.Time `json:"previous_at"`
	EditedBy     uuid.UUID `json:"edited_by"`
	EditedAt     time.Time `json:"edited_at"`
}
