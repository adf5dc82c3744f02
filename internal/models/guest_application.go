package models

import (
	"time"

	"github.com/google/uuid"
)

// GuestCandidateInfo is the denormalized applicant data of a guest submission.
type GuestCandidateInfo struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Location    string `json:"location,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

type GuestApplication struct {
	ID              uuid.UUID          `json:"id"`
	JobID           uuid.UUID          `json:"job_id"`
	CandidateInfo   GuestCandidateInfo `json:"candidate_info"`
	TrackingToken   string             `json:"-"` // capability; only returned once on submission
	ConvertedToUser bool               `json:"converted_to_user"`
	ConvertedUserID *uuid.UUID         `json:"converted_user_id,omitempty"`
	ConvertedAt     *time.Time         `json:"converted_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// GuestTracking is what a tracking-token holder may see.
type GuestTracking struct {
	GuestApplicationID uuid.UUID          `json:"guest_application_id"`
	JobID              uuid.UUID          `json:"job_id"`
	JobTitle           string             `json:"job_title"`
	Status             ApplicationStatus  `json:"status,omitempty"`
	CandidateInfo      GuestCandidateInfo `json:"candidate_info"`
	ConvertedToUser    bool               `json:"converted_to_user"`
	SubmittedAt        time.Time          `json:"submitted_at"`
}
