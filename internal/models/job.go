package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusDraft     = "draft"
	JobStatusPublished = "published"
	JobStatusClosed    = "closed"
)

type Job struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	TenantID         uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"description" db:"description"`
	Location         string     `json:"location" db:"location"`
	Status           string     `json:"status" db:"status"`
	Deadline         *time.Time `json:"deadline,omitempty" db:"deadline"`
	MaxApplications  *int       `json:"max_applications,omitempty" db:"max_applications"`
	ApplicationCount int        `json:"application_count" db:"application_count"`
	CreatedBy        uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
