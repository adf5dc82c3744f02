package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Subdomain            string    `json:"subdomain" db:"subdomain"`
	MaxIdentities        int       `json:"max_identities" db:"max_identities"`
	CurrentIdentityCount int       `json:"current_identity_count" db:"current_identity_count"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// QuotaUsage reports a tenant's identity capacity.
type QuotaUsage struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Max       int       `json:"max_identities"`
	Current   int       `json:"current_identity_count"`
	Remaining int       `json:"remaining"`
}

// Usage derives the quota report from the stored counters. Remaining is zero
// when the cap was lowered below current usage.
func (t *Tenant) Usage() QuotaUsage {
	remaining := t.MaxIdentities - t.CurrentIdentityCount
	if remaining < 0 {
		remaining = 0
	}
	return QuotaUsage{
		TenantID:  t.ID,
		Max:       t.MaxIdentities,
		Current:   t.CurrentIdentityCount,
		Remaining: remaining,
	}
}
