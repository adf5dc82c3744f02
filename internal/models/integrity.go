package models

// IntegrityViolation is one finding of the integrity scanner.
type IntegrityViolation struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id"`
	Detail   string `json:"detail"`
}

const (
	ViolationCounterOutOfRange = "tenant_counter_out_of_range"
	ViolationCounterMismatch   = "tenant_counter_mismatch"
	ViolationOrphanGuest       = "orphan_guest_application"
	ViolationApplicantRef      = "invalid_applicant_reference"
	ViolationHalfConverted     = "half_converted_guest"
)
