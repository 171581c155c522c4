package models

import (
	"time"

	"gorm.io/datatypes"
)

// Application statuses. The workflow is a free choice among these four labels;
// any status may follow any other, including back to pending.
const (
	StatusPending  = "pending"
	StatusInReview = "in_review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var ValidStatuses = map[string]bool{
	StatusPending:  true,
	StatusInReview: true,
	StatusApproved: true,
	StatusRejected: true,
}

// Application is the unified record for all three request kinds
// (new_installation, evacuation, new_connection). Kind-specific fields
// (addresses, installation numbers, landlord details, IBAN, ...) live in the
// Details bag; the workflow never inspects them.
type Application struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Kind          string         `gorm:"size:50;not null;index" json:"kind"`
	UserID        *uint          `gorm:"index" json:"user_id"`
	ApplicantName string         `gorm:"size:100;not null" json:"applicant_name"`
	Details       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"details"`
	Status        string         `gorm:"size:20;not null;default:'pending'" json:"status"`
	SubmittedAt   time.Time      `gorm:"not null;index" json:"submitted_at"`
	ProcessedAt   *time.Time     `json:"processed_at"`
	ProcessedBy   *uint          `json:"processed_by"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Document is one binary attachment in a named slot of an application.
// Which slot names are legal depends on the application's kind; that mapping
// is enforced in the service before any query runs. Empty payloads are never
// stored: a missing row is the only representation of "no document".
type Document struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ApplicationID uint      `gorm:"not null;uniqueIndex:idx_documents_app_slot" json:"application_id"`
	Slot          string    `gorm:"size:50;not null;uniqueIndex:idx_documents_app_slot" json:"slot"`
	Data          []byte    `gorm:"type:bytea;not null" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
