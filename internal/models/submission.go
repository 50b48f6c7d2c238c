package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the state of a billing submission attempt
type SubmissionStatus string

// Possible values for SubmissionStatus
const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionCompleted SubmissionStatus = "completed"
	SubmissionFailed    SubmissionStatus = "failed"
)

// submissionTransitions lists the allowed status transitions.
// A resend moves a failed submission back to pending before the next attempt.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionPending: {SubmissionCompleted, SubmissionFailed},
	SubmissionFailed:  {SubmissionPending},
}

// CanTransitionTo reports whether moving from s to next is a valid transition.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known status value.
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionPending, SubmissionCompleted, SubmissionFailed:
		return true
	}
	return false
}

// Submission records one billing-reconciliation attempt for an attachment.
// Multiple rows may exist per attachment; the most recent one (created_at
// descending) is authoritative for viewers. Revision increments on every
// store write and orders realtime pushes.
type Submission struct {
	ID                    uint             `gorm:"primaryKey" json:"id"`
	AttachmentID          uint             `gorm:"not null;index" json:"attachment_id"`
	Status                SubmissionStatus `gorm:"not null;size:20;default:pending" json:"submission_status"`
	HTTPStatus            *int             `json:"http_status,omitempty"`
	RetryCount            int              `gorm:"default:0" json:"retry_count"`
	ErrorMessage          string           `json:"error_message,omitempty"`
	OnebillResponse       datatypes.JSON   `json:"onebill_response,omitempty"`
	Phone                 string           `gorm:"size:32" json:"phone,omitempty"`
	MPRN                  string           `gorm:"column:mprn;size:20" json:"mprn,omitempty"`
	MCCType               string           `gorm:"column:mcc_type;size:20" json:"mcc_type,omitempty"`
	DGType                string           `gorm:"column:dg_type;size:20" json:"dg_type,omitempty"`
	GPRN                  string           `gorm:"column:gprn;size:20" json:"gprn,omitempty"`
	ManualPayloadOverride datatypes.JSON   `json:"manual_payload_override,omitempty"`
	Revision              uint64           `gorm:"default:0" json:"revision"`
	CreatedAt             time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	SubmittedAt           *time.Time       `json:"submitted_at,omitempty"`

	// Relationships
	Attachment Attachment `gorm:"foreignKey:AttachmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}
