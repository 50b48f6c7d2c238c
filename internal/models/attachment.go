package models

import (
	"gorm.io/datatypes"
)

// Attachment represents a file attached to a message.
// ParsedData stays null until AI extraction succeeds for the file.
type Attachment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	MessageID   uint           `gorm:"not null;index" json:"message_id"`
	Filename    string         `gorm:"size:255" json:"filename"`
	ContentType string         `gorm:"size:100" json:"content_type"`
	FilePath    string         `gorm:"size:500" json:"file_path"`
	SizeBytes   int64          `json:"size_bytes"`
	ParsedData  datatypes.JSON `json:"parsed_data,omitempty"`

	// Relationships
	Message Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

// IsPDF reports whether the attachment needs first-page rasterization
// before it can be sent to the extraction service.
func (a *Attachment) IsPDF() bool {
	return a.ContentType == "application/pdf"
}

// HasParsedData reports whether extraction has produced data for this attachment.
func (a *Attachment) HasParsedData() bool {
	return len(a.ParsedData) > 0
}
