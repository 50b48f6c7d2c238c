package models

import (
	"time"
)

// Message direction constants
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message represents a single message within a conversation
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Direction      string    `gorm:"not null;size:10;default:inbound" json:"direction"`
	SenderEmail    string    `gorm:"size:255" json:"sender_email,omitempty"`
	SenderName     string    `gorm:"size:255" json:"sender_name,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	Snippet        string    `gorm:"size:255" json:"snippet,omitempty"`
	BodyText       string    `json:"body_text,omitempty"`
	BodyHTML       string    `json:"body_html,omitempty"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	ReceivedAt     time.Time `gorm:"autoCreateTime" json:"received_at"`

	// Relationships
	Conversation Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Attachments  []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// MessageListItem is a lightweight version for list views
type MessageListItem struct {
	ID              uint      `json:"id"`
	ConversationID  uint      `json:"conversation_id"`
	Direction       string    `json:"direction"`
	SenderEmail     string    `json:"sender_email,omitempty"`
	SenderName      string    `json:"sender_name,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	Snippet         string    `json:"snippet,omitempty"`
	IsRead          bool      `json:"is_read"`
	ReceivedAt      time.Time `json:"received_at"`
	AttachmentCount int       `json:"attachment_count"`
}
