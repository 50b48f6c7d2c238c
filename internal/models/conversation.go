package models

import (
	"time"
)

// Channel identifies the messaging channel a conversation lives on
type Channel string

// Supported channels
const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelWidget   Channel = "widget"
)

// Conversation represents a customer thread within a business
type Conversation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BusinessID    uint      `gorm:"not null;index;uniqueIndex:idx_business_channel_customer" json:"business_id"`
	Channel       Channel   `gorm:"not null;size:20;uniqueIndex:idx_business_channel_customer" json:"channel"`
	CustomerName  string    `gorm:"size:255" json:"customer_name,omitempty"`
	CustomerEmail string    `gorm:"size:255;uniqueIndex:idx_business_channel_customer" json:"customer_email,omitempty"`
	CustomerPhone string    `gorm:"size:32" json:"customer_phone,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Business Business  `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"-"`
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationWithUnreadCount is used for API responses that include unread count
type ConversationWithUnreadCount struct {
	Conversation
	UnreadCount int64 `json:"unread_count"`
}
