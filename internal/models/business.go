package models

import (
	"time"
)

// Business represents a tenant whose customer conversations the system handles
type Business struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PublicID      string    `gorm:"uniqueIndex;not null;size:36" json:"public_id"`
	Name          string    `gorm:"not null;size:255" json:"name"`
	InboundDomain string    `gorm:"uniqueIndex;not null;size:255" json:"inbound_domain"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Conversations []Conversation `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Business
func (Business) TableName() string {
	return "businesses"
}
