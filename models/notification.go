package models

import (
	"time"
)

// Notification is the persisted trail of reservation events.
type Notification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"event_id"`
	EventType     string    `gorm:"type:varchar(50);not null;index" json:"event_type"`
	ReservationID uint      `gorm:"not null;index" json:"reservation_id"`
	UserID        *uint     `gorm:"index" json:"user_id,omitempty"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}
