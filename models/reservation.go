package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// ActiveStatuses are the statuses that occupy a table and a user's calendar.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// CountedStatuses are the statuses that show up in reservation volume reports.
var CountedStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusCompleted}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s ReservationStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation occupies [ReservationTime, EndTime) on its table.
type Reservation struct {
	ID                  uint                        `gorm:"primaryKey" json:"id"`
	UserID              uint                        `gorm:"not null;index" json:"user_id"`
	RestaurantID        uint                        `gorm:"not null;index" json:"restaurant_id"`
	TableID             uint                        `gorm:"not null;index:idx_reservation_table_window" json:"table_id"`
	NumGuests           int                         `gorm:"not null" json:"num_guests"`
	ReservationTime     time.Time                   `gorm:"not null;index:idx_reservation_table_window" json:"reservation_time"`
	EndTime             time.Time                   `gorm:"not null" json:"end_time"`
	Status              ReservationStatus           `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes               string                      `gorm:"type:text" json:"notes"`
	PreorderedMenuItems datatypes.JSONSlice[uint]   `json:"preordered_menu_items"`
	SpecialRequests     datatypes.JSONSlice[string] `json:"special_requests"`
	Allergens           datatypes.JSONSlice[string] `json:"allergens"`
	CreatedAt           time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time                   `gorm:"not null" json:"updated_at"`
}

func (r Reservation) Duration() time.Duration {
	return r.EndTime.Sub(r.ReservationTime)
}
