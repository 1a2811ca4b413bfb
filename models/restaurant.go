package models

import (
	"time"

	"gorm.io/datatypes"
)

// Restaurant operating hours are wall-clock times of day, evaluated in UTC.
type Restaurant struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Location    string         `gorm:"type:varchar(255);not null" json:"location"`
	OpeningTime datatypes.Time `gorm:"not null" json:"opening_time"`
	ClosingTime datatypes.Time `gorm:"not null" json:"closing_time"`
	Tables      []Table        `gorm:"foreignKey:RestaurantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"tables,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

// Opens returns the opening time as an offset from midnight.
func (r Restaurant) Opens() time.Duration {
	return time.Duration(r.OpeningTime)
}

// Closes returns the closing time as an offset from midnight.
func (r Restaurant) Closes() time.Duration {
	return time.Duration(r.ClosingTime)
}

// CrossesMidnight reports whether closing is not after opening on the same day.
func (r Restaurant) CrossesMidnight() bool {
	return r.ClosingTime <= r.OpeningTime
}
