package models

import "time"

type Table struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;uniqueIndex:idx_restaurant_table_number" json:"restaurant_id"`
	TableNumber  int       `gorm:"not null;uniqueIndex:idx_restaurant_table_number" json:"table_number"`
	Capacity     int       `gorm:"not null" json:"capacity"`
	Location     string    `gorm:"type:varchar(50);not null" json:"location"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
