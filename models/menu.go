package models

import "time"

const (
	CategoryStarter = "Entrada"
	CategoryMain    = "Principal"
	CategoryDessert = "Postre"
	CategoryDrink   = "Bebida"
)

var MenuCategories = []string{
	CategoryStarter,
	CategoryMain,
	CategoryDessert,
	CategoryDrink,
}

func IsMenuCategory(category string) bool {
	for _, c := range MenuCategories {
		if c == category {
			return true
		}
	}
	return false
}

// MenuItem is never hard-deleted; removal clears IsAvailable.
type MenuItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;index;uniqueIndex:idx_restaurant_menu_name" json:"restaurant_id"`
	Name         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_restaurant_menu_name" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"type:varchar(30);not null" json:"category"`
	IsAvailable  bool      `gorm:"not null;default:true" json:"is_available"`
	ImageKey     *string   `gorm:"type:varchar(255)" json:"-"`
	ImageURL     string    `gorm:"-" json:"image_url,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
