package services

import (
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func requireAdmin(a Actor, action string) error {
	if !a.IsAdmin() {
		return apperrors.Forbidden("Only administrators can %s.", action)
	}
	return nil
}
