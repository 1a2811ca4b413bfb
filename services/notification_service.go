package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/restaurant-reservations/models"
	"gorm.io/gorm"
)

const maxNotificationPage = 200

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// List returns the most recent persisted events. Clients see only their own.
func (s *NotificationService) List(ctx context.Context, actor Actor, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxNotificationPage {
		limit = maxNotificationPage
	}

	q := s.DB.WithContext(ctx).Order("id DESC").Limit(limit)
	if !actor.IsAdmin() {
		q = q.Where("user_id = ?", actor.UserID)
	}

	notifications := []models.Notification{}
	if err := q.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}
