package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/storage"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"gorm.io/gorm"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type MenuItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type MenuItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsAvailable *bool   `json:"is_available"`
}

// MenuService is the catalog of dishes offered by each restaurant.
type MenuService struct {
	DB     *gorm.DB
	images storage.Store
}

func NewMenuService(db *gorm.DB, images storage.Store) *MenuService {
	return &MenuService{DB: db, images: images}
}

func (s *MenuService) CreateMenuItem(ctx context.Context, actor Actor, restaurantID uint, in MenuItemInput) (*models.MenuItem, error) {
	if err := requireAdmin(actor, "manage the menu"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.BadRequest("Menu item name is required.")
	}
	if err := checkCategory(in.Category); err != nil {
		return nil, err
	}

	item := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         name,
		Description:  in.Description,
		Category:     in.Category,
		IsAvailable:  true,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findRestaurant(tx, restaurantID, "Restaurant not found."); err != nil {
			return err
		}
		if err := ensureMenuNameFree(tx, restaurantID, name, 0); err != nil {
			return err
		}
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("create menu item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListMenu returns a restaurant's dishes. Unavailable (soft-deleted) dishes
// are hidden unless includeUnavailable is set.
func (s *MenuService) ListMenu(ctx context.Context, restaurantID uint, includeUnavailable bool) ([]models.MenuItem, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findRestaurant(db, restaurantID, "Restaurant not found."); err != nil {
		return nil, err
	}

	q := db.Where("restaurant_id = ?", restaurantID)
	if !includeUnavailable {
		q = q.Where("is_available = ?", true)
	}

	items := []models.MenuItem{}
	if err := q.Order("category ASC").Order("name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list menu of restaurant %d: %w", restaurantID, err)
	}
	for i := range items {
		s.fillImageURL(ctx, &items[i])
	}
	return items, nil
}

func (s *MenuService) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	item, err := findMenuItem(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	s.fillImageURL(ctx, item)
	return item, nil
}

func (s *MenuService) UpdateMenuItem(ctx context.Context, actor Actor, id uint, patch MenuItemPatch) (*models.MenuItem, error) {
	if err := requireAdmin(actor, "manage the menu"); err != nil {
		return nil, err
	}

	var item *models.MenuItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = findMenuItem(tx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperrors.BadRequest("Menu item name is required.")
			}
			if err := ensureMenuNameFree(tx, item.RestaurantID, name, item.ID); err != nil {
				return err
			}
			item.Name = name
		}
		if patch.Category != nil {
			if err := checkCategory(*patch.Category); err != nil {
				return err
			}
			item.Category = *patch.Category
		}
		if patch.Description != nil {
			item.Description = *patch.Description
		}
		if patch.IsAvailable != nil {
			item.IsAvailable = *patch.IsAvailable
		}

		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("update menu item %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.fillImageURL(ctx, item)
	return item, nil
}

// DeleteMenuItem marks the dish unavailable; the row is kept so past
// pre-orders still resolve.
func (s *MenuService) DeleteMenuItem(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor, "manage the menu"); err != nil {
		return err
	}

	db := s.DB.WithContext(ctx)
	item, err := findMenuItem(db, id)
	if err != nil {
		return err
	}
	if err := db.Model(item).Update("is_available", false).Error; err != nil {
		return fmt.Errorf("disable menu item %d: %w", id, err)
	}
	utils.InfoLogger.WithField("menu_item_id", id).Info("Menu item marked unavailable")
	return nil
}

// AttachImage stores a new picture for the dish and drops the previous one.
func (s *MenuService) AttachImage(ctx context.Context, actor Actor, id uint, filename, contentType string, body io.Reader) (*models.MenuItem, error) {
	if err := requireAdmin(actor, "manage the menu"); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperrors.BadRequest("Unsupported image type %q; use JPEG, PNG or WebP.", contentType)
	}
	if contentType == "image/jpeg" && strings.EqualFold(filepath.Ext(filename), ".jpeg") {
		ext = ".jpeg"
	}

	db := s.DB.WithContext(ctx)
	item, err := findMenuItem(db, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("menu/%d/%d/%s%s", item.RestaurantID, item.ID, uuid.NewString(), ext)
	if err := s.images.Put(ctx, key, body, contentType); err != nil {
		return nil, fmt.Errorf("store image for menu item %d: %w", id, err)
	}

	var previous string
	if item.ImageKey != nil {
		previous = *item.ImageKey
	}
	if err := db.Model(item).Update("image_key", key).Error; err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			utils.ErrorLogger.WithError(delErr).WithField("key", key).Warn("Failed to remove orphaned image")
		}
		return nil, fmt.Errorf("save image key for menu item %d: %w", id, err)
	}
	item.ImageKey = &key

	if previous != "" && previous != key {
		if err := s.images.Delete(ctx, previous); err != nil {
			utils.ErrorLogger.WithError(err).WithField("key", previous).Warn("Failed to remove replaced image")
		}
	}

	s.fillImageURL(ctx, item)
	return item, nil
}

func (s *MenuService) fillImageURL(ctx context.Context, item *models.MenuItem) {
	if s.images == nil || item.ImageKey == nil || *item.ImageKey == "" {
		return
	}
	url, err := s.images.URL(ctx, *item.ImageKey)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("menu_item_id", item.ID).Warn("Failed to resolve image URL")
		return
	}
	item.ImageURL = url
}

func checkCategory(category string) error {
	if !models.IsMenuCategory(category) {
		return apperrors.BadRequest("Invalid menu category. Must be one of: %s.", strings.Join(models.MenuCategories, ", "))
	}
	return nil
}

func findMenuItem(tx *gorm.DB, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := tx.Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Menu item not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load menu item %d: %w", id, err)
	}
	return &item, nil
}

func ensureMenuNameFree(tx *gorm.DB, restaurantID uint, name string, exceptID uint) error {
	var n int64
	q := tx.Model(&models.MenuItem{}).Where("restaurant_id = ? AND name = ?", restaurantID, name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check menu item name: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict("Menu item with this name already exists for this restaurant.")
	}
	return nil
}
