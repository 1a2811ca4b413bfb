package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MinTableCapacity = 2
	MaxTableCapacity = 12
)

type RestaurantInput struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

type RestaurantPatch struct {
	Name        *string `json:"name"`
	Location    *string `json:"location"`
	OpeningTime *string `json:"opening_time"`
	ClosingTime *string `json:"closing_time"`
}

type TableInput struct {
	TableNumber int    `json:"table_number"`
	Capacity    int    `json:"capacity"`
	Location    string `json:"location"`
}

type TablePatch struct {
	TableNumber *int    `json:"table_number"`
	Capacity    *int    `json:"capacity"`
	Location    *string `json:"location"`
}

type TableFilter struct {
	MinCapacity *int
	Location    string
}

// RestaurantService manages restaurants and their tables.
type RestaurantService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewRestaurantService(db *gorm.DB, now func() time.Time) *RestaurantService {
	if now == nil {
		now = time.Now
	}
	return &RestaurantService{DB: db, now: now}
}

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(value string) (datatypes.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0), nil
		}
	}
	return 0, apperrors.BadRequest("Invalid time of day %q, expected HH:MM.", value)
}

func (s *RestaurantService) CreateRestaurant(ctx context.Context, actor Actor, in RestaurantInput) (*models.Restaurant, error) {
	if err := requireAdmin(actor, "create restaurants"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Location) == "" {
		return nil, apperrors.BadRequest("Restaurant name and location are required.")
	}

	opening, err := ParseClock(in.OpeningTime)
	if err != nil {
		return nil, err
	}
	closing, err := ParseClock(in.ClosingTime)
	if err != nil {
		return nil, err
	}
	if closing <= opening {
		return nil, apperrors.BadRequest("Closing time must be after opening time.")
	}

	restaurant := &models.Restaurant{
		Name:        strings.TrimSpace(in.Name),
		Location:    strings.TrimSpace(in.Location),
		OpeningTime: opening,
		ClosingTime: closing,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRestaurantNameFree(tx, restaurant.Name, 0); err != nil {
			return err
		}
		if err := tx.Create(restaurant).Error; err != nil {
			return fmt.Errorf("create restaurant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("restaurant_id", restaurant.ID).Info("Restaurant created")
	return restaurant, nil
}

func (s *RestaurantService) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *RestaurantService) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	return findRestaurant(s.DB.WithContext(ctx), id, "Restaurant not found.")
}

func (s *RestaurantService) UpdateRestaurant(ctx context.Context, actor Actor, id uint, patch RestaurantPatch) (*models.Restaurant, error) {
	if err := requireAdmin(actor, "update restaurants"); err != nil {
		return nil, err
	}

	var restaurant *models.Restaurant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		restaurant, err = findRestaurant(tx, id, "Restaurant not found.")
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperrors.BadRequest("Restaurant name cannot be empty.")
			}
			if err := ensureRestaurantNameFree(tx, name, restaurant.ID); err != nil {
				return err
			}
			restaurant.Name = name
		}
		if patch.Location != nil {
			restaurant.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.OpeningTime != nil {
			if restaurant.OpeningTime, err = ParseClock(*patch.OpeningTime); err != nil {
				return err
			}
		}
		if patch.ClosingTime != nil {
			if restaurant.ClosingTime, err = ParseClock(*patch.ClosingTime); err != nil {
				return err
			}
		}
		if restaurant.ClosingTime <= restaurant.OpeningTime {
			return apperrors.BadRequest("Closing time must be after opening time.")
		}

		if err := tx.Save(restaurant).Error; err != nil {
			return fmt.Errorf("update restaurant %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restaurant, nil
}

// DeleteRestaurant refuses while the restaurant still owns tables.
func (s *RestaurantService) DeleteRestaurant(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor, "delete restaurants"); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		restaurant, err := findRestaurant(tx, id, "Restaurant not found.")
		if err != nil {
			return err
		}

		var tables int64
		if err := tx.Model(&models.Table{}).Where("restaurant_id = ?", restaurant.ID).Count(&tables).Error; err != nil {
			return fmt.Errorf("count tables of restaurant %d: %w", id, err)
		}
		if tables > 0 {
			return apperrors.BadRequest("Cannot delete restaurant with associated tables. Delete tables first.")
		}

		if err := tx.Delete(restaurant).Error; err != nil {
			return fmt.Errorf("delete restaurant %d: %w", id, err)
		}
		utils.InfoLogger.WithField("restaurant_id", id).Info("Restaurant deleted")
		return nil
	})
}

func (s *RestaurantService) CreateTable(ctx context.Context, actor Actor, restaurantID uint, in TableInput) (*models.Table, error) {
	if err := requireAdmin(actor, "create tables"); err != nil {
		return nil, err
	}

	var table *models.Table
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findRestaurant(tx, restaurantID, "Restaurant not found."); err != nil {
			return err
		}
		if err := checkTableCapacity(in.Capacity); err != nil {
			return err
		}
		if err := ensureTableNumberFree(tx, restaurantID, in.TableNumber, 0); err != nil {
			return err
		}

		table = &models.Table{
			RestaurantID: restaurantID,
			TableNumber:  in.TableNumber,
			Capacity:     in.Capacity,
			Location:     strings.TrimSpace(in.Location),
		}
		if err := tx.Create(table).Error; err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// ListTables returns the restaurant's tables, optionally narrowed to a
// minimum capacity and an exact location.
func (s *RestaurantService) ListTables(ctx context.Context, restaurantID uint, filter TableFilter) ([]models.Table, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findRestaurant(db, restaurantID, "Restaurant not found."); err != nil {
		return nil, err
	}

	q := db.Where("restaurant_id = ?", restaurantID)
	if filter.MinCapacity != nil {
		q = q.Where("capacity >= ?", *filter.MinCapacity)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}

	tables := []models.Table{}
	if err := q.Order("table_number ASC").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("list tables of restaurant %d: %w", restaurantID, err)
	}
	return tables, nil
}

func (s *RestaurantService) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Table not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load table %d: %w", id, err)
	}
	return &table, nil
}

func (s *RestaurantService) UpdateTable(ctx context.Context, actor Actor, id uint, patch TablePatch) (*models.Table, error) {
	if err := requireAdmin(actor, "update tables"); err != nil {
		return nil, err
	}

	var table models.Table
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Table not found.")
		}
		if err != nil {
			return fmt.Errorf("load table %d: %w", id, err)
		}

		if patch.Capacity != nil {
			if err := checkTableCapacity(*patch.Capacity); err != nil {
				return err
			}
			if *patch.Capacity < table.Capacity {
				if err := s.ensureNoLargerParties(tx, table.ID, *patch.Capacity); err != nil {
					return err
				}
			}
			table.Capacity = *patch.Capacity
		}
		if patch.TableNumber != nil && *patch.TableNumber != table.TableNumber {
			if err := ensureTableNumberFree(tx, table.RestaurantID, *patch.TableNumber, table.ID); err != nil {
				return err
			}
			table.TableNumber = *patch.TableNumber
		}
		if patch.Location != nil {
			table.Location = strings.TrimSpace(*patch.Location)
		}

		if err := tx.Save(&table).Error; err != nil {
			return fmt.Errorf("update table %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// DeleteTable refuses while an active reservation on the table has not ended yet.
func (s *RestaurantService) DeleteTable(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor, "delete tables"); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		err := tx.Where("id = ?", id).First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Table not found.")
		}
		if err != nil {
			return fmt.Errorf("load table %d: %w", id, err)
		}

		var upcoming int64
		err = tx.Model(&models.Reservation{}).
			Where("table_id = ?", table.ID).
			Where("status IN ?", models.ActiveStatuses).
			Where("end_time > ?", s.now().UTC()).
			Count(&upcoming).Error
		if err != nil {
			return fmt.Errorf("count reservations of table %d: %w", id, err)
		}
		if upcoming > 0 {
			return apperrors.Conflict("Cannot delete a table with active upcoming reservations.")
		}

		if err := tx.Delete(&table).Error; err != nil {
			return fmt.Errorf("delete table %d: %w", id, err)
		}
		return nil
	})
}

// ensureNoLargerParties refuses a capacity below the party size of an active
// reservation on the table that has not ended yet.
func (s *RestaurantService) ensureNoLargerParties(tx *gorm.DB, tableID uint, capacity int) error {
	var larger int64
	err := tx.Model(&models.Reservation{}).
		Where("table_id = ?", tableID).
		Where("status IN ?", models.ActiveStatuses).
		Where("end_time > ?", s.now().UTC()).
		Where("num_guests > ?", capacity).
		Count(&larger).Error
	if err != nil {
		return fmt.Errorf("count reservations of table %d: %w", tableID, err)
	}
	if larger > 0 {
		return apperrors.Conflict("Cannot reduce capacity below the party size of an active reservation (%d guests max).", capacity)
	}
	return nil
}

func checkTableCapacity(capacity int) error {
	if capacity < MinTableCapacity || capacity > MaxTableCapacity {
		return apperrors.BadRequest("Table capacity must be between %d and %d.", MinTableCapacity, MaxTableCapacity)
	}
	return nil
}

func ensureRestaurantNameFree(tx *gorm.DB, name string, exceptID uint) error {
	var n int64
	q := tx.Model(&models.Restaurant{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check restaurant name: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict("Restaurant with this name already exists.")
	}
	return nil
}

func ensureTableNumberFree(tx *gorm.DB, restaurantID uint, number int, exceptID uint) error {
	var n int64
	q := tx.Model(&models.Table{}).Where("restaurant_id = ? AND table_number = ?", restaurantID, number)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check table number: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict("Table with this number already exists for this restaurant.")
	}
	return nil
}
