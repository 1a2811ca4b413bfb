package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"gorm.io/gorm"
)

const (
	PeriodDay  = "day"
	PeriodWeek = "week"

	DefaultTopDishes = 5
)

type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

type DishCount struct {
	MenuItemID uint   `json:"menu_item_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

type RestaurantOccupancy struct {
	RestaurantID        uint    `json:"restaurant_id"`
	RestaurantName      string  `json:"restaurant_name"`
	TotalTables         int64   `json:"total_tables"`
	ReservedTables      int64   `json:"reserved_tables"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
}

// DashboardService computes read-only statistics for administrators.
type DashboardService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewDashboardService(db *gorm.DB, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{DB: db, now: now}
}

// ReservationsByPeriod counts non-cancelled reservations per UTC day, or per
// week keyed by that week's Monday. Keys are ascending.
func (s *DashboardService) ReservationsByPeriod(ctx context.Context, actor Actor, period string) ([]PeriodCount, error) {
	if err := requireAdmin(actor, "view dashboard statistics"); err != nil {
		return nil, err
	}
	if period != PeriodDay && period != PeriodWeek {
		return nil, apperrors.BadRequest("Period must be 'day' or 'week'.")
	}

	var times []time.Time
	err := s.DB.WithContext(ctx).Model(&models.Reservation{}).
		Where("status IN ?", models.CountedStatuses).
		Pluck("reservation_time", &times).Error
	if err != nil {
		return nil, fmt.Errorf("load reservation times: %w", err)
	}

	counts := make(map[string]int)
	for _, t := range times {
		t = t.UTC()
		if period == PeriodWeek {
			t = t.AddDate(0, 0, -isoWeekdayOffset(t))
		}
		counts[t.Format("2006-01-02")]++
	}

	out := make([]PeriodCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PeriodCount{Period: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// TopPreorderedDishes ranks menu items by how often they were pre-ordered.
// Ties keep the order in which ids were first seen.
func (s *DashboardService) TopPreorderedDishes(ctx context.Context, actor Actor, limit int) ([]DishCount, error) {
	if err := requireAdmin(actor, "view dashboard statistics"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopDishes
	}

	db := s.DB.WithContext(ctx)
	var reservations []models.Reservation
	if err := db.Select("id", "preordered_menu_items").Order("id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("load pre-orders: %w", err)
	}

	var ranked []DishCount
	index := make(map[uint]int)
	for _, r := range reservations {
		for _, id := range r.PreorderedMenuItems {
			i, seen := index[id]
			if !seen {
				i = len(ranked)
				index[id] = i
				ranked = append(ranked, DishCount{MenuItemID: id})
			}
			ranked[i].Count++
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]DishCount, 0, len(ranked))
	for _, d := range ranked {
		var item models.MenuItem
		err := db.Select("id", "name").Where("id = ?", d.MenuItemID).Limit(1).Find(&item).Error
		if err != nil {
			return nil, fmt.Errorf("load menu item %d: %w", d.MenuItemID, err)
		}
		if item.ID == 0 {
			continue
		}
		d.Name = item.Name
		out = append(out, d)
	}
	return out, nil
}

// Occupancy reports, per restaurant, the share of tables holding an active
// reservation that starts now or later.
func (s *DashboardService) Occupancy(ctx context.Context, actor Actor) ([]RestaurantOccupancy, error) {
	if err := requireAdmin(actor, "view dashboard statistics"); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var restaurants []models.Restaurant
	if err := db.Order("id ASC").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}

	now := s.now().UTC()
	out := make([]RestaurantOccupancy, 0, len(restaurants))
	for _, r := range restaurants {
		row := RestaurantOccupancy{RestaurantID: r.ID, RestaurantName: r.Name}

		if err := db.Model(&models.Table{}).Where("restaurant_id = ?", r.ID).Count(&row.TotalTables).Error; err != nil {
			return nil, fmt.Errorf("count tables of restaurant %d: %w", r.ID, err)
		}

		err := db.Model(&models.Reservation{}).
			Where("restaurant_id = ?", r.ID).
			Where("status IN ?", models.ActiveStatuses).
			Where("reservation_time >= ?", now).
			Distinct("table_id").
			Count(&row.ReservedTables).Error
		if err != nil {
			return nil, fmt.Errorf("count reserved tables of restaurant %d: %w", r.ID, err)
		}

		if row.TotalTables > 0 {
			pct := float64(row.ReservedTables) / float64(row.TotalTables) * 100
			row.OccupancyPercentage = math.Round(pct*100) / 100
		}
		out = append(out, row)
	}
	return out, nil
}

func isoWeekdayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
