package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MinGuests          = 2
	MaxPreorderItems   = 5
	CancellationNotice = time.Hour
	MaxDurationHours   = 24
)

type CreateReservationRequest struct {
	RestaurantID        uint      `json:"restaurant_id"`
	TableID             uint      `json:"table_id"`
	NumGuests           int       `json:"num_guests"`
	ReservationTime     time.Time `json:"reservation_time"`
	DurationHours       *float64  `json:"duration_hours"`
	PreorderedMenuItems []uint    `json:"preordered_menu_items"`
	Notes               string    `json:"notes"`
	SpecialRequests     []string  `json:"special_requests"`
	Allergens           []string  `json:"allergens"`
}

// UpdateReservationRequest is a partial update: nil fields are left untouched.
type UpdateReservationRequest struct {
	NumGuests           *int                      `json:"num_guests"`
	ReservationTime     *time.Time                `json:"reservation_time"`
	DurationHours       *float64                  `json:"duration_hours"`
	Status              *models.ReservationStatus `json:"status"`
	Notes               *string                   `json:"notes"`
	PreorderedMenuItems *[]uint                   `json:"preordered_menu_items"`
	SpecialRequests     *[]string                 `json:"special_requests"`
	Allergens           *[]string                 `json:"allergens"`
}

type ReservationFilter struct {
	Date         *time.Time
	RestaurantID *uint
}

type ReservationService struct {
	DB              *gorm.DB
	notifier        Notifier
	now             func() time.Time
	defaultDuration time.Duration
}

type ReservationOption func(*ReservationService)

func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) { s.now = now }
}

func WithDefaultDuration(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.defaultDuration = d
		}
	}
}

func NewReservationService(db *gorm.DB, notifier Notifier, opts ...ReservationOption) *ReservationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &ReservationService{
		DB:              db,
		notifier:        notifier,
		now:             time.Now,
		defaultDuration: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type timeWindow struct {
	start time.Time
	end   time.Time
}

func (s *ReservationService) CreateReservation(ctx context.Context, actor Actor, req CreateReservationRequest) (*models.Reservation, error) {
	var (
		reservation    *models.Reservation
		restaurantName string
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		restaurant, err := findRestaurant(tx, req.RestaurantID, "Restaurant not found.")
		if err != nil {
			return err
		}

		table, err := lockTable(tx, req.RestaurantID, req.TableID, "Table not found for this restaurant.")
		if err != nil {
			return err
		}

		if err := checkGuests(req.NumGuests, table); err != nil {
			return err
		}

		duration, err := s.resolveDuration(req.DurationHours, s.defaultDuration)
		if err != nil {
			return err
		}

		window, err := bookingWindow(restaurant, req.ReservationTime, duration, "Reservation")
		if err != nil {
			return err
		}

		if err := lockUser(tx, actor.UserID); err != nil {
			return err
		}

		if err := checkTableFree(tx, table.ID, window, 0, "Table is already reserved for the requested time slot."); err != nil {
			return err
		}

		if err := checkUserFree(tx, actor.UserID, window, 0, "You already have an active reservation that overlaps with this time."); err != nil {
			return err
		}

		if err := checkPreorders(tx, restaurant.ID, req.PreorderedMenuItems); err != nil {
			return err
		}

		reservation = &models.Reservation{
			UserID:              actor.UserID,
			RestaurantID:        restaurant.ID,
			TableID:             table.ID,
			NumGuests:           req.NumGuests,
			ReservationTime:     window.start,
			EndTime:             window.end,
			Status:              models.StatusPending,
			Notes:               req.Notes,
			PreorderedMenuItems: datatypes.JSONSlice[uint](nonNilIDs(req.PreorderedMenuItems)),
			SpecialRequests:     datatypes.JSONSlice[string](nonNilStrings(req.SpecialRequests)),
			Allergens:           datatypes.JSONSlice[string](nonNilStrings(req.Allergens)),
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		restaurantName = restaurant.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(map[string]interface{}{
		"reservation_id": reservation.ID,
		"user_id":        reservation.UserID,
		"table_id":       reservation.TableID,
	}).Info("Reservation created")

	now := s.now()
	s.notifier.Notify(reservationCreatedEvent(reservation, restaurantName, now))
	if len(reservation.PreorderedMenuItems) > 0 {
		s.notifier.Notify(preorderRegisteredEvent(reservation, now))
	}

	return reservation, nil
}

// UpdateReservation applies patch in a fixed order: time window, guests,
// pre-orders, free-text fields, then status.
func (s *ReservationService) UpdateReservation(ctx context.Context, actor Actor, id uint, patch UpdateReservationRequest) (*models.Reservation, error) {
	var (
		reservation *models.Reservation
		cancelled   bool
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = lockReservation(tx, id)
		if err != nil {
			return err
		}

		if !actor.IsAdmin() && reservation.UserID != actor.UserID {
			return apperrors.Forbidden("You can only modify your own reservations.")
		}
		if reservation.Status != models.StatusPending {
			return apperrors.BadRequest("Only pending reservations can be modified.")
		}

		if patch.ReservationTime != nil || patch.DurationHours != nil {
			restaurant, err := findRestaurant(tx, reservation.RestaurantID, "Associated restaurant not found.")
			if err != nil {
				return err
			}

			start := reservation.ReservationTime
			if patch.ReservationTime != nil {
				start = *patch.ReservationTime
			}
			duration, err := s.resolveDuration(patch.DurationHours, reservation.Duration())
			if err != nil {
				return err
			}

			window, err := bookingWindow(restaurant, start, duration, "New reservation")
			if err != nil {
				return err
			}

			if _, err := lockTable(tx, reservation.RestaurantID, reservation.TableID, "Associated table not found."); err != nil {
				return err
			}
			if err := lockUser(tx, reservation.UserID); err != nil {
				return err
			}

			if err := checkTableFree(tx, reservation.TableID, window, reservation.ID, "Table is already reserved for the new requested time slot."); err != nil {
				return err
			}
			if err := checkUserFree(tx, reservation.UserID, window, reservation.ID, "You already have an active reservation that overlaps with the new time."); err != nil {
				return err
			}

			reservation.ReservationTime = window.start
			reservation.EndTime = window.end
		}

		if patch.NumGuests != nil {
			table, err := findTable(tx, reservation.RestaurantID, reservation.TableID, "Associated table not found.")
			if err != nil {
				return err
			}
			if err := checkGuests(*patch.NumGuests, table); err != nil {
				return err
			}
			reservation.NumGuests = *patch.NumGuests
		}

		if patch.PreorderedMenuItems != nil {
			if err := checkPreorders(tx, reservation.RestaurantID, *patch.PreorderedMenuItems); err != nil {
				return err
			}
			reservation.PreorderedMenuItems = datatypes.JSONSlice[uint](nonNilIDs(*patch.PreorderedMenuItems))
		}

		if patch.Notes != nil {
			reservation.Notes = *patch.Notes
		}
		if patch.SpecialRequests != nil {
			reservation.SpecialRequests = datatypes.JSONSlice[string](nonNilStrings(*patch.SpecialRequests))
		}
		if patch.Allergens != nil {
			reservation.Allergens = datatypes.JSONSlice[string](nonNilStrings(*patch.Allergens))
		}

		if patch.Status != nil {
			if !actor.IsAdmin() {
				return apperrors.Forbidden("Clients cannot change reservation status directly.")
			}
			if !patch.Status.Valid() {
				return apperrors.BadRequest("Invalid reservation status %q.", *patch.Status)
			}
			cancelled = *patch.Status == models.StatusCancelled
			reservation.Status = *patch.Status
		}

		if err := tx.Save(reservation).Error; err != nil {
			return fmt.Errorf("update reservation %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.notifier.Notify(reservationCancelledEvent(reservation, s.now()))
	}
	return reservation, nil
}

func (s *ReservationService) CancelReservation(ctx context.Context, actor Actor, id uint) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = lockReservation(tx, id)
		if err != nil {
			return err
		}

		if reservation.Status == models.StatusCancelled || reservation.Status == models.StatusCompleted {
			return apperrors.BadRequest("Cannot cancel a reservation that is already cancelled or completed.")
		}

		if !actor.IsAdmin() {
			if reservation.UserID != actor.UserID {
				return apperrors.Forbidden("You can only cancel your own reservations.")
			}
			if reservation.ReservationTime.Before(s.now().Add(CancellationNotice)) {
				return apperrors.BadRequest("Reservations can only be cancelled at least 1 hour in advance.")
			}
		}

		if err := tx.Model(reservation).Update("status", models.StatusCancelled).Error; err != nil {
			return fmt.Errorf("cancel reservation %d: %w", id, err)
		}
		reservation.Status = models.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("reservation_id", reservation.ID).Info("Reservation cancelled")
	s.notifier.Notify(reservationCancelledEvent(reservation, s.now()))
	return reservation, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, actor Actor, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Reservation not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation %d: %w", id, err)
	}

	if !actor.IsAdmin() && reservation.UserID != actor.UserID {
		return nil, apperrors.Forbidden("You can only view your own reservations.")
	}
	return &reservation, nil
}

// GetUserReservations returns the caller's active reservations, soonest first.
func (s *ReservationService) GetUserReservations(ctx context.Context, actor Actor) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", actor.UserID).
		Where("status IN ?", models.ActiveStatuses).
		Order("reservation_time ASC").
		Order("id ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("list reservations for user %d: %w", actor.UserID, err)
	}
	return reservations, nil
}

// FilterReservations narrows by UTC calendar day and/or restaurant. Admin only.
func (s *ReservationService) FilterReservations(ctx context.Context, actor Actor, filter ReservationFilter) ([]models.Reservation, error) {
	if err := requireAdmin(actor, "filter reservations"); err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).Model(&models.Reservation{})
	if filter.Date != nil {
		d := filter.Date.UTC()
		dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("reservation_time >= ? AND reservation_time < ?", dayStart, dayStart.AddDate(0, 0, 1))
	}
	if filter.RestaurantID != nil {
		q = q.Where("restaurant_id = ?", *filter.RestaurantID)
	}

	reservations := []models.Reservation{}
	if err := q.Order("reservation_time ASC").Order("id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("filter reservations: %w", err)
	}
	return reservations, nil
}

func (s *ReservationService) ListAll(ctx context.Context, actor Actor) ([]models.Reservation, error) {
	return s.FilterReservations(ctx, actor, ReservationFilter{})
}

func (s *ReservationService) resolveDuration(hours *float64, fallback time.Duration) (time.Duration, error) {
	if hours == nil {
		return fallback, nil
	}
	if !(*hours > 0 && *hours <= MaxDurationHours) {
		return 0, apperrors.BadRequest("Reservation duration must be greater than 0 and at most %d hours.", MaxDurationHours)
	}
	return time.Duration(*hours * float64(time.Hour)), nil
}

// bookingWindow checks the start against operating hours and rejects windows
// that run past closing on the same calendar day. subject prefixes the
// messages so updates read "New reservation ...".
func bookingWindow(restaurant *models.Restaurant, start time.Time, duration time.Duration, subject string) (timeWindow, error) {
	// TODO: support restaurants open past midnight once closing can be stored as a next-day offset.
	if restaurant.CrossesMidnight() {
		return timeWindow{}, apperrors.BadRequest("Restaurants whose hours cross midnight are not supported for reservations.")
	}

	start = start.UTC()
	startOfDay := timeOfDay(start)
	if startOfDay < restaurant.Opens() || startOfDay >= restaurant.Closes() {
		return timeWindow{}, apperrors.BadRequest("%s time is outside restaurant operating hours.", subject)
	}

	end := start.Add(duration)
	if !end.After(start) {
		return timeWindow{}, apperrors.BadRequest("%s must end after it starts.", subject)
	}
	if timeOfDay(end) > restaurant.Closes() && sameDay(start, end) {
		return timeWindow{}, apperrors.BadRequest("%s duration extends past restaurant closing time.", subject)
	}

	return timeWindow{start: start, end: end}, nil
}

func checkGuests(numGuests int, table *models.Table) error {
	if numGuests < MinGuests || numGuests > table.Capacity {
		return apperrors.BadRequest("Number of guests must be between %d and table capacity (%d).", MinGuests, table.Capacity)
	}
	return nil
}

func checkPreorders(tx *gorm.DB, restaurantID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxPreorderItems {
		return apperrors.BadRequest("Maximum %d pre-ordered dishes allowed per reservation.", MaxPreorderItems)
	}

	for _, id := range ids {
		var item models.MenuItem
		err := tx.Where("id = ?", id).First(&item).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load menu item %d: %w", id, err)
		}
		if err != nil || item.RestaurantID != restaurantID || !item.IsAvailable {
			return apperrors.BadRequest("Pre-ordered menu item (ID: %d) not found, not available, or does not belong to this restaurant.", id)
		}
	}
	return nil
}

// activeOverlaps narrows q to active reservations whose [reservation_time, end_time)
// intersects w. Every overlap check goes through here.
func activeOverlaps(q *gorm.DB, w timeWindow, excludeID uint) *gorm.DB {
	q = q.Model(&models.Reservation{}).
		Where("status IN ?", models.ActiveStatuses).
		Where("reservation_time < ? AND end_time > ?", w.end, w.start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return q
}

func countOverlaps(tx *gorm.DB, column string, value uint, w timeWindow, excludeID uint) (int64, error) {
	var n int64
	err := activeOverlaps(tx.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}), w, excludeID).
		Count(&n).Error
	return n, err
}

func checkTableFree(tx *gorm.DB, tableID uint, w timeWindow, excludeID uint, detail string) error {
	n, err := countOverlaps(tx, "table_id", tableID, w, excludeID)
	if err != nil {
		return fmt.Errorf("check table %d availability: %w", tableID, err)
	}
	if n > 0 {
		return apperrors.Conflict("%s", detail)
	}
	return nil
}

func checkUserFree(tx *gorm.DB, userID uint, w timeWindow, excludeID uint, detail string) error {
	n, err := countOverlaps(tx, "user_id", userID, w, excludeID)
	if err != nil {
		return fmt.Errorf("check user %d availability: %w", userID, err)
	}
	if n > 0 {
		return apperrors.Conflict("%s", detail)
	}
	return nil
}

func findRestaurant(tx *gorm.DB, id uint, notFound string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := tx.Where("id = ?", id).First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("%s", notFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant %d: %w", id, err)
	}
	return &restaurant, nil
}

func findTable(tx *gorm.DB, restaurantID, tableID uint, notFound string) (*models.Table, error) {
	var table models.Table
	err := tx.Where("id = ?", tableID).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && table.RestaurantID != restaurantID) {
		return nil, apperrors.NotFound("%s", notFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %d: %w", tableID, err)
	}
	return &table, nil
}

// lockTable loads the table FOR UPDATE so concurrent bookings of the same
// table serialize on its row.
func lockTable(tx *gorm.DB, restaurantID, tableID uint, notFound string) (*models.Table, error) {
	return findTable(tx.Clauses(clause.Locking{Strength: "UPDATE"}), restaurantID, tableID, notFound)
}

// lockUser serializes bookings made by one user. A missing user row is not an
// error here; identity is established upstream.
func lockUser(tx *gorm.DB, userID uint) error {
	var users []models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		Limit(1).
		Find(&users).Error
	if err != nil {
		return fmt.Errorf("lock user %d: %w", userID, err)
	}
	return nil
}

func lockReservation(tx *gorm.DB, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Reservation not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation %d: %w", id, err)
	}
	return &reservation, nil
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func nonNilIDs(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
