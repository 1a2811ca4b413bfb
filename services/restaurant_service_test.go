package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/testutil"
	"gorm.io/datatypes"
)

var (
	adminActor  = services.Actor{UserID: 1, Role: models.RoleAdmin}
	clientActor = services.Actor{UserID: 2, Role: models.RoleClient}
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestParseClock(t *testing.T) {
	v, err := services.ParseClock("12:30")
	require.NoError(t, err)
	assert.Equal(t, datatypes.NewTime(12, 30, 0, 0), v)

	v, err = services.ParseClock(" 23:00:15 ")
	require.NoError(t, err)
	assert.Equal(t, datatypes.NewTime(23, 0, 15, 0), v)

	_, err = services.ParseClock("noon")
	assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
}

func TestRestaurantLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := services.NewRestaurantService(testutil.NewDB(t), nil)

	_, err := svc.CreateRestaurant(ctx, clientActor, services.RestaurantInput{Name: "A", Location: "B", OpeningTime: "12:00", ClosingTime: "23:00"})
	assertKind(t, err, apperrors.KindForbidden, "")

	_, err = svc.CreateRestaurant(ctx, adminActor, services.RestaurantInput{Name: "A", Location: "B", OpeningTime: "23:00", ClosingTime: "12:00"})
	assertKind(t, err, apperrors.KindBadRequest, "Closing time must be after opening time.")

	r, err := svc.CreateRestaurant(ctx, adminActor, services.RestaurantInput{Name: "La Cocina", Location: "Centro", OpeningTime: "12:00", ClosingTime: "23:00"})
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, r.Opens())
	assert.Equal(t, 23*time.Hour, r.Closes())

	_, err = svc.CreateRestaurant(ctx, adminActor, services.RestaurantInput{Name: "La Cocina", Location: "Norte", OpeningTime: "10:00", ClosingTime: "22:00"})
	assertKind(t, err, apperrors.KindConflict, "Restaurant with this name already exists.")

	other, err := svc.CreateRestaurant(ctx, adminActor, services.RestaurantInput{Name: "El Patio", Location: "Sur", OpeningTime: "10:00", ClosingTime: "22:00"})
	require.NoError(t, err)

	_, err = svc.UpdateRestaurant(ctx, adminActor, other.ID, services.RestaurantPatch{Name: strPtr("La Cocina")})
	assertKind(t, err, apperrors.KindConflict, "")

	_, err = svc.UpdateRestaurant(ctx, adminActor, other.ID, services.RestaurantPatch{ClosingTime: strPtr("09:00")})
	assertKind(t, err, apperrors.KindBadRequest, "Closing time must be after opening time.")

	updated, err := svc.UpdateRestaurant(ctx, adminActor, other.ID, services.RestaurantPatch{Location: strPtr("Oeste"), ClosingTime: strPtr("23:30")})
	require.NoError(t, err)
	assert.Equal(t, "Oeste", updated.Location)
	assert.Equal(t, datatypes.NewTime(23, 30, 0, 0), updated.ClosingTime)

	list, err := svc.ListRestaurants(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.GetRestaurant(ctx, 999)
	assertKind(t, err, apperrors.KindNotFound, "Restaurant not found.")

	_, err = svc.CreateTable(ctx, adminActor, r.ID, services.TableInput{TableNumber: 1, Capacity: 4, Location: "terraza"})
	require.NoError(t, err)

	err = svc.DeleteRestaurant(ctx, adminActor, r.ID)
	assertKind(t, err, apperrors.KindBadRequest, "Cannot delete restaurant with associated tables. Delete tables first.")

	require.NoError(t, svc.DeleteRestaurant(ctx, adminActor, other.ID))
	_, err = svc.GetRestaurant(ctx, other.ID)
	assertKind(t, err, apperrors.KindNotFound, "")
}

func TestTableManagement(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc := services.NewRestaurantService(db, func() time.Time { return now })

	r, err := svc.CreateRestaurant(ctx, adminActor, services.RestaurantInput{Name: "La Cocina", Location: "Centro", OpeningTime: "12:00", ClosingTime: "23:00"})
	require.NoError(t, err)

	_, err = svc.CreateTable(ctx, adminActor, 999, services.TableInput{TableNumber: 1, Capacity: 4})
	assertKind(t, err, apperrors.KindNotFound, "Restaurant not found.")

	for _, capacity := range []int{1, 13} {
		_, err = svc.CreateTable(ctx, adminActor, r.ID, services.TableInput{TableNumber: 1, Capacity: capacity})
		assertKind(t, err, apperrors.KindBadRequest, "Table capacity must be between 2 and 12.")
	}

	t1, err := svc.CreateTable(ctx, adminActor, r.ID, services.TableInput{TableNumber: 1, Capacity: 2, Location: "interior"})
	require.NoError(t, err)
	t2, err := svc.CreateTable(ctx, adminActor, r.ID, services.TableInput{TableNumber: 2, Capacity: 6, Location: "terraza"})
	require.NoError(t, err)

	_, err = svc.CreateTable(ctx, adminActor, r.ID, services.TableInput{TableNumber: 1, Capacity: 4})
	assertKind(t, err, apperrors.KindConflict, "Table with this number already exists for this restaurant.")

	all, err := svc.ListTables(ctx, r.ID, services.TableFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	big, err := svc.ListTables(ctx, r.ID, services.TableFilter{MinCapacity: intPtr(4)})
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, t2.ID, big[0].ID)

	outside, err := svc.ListTables(ctx, r.ID, services.TableFilter{Location: "terraza"})
	require.NoError(t, err)
	require.Len(t, outside, 1)

	_, err = svc.ListTables(ctx, 999, services.TableFilter{})
	assertKind(t, err, apperrors.KindNotFound, "")

	_, err = svc.UpdateTable(ctx, adminActor, t1.ID, services.TablePatch{TableNumber: intPtr(2)})
	assertKind(t, err, apperrors.KindConflict, "")

	_, err = svc.UpdateTable(ctx, adminActor, t1.ID, services.TablePatch{Capacity: intPtr(20)})
	assertKind(t, err, apperrors.KindBadRequest, "")

	updated, err := svc.UpdateTable(ctx, clientActor, t1.ID, services.TablePatch{Capacity: intPtr(4)})
	assertKind(t, err, apperrors.KindForbidden, "")
	assert.Nil(t, updated)

	updated, err = svc.UpdateTable(ctx, adminActor, t1.ID, services.TablePatch{Capacity: intPtr(4), Location: strPtr("ventana")})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Capacity)
	assert.Equal(t, "ventana", updated.Location)

	party := models.Reservation{UserID: 6, RestaurantID: r.ID, TableID: t2.ID, NumGuests: 4,
		ReservationTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Status: models.StatusPending}
	require.NoError(t, db.Create(&party).Error)
	cancelled := models.Reservation{UserID: 7, RestaurantID: r.ID, TableID: t2.ID, NumGuests: 6,
		ReservationTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Status: models.StatusCancelled}
	require.NoError(t, db.Create(&cancelled).Error)

	_, err = svc.UpdateTable(ctx, adminActor, t2.ID, services.TablePatch{Capacity: intPtr(2)})
	assertKind(t, err, apperrors.KindConflict, "")
	reloaded, err := svc.GetTable(ctx, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.Capacity)

	shrunk, err := svc.UpdateTable(ctx, adminActor, t2.ID, services.TablePatch{Capacity: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, shrunk.Capacity)

	// an active booking still ahead blocks deletion; a finished one does not
	upcoming := models.Reservation{UserID: 5, RestaurantID: r.ID, TableID: t1.ID, NumGuests: 2,
		ReservationTime: now.Add(3 * time.Hour), EndTime: now.Add(5 * time.Hour), Status: models.StatusConfirmed}
	require.NoError(t, db.Create(&upcoming).Error)

	err = svc.DeleteTable(ctx, adminActor, t1.ID)
	assertKind(t, err, apperrors.KindConflict, "Cannot delete a table with active upcoming reservations.")

	now = now.Add(6 * time.Hour)
	require.NoError(t, svc.DeleteTable(ctx, adminActor, t1.ID))

	_, err = svc.GetTable(ctx, t1.ID)
	assertKind(t, err, apperrors.KindNotFound, "Table not found.")
}
