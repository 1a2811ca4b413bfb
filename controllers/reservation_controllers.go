package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

type ReservationController struct {
	Reservations *services.ReservationService
}

func NewReservationController(svc *services.ReservationService) *ReservationController {
	return &ReservationController{Reservations: svc}
}

func (rc *ReservationController) CreateReservation(c *gin.Context) {
	var req services.CreateReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.RestaurantID == 0 || req.TableID == 0 || req.ReservationTime.IsZero() {
		utils.RespondError(c, http.StatusBadRequest, apperrors.BadRequest("restaurant_id, table_id and reservation_time are required"))
		return
	}

	reservation, err := rc.Reservations.CreateReservation(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation created successfully", reservation)
}

func (rc *ReservationController) MyReservations(c *gin.Context) {
	reservations, err := rc.Reservations.GetUserReservations(c.Request.Context(), actorFrom(c))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active reservations", reservations)
}

func (rc *ReservationController) GetReservation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reservation, err := rc.Reservations.GetReservation(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation details", reservation)
}

func (rc *ReservationController) UpdateReservation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch services.UpdateReservationRequest
	if !bindJSON(c, &patch) {
		return
	}

	reservation, err := rc.Reservations.UpdateReservation(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation updated", reservation)
}

func (rc *ReservationController) CancelReservation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reservation, err := rc.Reservations.CancelReservation(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", reservation)
}

// FilterReservations handles ?date=YYYY-MM-DD&restaurant_id=N.
func (rc *ReservationController) FilterReservations(c *gin.Context) {
	var filter services.ReservationFilter

	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, apperrors.BadRequest("Invalid date, expected YYYY-MM-DD"))
			return
		}
		filter.Date = &d
	}
	if raw := c.Query("restaurant_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, apperrors.BadRequest("Invalid restaurant_id"))
			return
		}
		rid := uint(n)
		filter.RestaurantID = &rid
	}

	reservations, err := rc.Reservations.FilterReservations(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservations", reservations)
}
