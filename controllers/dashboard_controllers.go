package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// DashboardController serves the admin statistics.
type DashboardController struct {
	Dashboard *services.DashboardService
}

func NewDashboardController(svc *services.DashboardService) *DashboardController {
	return &DashboardController{Dashboard: svc}
}

func (dc *DashboardController) ReservationStats(c *gin.Context) {
	ctx := c.Request.Context()
	actor := actorFrom(c)

	daily, err := dc.Dashboard.ReservationsByPeriod(ctx, actor, services.PeriodDay)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	weekly, err := dc.Dashboard.ReservationsByPeriod(ctx, actor, services.PeriodWeek)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Reservation statistics", gin.H{
		"daily_reservations":  daily,
		"weekly_reservations": weekly,
	})
}

func (dc *DashboardController) TopDishes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	dishes, err := dc.Dashboard.TopPreorderedDishes(c.Request.Context(), actorFrom(c), limit)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Most pre-ordered dishes", dishes)
}

func (dc *DashboardController) Occupancy(c *gin.Context) {
	rows, err := dc.Dashboard.Occupancy(c.Request.Context(), actorFrom(c))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Occupancy", rows)
}
