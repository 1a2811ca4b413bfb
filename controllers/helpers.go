package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/middlewares"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// actorFrom reads the identity placed in the context by AuthMiddleware.
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: c.GetUint(middlewares.ContextUserID),
		Role:   c.GetString(middlewares.ContextRole),
	}
}

// parseID reads a positive numeric path parameter. On failure it writes a 400
// and returns false.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, apperrors.BadRequest("Invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}
