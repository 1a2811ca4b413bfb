package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

type RestaurantController struct {
	Restaurants *services.RestaurantService
}

func NewRestaurantController(svc *services.RestaurantService) *RestaurantController {
	return &RestaurantController{Restaurants: svc}
}

func (rc *RestaurantController) CreateRestaurant(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Location    string `json:"location" binding:"required"`
		OpeningTime string `json:"opening_time" binding:"required"`
		ClosingTime string `json:"closing_time" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	restaurant, err := rc.Restaurants.CreateRestaurant(c.Request.Context(), actorFrom(c), services.RestaurantInput(req))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created successfully", restaurant)
}

func (rc *RestaurantController) ListRestaurants(c *gin.Context) {
	restaurants, err := rc.Restaurants.ListRestaurants(c.Request.Context())
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of restaurants", restaurants)
}

func (rc *RestaurantController) GetRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	restaurant, err := rc.Restaurants.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant details", restaurant)
}

func (rc *RestaurantController) UpdateRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch services.RestaurantPatch
	if !bindJSON(c, &patch) {
		return
	}

	restaurant, err := rc.Restaurants.UpdateRestaurant(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", restaurant)
}

func (rc *RestaurantController) DeleteRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := rc.Restaurants.DeleteRestaurant(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant deleted", nil)
}
