package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

type TableController struct {
	Restaurants *services.RestaurantService
}

func NewTableController(svc *services.RestaurantService) *TableController {
	return &TableController{Restaurants: svc}
}

// CreateTable adds a table to the restaurant in the path.
func (tc *TableController) CreateTable(c *gin.Context) {
	restaurantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		TableNumber int    `json:"table_number" binding:"required"`
		Capacity    int    `json:"capacity" binding:"required"`
		Location    string `json:"location"`
	}
	if !bindJSON(c, &req) {
		return
	}

	table, err := tc.Restaurants.CreateTable(c.Request.Context(), actorFrom(c), restaurantID, services.TableInput(req))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.InfoLogger.WithField("table_id", table.ID).Infof("Table %d created for restaurant %d", table.TableNumber, restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// ListTables accepts optional min_capacity and location query filters.
func (tc *TableController) ListTables(c *gin.Context) {
	restaurantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	filter := services.TableFilter{Location: c.Query("location")}
	if raw := c.Query("min_capacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, apperrors.BadRequest("Invalid min_capacity"))
			return
		}
		filter.MinCapacity = &n
	}

	tables, err := tc.Restaurants.ListTables(c.Request.Context(), restaurantID, filter)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	var patch services.TablePatch
	if !bindJSON(c, &patch) {
		return
	}

	table, err := tc.Restaurants.UpdateTable(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Restaurants.DeleteTable(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted successfully", nil)
}
