package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

const maxImageSize = 5 << 20

type MenuController struct {
	Menu *services.MenuService
}

func NewMenuController(svc *services.MenuService) *MenuController {
	return &MenuController{Menu: svc}
}

func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	restaurantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	item, err := mc.Menu.CreateMenuItem(c.Request.Context(), actorFrom(c), restaurantID, services.MenuItemInput(req))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created successfully", item)
}

// GetMenu lists available dishes; ?include_unavailable=true also returns
// soft-deleted ones.
func (mc *MenuController) GetMenu(c *gin.Context) {
	restaurantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := mc.Menu.ListMenu(c.Request.Context(), restaurantID, c.Query("include_unavailable") == "true")
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", items)
}

func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c, "item_id")
	if !ok {
		return
	}
	var patch services.MenuItemPatch
	if !bindJSON(c, &patch) {
		return
	}

	item, err := mc.Menu.UpdateMenuItem(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	id, ok := parseID(c, "item_id")
	if !ok {
		return
	}
	if err := mc.Menu.DeleteMenuItem(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item marked unavailable", nil)
}

// UploadImage takes a multipart "image" field.
func (mc *MenuController) UploadImage(c *gin.Context) {
	id, ok := parseID(c, "item_id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize)
	header, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image file is required (max 5MB)"))
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	item, err := mc.Menu.AttachImage(c.Request.Context(), actorFrom(c), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Image uploaded", item)
}
