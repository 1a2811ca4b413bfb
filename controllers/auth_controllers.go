package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/middlewares"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

type AuthController struct {
	Auth      *services.AuthService
	Blacklist *utils.TokenBlacklist
}

func NewAuthController(auth *services.AuthService, blacklist *utils.TokenBlacklist) *AuthController {
	return &AuthController{Auth: auth, Blacklist: blacklist}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.Auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User registered successfully", user)
}

func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	token, err := ac.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.Header("WWW-Authenticate", "Bearer")
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}

	utils.InfoLogger.WithField("user_id", token.User.ID).Info("User logged in")
	utils.RespondJSON(c, http.StatusOK, "Login successful", token)
}

func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.Auth.Me(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current user", user)
}

// Logout revokes the presented token until it would have expired anyway.
func (ac *AuthController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.ContextToken)
	expires, ok := c.Get(middlewares.ContextTokenExpires)
	expiresAt, _ := expires.(time.Time)
	if !ok || expiresAt.IsZero() {
		expiresAt = time.Now().Add(24 * time.Hour)
	}

	ac.Blacklist.Add(token, expiresAt)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}
