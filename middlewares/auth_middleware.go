package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID       = "user_id"
	ContextRole         = "role"
	ContextToken        = "token"
	ContextTokenExpires = "token_expires"
)

func AuthMiddleware(tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header missing")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Invalid authorization format")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		authenticate(c, tokens, blacklist, tokenString)
	}
}

func authenticate(c *gin.Context, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist, tokenString string) {
	claims, err := tokens.Parse(tokenString)
	if err != nil {
		abortUnauthorized(c, "Could not validate credentials")
		return
	}
	if blacklist != nil && blacklist.Contains(tokenString) {
		abortUnauthorized(c, "Token has been revoked")
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextToken, tokenString)
	if claims.ExpiresAt != nil {
		c.Set(ContextTokenExpires, claims.ExpiresAt.Time)
	}
	c.Next()
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	utils.RespondError(c, http.StatusUnauthorized, errors.New(message))
	c.Abort()
}
