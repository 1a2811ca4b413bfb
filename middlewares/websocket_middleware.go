package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// WebSocketAuthMiddleware reads the token from the query string since browsers
// cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			abortUnauthorized(c, "Token missing")
			return
		}
		authenticate(c, tokens, blacklist, token)
	}
}
