package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// AuditLogger records who changed what on mutating requests.
func AuditLogger(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet {
			return
		}

		fields := logrus.Fields{
			"action": action,
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}
		if uid, ok := c.Get(ContextUserID); ok {
			fields["user_id"] = uid
		}
		if id := c.Param("id"); id != "" {
			fields["resource_id"] = id
		}

		if c.Writer.Status() < http.StatusBadRequest {
			utils.InfoLogger.WithFields(fields).Info("audit")
		} else {
			utils.ErrorLogger.WithFields(fields).Warn("audit: request rejected")
		}
	}
}
