package utils

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/apperrors"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindForbidden:
		return http.StatusForbidden
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// RespondServiceError writes a classified error with its detail. Unclassified
// errors are logged and hidden behind a generic message.
func RespondServiceError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code < http.StatusInternalServerError {
		RespondError(c, code, err)
		return
	}

	ErrorLogger.WithError(err).WithFields(map[string]interface{}{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("Request failed")
	RespondError(c, code, errors.New("internal server error"))
}
