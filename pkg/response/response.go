// Package response writes the JSON envelopes returned by every handler.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/pkg/logger"
	"go.uber.org/zap"
)

// Body is the success envelope.
type Body struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// OK writes {message, data}. A nil data is omitted.
func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Body{Message: message, Data: data})
}

// Error aborts the request with the status and message of err. Server-side
// failures are logged in full and answered with a generic message.
func Error(c *gin.Context, err error) {
	aErr := apperr.From(err)
	if aErr.Internal() {
		logger.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", string(aErr.Kind)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(aErr.Status(), ErrorBody{Message: "Internal server error", Code: aErr.Code()})
		return
	}
	c.AbortWithStatusJSON(aErr.Status(), ErrorBody{Message: aErr.Message, Code: aErr.Code()})
}
