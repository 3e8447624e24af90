package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
)

// ErrorHandler converts errors attached to the gin context into JSON
// responses. Handlers call c.Error(err) and return; this middleware picks the
// last error up after the chain unwinds.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.GetLogger()

		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()

			log.Errorw(fmt.Sprintf("%s error", appError.Type),
				"error", err,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status", statusCode,
				"requestId", c.GetString(RequestIDKey),
			)

			response := map[string]interface{}{
				"type":    string(appError.Type),
				"message": appError.Message,
				"code":    strconv.Itoa(statusCode),
			}
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.NotFoundError ||
				appError.Type == errors.StaleReferenceError ||
				appError.Type == errors.VersionConflictError ||
				appError.Type == errors.InvalidStatusTransitionError) {
				response["details"] = appError.Detail
			}
			if len(appError.Fields) > 0 {
				response["fields"] = appError.Fields
			}

			c.JSON(statusCode, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypeBind {
			log.Warnw("Request binding error",
				"error", err,
				"path", c.Request.URL.Path,
				"requestId", c.GetString(RequestIDKey),
			)

			response := map[string]interface{}{
				"type":    string(errors.ValidationError),
				"message": "Failed to bind request",
				"code":    "400",
			}
			if gin.IsDebugging() {
				response["details"] = err.Error()
			}
			c.JSON(400, response)
			return
		}

		log.Errorw("Unexpected server error",
			"error", err,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"requestId", c.GetString(RequestIDKey),
		)

		response := map[string]interface{}{
			"type":    string(errors.ServerError),
			"message": "Internal Server Error",
			"code":    "500",
		}
		if gin.IsDebugging() {
			response["details"] = err.Error()
		}
		c.JSON(500, response)
	}
}
