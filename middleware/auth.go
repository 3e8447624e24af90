package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
)

// AuthMiddleware validates the bearer token and stores the authenticated
// user's ID in the gin context under UserIDKey.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing Authorization header")
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			abortUnauthorized(c, "Authorization header must be a bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			logger.GetLogger().Debugw("Token validation failed", "error", err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			abortUnauthorized(c, "token is missing a subject")
			return
		}

		c.Set(UserIDKey, sub)
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortUnauthorized(c *gin.Context, detail string) {
	err := apperrors.AuthenticationFailed(detail)
	c.Abort()
	_ = c.Error(err)
	c.JSON(err.GetHTTPStatus(), gin.H{
		"type":    string(err.Type),
		"message": err.Message,
		"code":    "401",
	})
}
