package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketchat-backend/pkg/jwt"
	"marketchat-backend/pkg/response"
)

const userIDKey = "user_id"

// AuthMiddleware validates the bearer token and stores the caller's
// identity in the Gin context. Every messaging route requires it; the
// participant checks downstream assume user_id is trustworthy.
func AuthMiddleware(jwtManager *jwt.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set("display_name", claims.DisplayName)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's id from the context
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
