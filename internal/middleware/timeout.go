package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat-backend/pkg/constants"
)

// TimeoutMiddleware bounds every request with a deadline so a stalled
// store call cannot hold a connection open indefinitely
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = constants.DefaultTimeout
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
