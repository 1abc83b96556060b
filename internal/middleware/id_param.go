package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
)

// RequireIDParam parses the :id path parameter and stores it under key.
func RequireIDParam(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, "Invalid ID")
			c.Abort()
			return
		}

		c.Set(key, id)
		c.Next()
	}
}

// GetIDParam retrieves an id stored by RequireIDParam
func GetIDParam(c *gin.Context, key string) (uint64, bool) {
	v, exists := c.Get(key)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
