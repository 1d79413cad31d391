package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxInFlight caps simultaneously proxied requests. Backends are the scarce
// resource here; shedding load at the door beats queueing behind one that
// has slowed down. A limit of 0 disables the cap.
func MaxInFlight(limit int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	sem := make(chan struct{}, limit)
	return func(c *gin.Context) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "too many concurrent requests",
			})
		}
	}
}
