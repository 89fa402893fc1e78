package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pulso/utils"
)

// RequestMetrics records request counts and latency by matched route.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "/metrics" {
			return
		}
		utils.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}
