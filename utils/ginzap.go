package utils

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog writes one structured line per request and tags it with the
// authenticated user when there is one.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health"},
		Context: func(c *gin.Context) []zapcore.Field {
			if uid, ok := c.Get("user_id"); ok {
				return []zapcore.Field{zap.Any("user_id", uid)}
			}
			return nil
		},
	})
}

// Recovery logs panics with their stack and answers with the JSON error envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(logger, true, func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, JSONResponse{
			Code:    50000,
			Message: "internal server error",
		})
	})
}
