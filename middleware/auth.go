package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pulso/config"
	"github.com/cppla/pulso/utils"
)

const (
	// ContextUserIDKey holds the authenticated user id.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey holds the authenticated username.
	ContextUsernameKey = "username"
	// ContextClaimsKey holds the parsed *utils.Claims, used by logout.
	ContextClaimsKey = "claims"
)

// AuthRequired ensures the request carries a valid, unrevoked bearer token.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, code, msg := bearerToken(ctx.GetHeader("Authorization"))
		if code != 0 {
			utils.Abort(ctx, http.StatusUnauthorized, code, msg)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}
		if utils.IsTokenRevoked(ctx.Request.Context(), claims.ID) {
			utils.Abort(ctx, http.StatusUnauthorized, 40104, "token revoked")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired. Admins are the usernames listed in configuration.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !config.Get().IsAdmin(ctx.GetString(ContextUsernameKey)) {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin privileges required")
			return
		}
		ctx.Next()
	}
}

func bearerToken(header string) (string, int, string) {
	if header == "" {
		return "", 40101, "authorization header missing"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}
