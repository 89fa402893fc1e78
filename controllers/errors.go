package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pulso/middleware"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// respondError maps a service error onto the HTTP status and numeric code.
// Domain errors expose their message; anything else is logged and hidden.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, services.ErrNotAuthenticated):
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		utils.Error(ctx, http.StatusConflict, 40920, "insufficient balance")
	default:
		utils.Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.String("user_id", ctx.GetString(middleware.ContextUserIDKey)),
			zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// currentUser returns the authenticated user id, answering 401 when absent.
func currentUser(ctx *gin.Context) (string, bool) {
	uid := ctx.GetString(middleware.ContextUserIDKey)
	if uid == "" {
		respondError(ctx, services.ErrNotAuthenticated)
		return "", false
	}
	return uid, true
}

func queryInt(ctx *gin.Context, key string, def int) int {
	v := strings.TrimSpace(ctx.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
