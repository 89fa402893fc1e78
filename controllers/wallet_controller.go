package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pulso/middleware"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// WalletController exposes the coin ledger, tool purchases and admin corrections.
type WalletController struct {
	engine *services.Engine
}

func NewWalletController(engine *services.Engine) *WalletController {
	return &WalletController{engine: engine}
}

// Ledger pages through the user's entries, newest first.
func (w *WalletController) Ledger(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	page, err := w.engine.Ledger.History(ctx.Request.Context(), uid, queryInt(ctx, "limit", 20), queryInt(ctx, "offset", 0))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

func (w *WalletController) Reconcile(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	rec, err := w.engine.Ledger.Reconcile(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, rec)
}

func (w *WalletController) Tools(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	statuses, err := w.engine.Tools.Statuses(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, statuses)
}

func (w *WalletController) UnlockTool(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	unlock, err := w.engine.Tools.UnlockWithCoins(ctx.Request.Context(), uid, ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateUser(ctx.Request.Context(), uid)
	utils.Created(ctx, unlock)
}

// AdminAdjust books a manual correction on another user's balance.
func (w *WalletController) AdminAdjust(ctx *gin.Context) {
	var req struct {
		Amount      int64  `json:"amount" binding:"required"`
		Convertible bool   `json:"convertible"`
		Description string `json:"description" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "amount and description are required")
		return
	}
	target := ctx.Param("id")
	desc := utils.SanitizeText(req.Description)
	entry, err := w.engine.Ledger.Adjust(ctx.Request.Context(), target, req.Amount, req.Convertible, desc)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Logger.Info("admin balance adjustment",
		zap.String("admin", ctx.GetString(middleware.ContextUsernameKey)),
		zap.String("user_id", target),
		zap.Int64("amount", req.Amount),
		zap.String("reason", desc))
	utils.InvalidateUser(ctx.Request.Context(), target)
	utils.Created(ctx, entry)
}
