package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// IntentController manages user goals and their daily progress.
type IntentController struct {
	engine *services.Engine
}

func NewIntentController(engine *services.Engine) *IntentController {
	return &IntentController{engine: engine}
}

func (i *IntentController) Create(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var in services.CreateIntentInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	in.Title = utils.SanitizeText(in.Title)
	in.Description = utils.SanitizeText(in.Description)

	view, err := i.engine.Intents.Create(ctx.Request.Context(), uid, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, view)
}

// List returns intents filtered by ?status=active,paused. No filter lists active intents.
func (i *IntentController) List(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var statuses []models.IntentStatus
	for _, s := range strings.Split(ctx.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, models.IntentStatus(s))
		}
	}

	var (
		views []services.IntentView
		err   error
	)
	if len(statuses) == 0 {
		views, err = i.engine.Intents.ListActive(ctx.Request.Context(), uid)
	} else {
		views, err = i.engine.Intents.List(ctx.Request.Context(), uid, statuses...)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	if views == nil {
		views = []services.IntentView{}
	}
	utils.Success(ctx, views)
}

func (i *IntentController) Get(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := i.engine.Intents.Get(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// LogProgress records one day's value. date defaults to today.
func (i *IntentController) LogProgress(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Date        string   `json:"date"`
		ActualValue *float64 `json:"actual_value" binding:"required"`
		Notes       string   `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "actual_value is required")
		return
	}
	res, err := i.engine.Intents.LogProgress(ctx.Request.Context(), uid, ctx.Param("id"),
		strings.TrimSpace(req.Date), *req.ActualValue, utils.SanitizeText(req.Notes))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if res.CoinsEarned > 0 {
		utils.InvalidateUser(ctx.Request.Context(), uid)
	}
	utils.Success(ctx, res)
}

func (i *IntentController) UpdateStatus(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Status models.IntentStatus `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "status is required")
		return
	}
	res, err := i.engine.Intents.UpdateStatus(ctx.Request.Context(), uid, ctx.Param("id"), req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if res.CoinsEarned > 0 {
		utils.InvalidateUser(ctx.Request.Context(), uid)
	}
	utils.Success(ctx, res)
}
