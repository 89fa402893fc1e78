package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// ProgressController serves the learning loop: placement, completions, quizzes and streak.
type ProgressController struct {
	engine *services.Engine
}

func NewProgressController(engine *services.Engine) *ProgressController {
	return &ProgressController{engine: engine}
}

func (p *ProgressController) Profile(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := p.engine.Accounts.Profile(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// TrackProgress is cached per user until the next completion or placement.
func (p *ProgressController) TrackProgress(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	key := utils.UserCacheKey(uid, "track-progress")
	var cached services.TrackProgress
	if utils.CacheGetJSON(ctx.Request.Context(), key, &cached) {
		utils.Success(ctx, cached)
		return
	}
	progress, err := p.engine.Tracks.Progress(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, progress, 0)
	utils.Success(ctx, progress)
}

func (p *ProgressController) SubmitDiagnosis(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var answers services.DiagnosisAnswers
	if err := ctx.ShouldBindJSON(&answers); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	track, err := p.engine.Tracks.AssignFromDiagnosis(ctx.Request.Context(), uid, answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateUser(ctx.Request.Context(), uid)
	utils.Success(ctx, gin.H{"track": track})
}

func (p *ProgressController) CompleteContent(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	res, err := p.engine.Rewards.CompleteContent(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !res.AlreadyCompleted {
		utils.InvalidateUser(ctx.Request.Context(), uid)
	}
	utils.Success(ctx, res)
}

func (p *ProgressController) SubmitQuiz(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Answers []int `json:"answers" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}
	res, err := p.engine.Rewards.SubmitQuiz(ctx.Request.Context(), uid, ctx.Param("id"), req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateUser(ctx.Request.Context(), uid)
	utils.Success(ctx, res)
}

func (p *ProgressController) Streak(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := p.engine.Streaks.Get(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}
