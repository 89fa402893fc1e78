package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// CatalogController serves public, rarely changing catalog data.
type CatalogController struct {
	engine *services.Engine
}

func NewCatalogController(engine *services.Engine) *CatalogController {
	return &CatalogController{engine: engine}
}

func (c *CatalogController) Tracks(ctx *gin.Context) {
	var tracks []models.Track
	if utils.CacheGetJSON(ctx.Request.Context(), utils.TracksCacheKey, &tracks) {
		utils.Success(ctx, tracks)
		return
	}
	tracks, err := c.engine.Tracks.Catalog(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), utils.TracksCacheKey, tracks, 0)
	utils.Success(ctx, tracks)
}
