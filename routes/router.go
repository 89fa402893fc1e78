package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/pulso/config"
	"github.com/cppla/pulso/controllers"
	"github.com/cppla/pulso/middleware"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// SetupRouter wires middleware and controllers around the engine. db is only
// used by the health check.
func SetupRouter(engine *services.Engine, db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := utils.Logger
	if gin.Mode() != gin.TestMode && cfg.GinPath != "" {
		accessLog = utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	}
	r.Use(utils.AccessLog(accessLog))
	r.Use(utils.Recovery(accessLog))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestMetrics())

	r.GET("/health", func(ctx *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx.Request.Context())
		}
		if err != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
			return
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(utils.MetricsHandler()))

	authController := controllers.NewAuthController(engine)
	catalogController := controllers.NewCatalogController(engine)
	progressController := controllers.NewProgressController(engine)
	walletController := controllers.NewWalletController(engine)
	intentController := controllers.NewIntentController(engine)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/tracks", catalogController.Tracks)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	me := protected.Group("/me")
	me.GET("/profile", progressController.Profile)
	me.GET("/track-progress", progressController.TrackProgress)
	me.POST("/diagnosis", progressController.SubmitDiagnosis)
	me.GET("/streak", progressController.Streak)
	me.GET("/ledger", walletController.Ledger)
	me.GET("/ledger/reconcile", walletController.Reconcile)

	protected.POST("/contents/:id/complete", progressController.CompleteContent)
	protected.POST("/quizzes/:id/submit", progressController.SubmitQuiz)

	protected.GET("/tools", walletController.Tools)
	protected.POST("/tools/:slug/unlock", walletController.UnlockTool)

	protected.POST("/intents", intentController.Create)
	protected.GET("/intents", intentController.List)
	protected.GET("/intents/:id", intentController.Get)
	protected.POST("/intents/:id/progress", intentController.LogProgress)
	protected.PATCH("/intents/:id/status", intentController.UpdateStatus)

	admin := protected.Group("/admin", middleware.AdminRequired())
	admin.POST("/users/:id/adjust", walletController.AdminAdjust)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
