package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pulso/config"
	"github.com/cppla/pulso/middleware"
	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/utils"
)

// AuthController handles local username/password accounts and bearer tokens.
type AuthController struct {
	engine *services.Engine
}

func NewAuthController(engine *services.Engine) *AuthController {
	return &AuthController{engine: engine}
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates the account with an empty profile and logs the user in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len([]rune(req.Username)); l < 3 || l > 32 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-32 characters")
		return
	}
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may contain letters, digits, '-', '_' and '.'")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user, err := a.engine.Accounts.Register(ctx.Request.Context(), req.Username, hash)
	if errors.Is(err, services.ErrInvalidInput) {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	a.issueToken(ctx, user, http.StatusCreated)
}

// Login verifies the password and issues a token. Repeated failures for the
// same username and client IP lock the pair out for a while.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	rctx := ctx.Request.Context()
	ip := ctx.ClientIP()
	if utils.LoginLocked(rctx, req.Username, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed logins, try again later")
		return
	}

	user, err := a.engine.Accounts.FindByUsername(rctx, req.Username)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		respondError(ctx, err)
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.LoginFailed(rctx, req.Username, ip)
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	utils.LoginSucceeded(rctx, req.Username, ip)
	a.issueToken(ctx, user, http.StatusOK)
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	v, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, ok := v.(*utils.Claims)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	expiresAt := time.Now().Add(config.Get().TokenTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.RevokeToken(ctx.Request.Context(), claims.ID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func (a *AuthController) Me(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	user, err := a.engine.Accounts.Get(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, userResponse(*user))
}

func (a *AuthController) issueToken(ctx *gin.Context, user *models.User, status int) {
	ttl := config.Get().TokenTTL()
	token, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_in": int(ttl.Seconds()),
		"user":       userResponse(*user),
	})
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"is_admin":   config.Get().IsAdmin(user.Username),
	}
}

func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r == '-' || r == '_' || r == '.':
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}
