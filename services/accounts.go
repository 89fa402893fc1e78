package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

// Accounts creates users with their profile and serves the profile read model.
type Accounts struct {
	base
	streaks *StreakTracker
}

func NewAccounts(b base, streaks *StreakTracker) *Accounts {
	return &Accounts{base: b.named("accounts"), streaks: streaks}
}

// Register creates the user and an empty profile. passwordHash must already be hashed.
func (a *Accounts) Register(ctx context.Context, username, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return nil, invalid("username and password are required")
	}
	user := &models.User{Username: username, PasswordHash: passwordHash}
	err := a.inTx(ctx, "register", func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return invalid("username already taken")
			}
			return storeErr("create user", err)
		}
		return storeErr("create profile", tx.CreateProfile(ctx, &models.Profile{UserID: user.ID}))
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (a *Accounts) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, storeErr("user", err)
	}
	return u, nil
}

func (a *Accounts) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr("user", err)
	}
	return u, nil
}

// ProfileView bundles balances, placement, streak and unlocked achievements.
type ProfileView struct {
	User         models.User              `json:"user"`
	Profile      models.Profile           `json:"profile"`
	CurrentTrack *models.Track            `json:"current_track"`
	Streak       *StreakView              `json:"streak"`
	Achievements []models.UserAchievement `json:"achievements"`
}

func (a *Accounts) Profile(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := a.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := a.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("profile", err)
	}
	v := &ProfileView{User: *user, Profile: *profile}
	if profile.CurrentTrackID != nil {
		track, err := a.store.GetTrack(ctx, *profile.CurrentTrackID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, storeErr("track", err)
		}
		v.CurrentTrack = track
	}
	if v.Streak, err = a.streaks.Get(ctx, userID); err != nil {
		return nil, err
	}
	if v.Achievements, err = a.store.ListUserAchievements(ctx, userID); err != nil {
		return nil, storeErr("achievements", err)
	}
	if v.Achievements == nil {
		v.Achievements = []models.UserAchievement{}
	}
	return v, nil
}
