// Package store is the persistence layer of the progression engine. Every
// method runs against either the root connection or, inside Transaction, the
// transaction handle, so callers compose reads and writes atomically.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/pulso/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

type Store interface {
	// Transaction runs fn in one database transaction. fn receives a Store bound to it.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// LockProfile reads the profile row with FOR UPDATE where the dialect supports it.
	LockProfile(ctx context.Context, userID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, p *models.Profile) error
	// SetProfileTrack moves the user to trackID without touching balances.
	SetProfileTrack(ctx context.Context, userID, trackID string, completeOnboarding bool) error
	SaveDiagnosis(ctx context.Context, d *models.DiagnosisResponse) error

	AppendLedgerEntry(ctx context.Context, e *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, int64, error)
	SumLedger(ctx context.Context, userID string) (total int64, convertible int64, err error)

	GetStreak(ctx context.Context, userID string) (*models.StreakState, error)
	UpsertStreak(ctx context.Context, s *models.StreakState) error

	ListTracks(ctx context.Context) ([]models.Track, error)
	GetTrack(ctx context.Context, id string) (*models.Track, error)
	GetTrackBySlug(ctx context.Context, slug string) (*models.Track, error)
	CountPublishedContent(ctx context.Context, trackID string) (int64, error)
	CountCompletedContent(ctx context.Context, userID, trackID string) (int64, error)
	CountAllCompletedContent(ctx context.Context, userID string) (int64, error)

	GetContentItem(ctx context.Context, id string) (*models.ContentItem, error)
	CreateContentProgress(ctx context.Context, p *models.ContentProgress) error
	GetQuiz(ctx context.Context, id string) (*models.Quiz, error)
	CreateQuizAttempt(ctx context.Context, a *models.QuizAttempt) error
	HasRewardedQuizAttempt(ctx context.Context, userID, quizID string) (bool, error)

	CreateIntent(ctx context.Context, i *models.Intent, milestones []models.IntentMilestone) error
	GetIntent(ctx context.Context, id string) (*models.Intent, error)
	ListIntents(ctx context.Context, userID string, statuses ...models.IntentStatus) ([]models.Intent, error)
	UpdateIntentStatus(ctx context.Context, id string, status models.IntentStatus) error
	UpsertIntentProgress(ctx context.Context, p *models.IntentProgress) error
	ListIntentProgress(ctx context.Context, intentID string) ([]models.IntentProgress, error)
	ListMilestones(ctx context.Context, intentID string) ([]models.IntentMilestone, error)
	// MarkMilestoneAchieved flips an unachieved milestone and reports whether this call did it.
	MarkMilestoneAchieved(ctx context.Context, id string, at time.Time) (bool, error)

	GetAchievement(ctx context.Context, id string) (*models.Achievement, error)
	GetAchievementBySlug(ctx context.Context, slug string) (*models.Achievement, error)
	// UpsertAchievementUnlock inserts the unlock if absent and reports whether a row was created.
	UpsertAchievementUnlock(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
	ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)

	ListToolUnlocks(ctx context.Context, userID string) ([]models.ToolUnlock, error)
	CreateToolUnlock(ctx context.Context, u *models.ToolUnlock) error
}
