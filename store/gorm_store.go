package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/pulso/models"
)

// GormStore implements Store on gorm. The zero value is not usable; use New.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormStore) first(ctx context.Context, out interface{}, query string, args ...interface{}) error {
	return translate(s.conn(ctx).Where(query, args...).First(out).Error)
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "username = ?", username); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.first(ctx, &p, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) LockProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	return translate(s.conn(ctx).Save(p).Error)
}

func (s *GormStore) SetProfileTrack(ctx context.Context, userID, trackID string, completeOnboarding bool) error {
	updates := map[string]interface{}{"current_track_id": trackID}
	if completeOnboarding {
		updates["onboarding_completed"] = true
	}
	return s.conn(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Updates(updates).Error
}

func (s *GormStore) SaveDiagnosis(ctx context.Context, d *models.DiagnosisResponse) error {
	return translate(s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"has_overdue_debt", "can_save_monthly", "has_emergency_fund",
			"knows_retirement_target", "understands_pgbl_vgbl", "assigned_track_slug", "updated_at",
		}),
	}).Create(d).Error)
}

func (s *GormStore) AppendLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	return translate(s.conn(ctx).Create(e).Error)
}

func (s *GormStore) ListLedgerEntries(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, int64, error) {
	var total int64
	q := s.conn(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.LedgerEntry
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("sequence DESC").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *GormStore) SumLedger(ctx context.Context, userID string) (int64, int64, error) {
	var row struct {
		Total       int64
		Convertible int64
	}
	err := s.conn(ctx).Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total, COALESCE(SUM(CASE WHEN is_convertible THEN amount ELSE 0 END), 0) AS convertible").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Convertible, nil
}

func (s *GormStore) GetStreak(ctx context.Context, userID string) (*models.StreakState, error) {
	var st models.StreakState
	if err := s.first(ctx, &st, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *GormStore) UpsertStreak(ctx context.Context, st *models.StreakState) error {
	return translate(s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_activity_date", "multiplier", "updated_at"}),
	}).Create(st).Error)
}

func (s *GormStore) ListTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	if err := s.conn(ctx).Order("sort_order ASC").Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

func (s *GormStore) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	var t models.Track
	if err := s.first(ctx, &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) GetTrackBySlug(ctx context.Context, slug string) (*models.Track, error) {
	var t models.Track
	if err := s.first(ctx, &t, "slug = ?", slug); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) CountPublishedContent(ctx context.Context, trackID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.ContentItem{}).
		Where("track_id = ? AND is_published = ?", trackID, true).
		Count(&n).Error
	return n, err
}

// CountCompletedContent counts completions of published items in the track only.
func (s *GormStore) CountCompletedContent(ctx context.Context, userID, trackID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.ContentProgress{}).
		Joins("JOIN content_items ON content_items.id = content_progress.content_id").
		Where("content_progress.user_id = ? AND content_items.track_id = ? AND content_items.is_published = ?", userID, trackID, true).
		Count(&n).Error
	return n, err
}

func (s *GormStore) CountAllCompletedContent(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.ContentProgress{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (s *GormStore) GetContentItem(ctx context.Context, id string) (*models.ContentItem, error) {
	var c models.ContentItem
	if err := s.first(ctx, &c, "id = ?", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) CreateContentProgress(ctx context.Context, p *models.ContentProgress) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *GormStore) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	var q models.Quiz
	err := s.conn(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("id = ?", id).
		First(&q).Error
	if err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (s *GormStore) CreateQuizAttempt(ctx context.Context, a *models.QuizAttempt) error {
	return translate(s.conn(ctx).Create(a).Error)
}

func (s *GormStore) HasRewardedQuizAttempt(ctx context.Context, userID, quizID string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND reward_key IS NOT NULL", userID, quizID).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) CreateIntent(ctx context.Context, i *models.Intent, milestones []models.IntentMilestone) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(i).Error; err != nil {
			return err
		}
		if len(milestones) == 0 {
			return nil
		}
		for idx := range milestones {
			milestones[idx].IntentID = i.ID
		}
		return tx.Create(&milestones).Error
	}))
}

func (s *GormStore) GetIntent(ctx context.Context, id string) (*models.Intent, error) {
	var i models.Intent
	if err := s.first(ctx, &i, "id = ?", id); err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *GormStore) ListIntents(ctx context.Context, userID string, statuses ...models.IntentStatus) ([]models.Intent, error) {
	q := s.conn(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []models.Intent
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) UpdateIntentStatus(ctx context.Context, id string, status models.IntentStatus) error {
	return s.conn(ctx).Model(&models.Intent{}).Where("id = ?", id).Update("status", status).Error
}

// UpsertIntentProgress replaces the sample for the same intent and date.
// p is refreshed from the stored row, which keeps its original id on a replace.
func (s *GormStore) UpsertIntentProgress(ctx context.Context, p *models.IntentProgress) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "intent_id"}, {Name: "tracked_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual_value", "status", "notes", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return translate(err)
	}
	var stored models.IntentProgress
	err = s.conn(ctx).
		Where("intent_id = ? AND tracked_date = ?", p.IntentID, p.TrackedDate).
		First(&stored).Error
	if err != nil {
		return translate(err)
	}
	*p = stored
	return nil
}

func (s *GormStore) ListIntentProgress(ctx context.Context, intentID string) ([]models.IntentProgress, error) {
	var out []models.IntentProgress
	if err := s.conn(ctx).Where("intent_id = ?", intentID).Order("tracked_date ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListMilestones(ctx context.Context, intentID string) ([]models.IntentMilestone, error) {
	var out []models.IntentMilestone
	if err := s.conn(ctx).Where("intent_id = ?", intentID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) MarkMilestoneAchieved(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.IntentMilestone{}).
		Where("id = ? AND is_achieved = ?", id, false).
		Updates(map[string]interface{}{"is_achieved": true, "achieved_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) GetAchievement(ctx context.Context, id string) (*models.Achievement, error) {
	var a models.Achievement
	if err := s.first(ctx, &a, "id = ?", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) GetAchievementBySlug(ctx context.Context, slug string) (*models.Achievement, error) {
	var a models.Achievement
	if err := s.first(ctx, &a, "slug = ?", slug); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) UpsertAchievementUnlock(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	ua := models.UserAchievement{UserID: userID, AchievementID: achievementID, UnlockedAt: at}
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&ua)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListToolUnlocks(ctx context.Context, userID string) ([]models.ToolUnlock, error) {
	var out []models.ToolUnlock
	if err := s.conn(ctx).Where("user_id = ?", userID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) CreateToolUnlock(ctx context.Context, u *models.ToolUnlock) error {
	return translate(s.conn(ctx).Create(u).Error)
}

var _ Store = (*GormStore)(nil)
