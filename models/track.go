package models

import (
	"time"

	"gorm.io/datatypes"
)

// Track is an ordered stage of the curriculum. The catalog is read-only for the engine.
type Track struct {
	UUIDModel
	Slug             string `gorm:"size:32;not null;uniqueIndex" json:"slug"`
	Name             string `gorm:"size:64;not null" json:"name"`
	Description      string `gorm:"size:255" json:"description"`
	SortOrder        int    `gorm:"not null;index" json:"sort_order"`
	CoinsConvertible bool   `gorm:"not null" json:"coins_convertible"`
}

// ContentItem is a daily lesson belonging to exactly one track.
type ContentItem struct {
	UUIDModel
	TrackID     string    `gorm:"size:36;not null;index:idx_content_track_published,priority:1" json:"track_id"`
	DayNumber   int       `gorm:"not null" json:"day_number"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	CoinsReward int64     `gorm:"not null" json:"coins_reward"`
	IsPublished bool      `gorm:"not null;default:false;index:idx_content_track_published,priority:2" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

// Quiz belongs to a track and pays CoinsReward for a perfect score.
type Quiz struct {
	UUIDModel
	TrackID     string         `gorm:"size:36;not null;index" json:"track_id"`
	ContentID   *string        `gorm:"size:36" json:"content_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	CoinsReward int64          `gorm:"not null" json:"coins_reward"`
	Questions   []QuizQuestion `gorm:"constraint:OnDelete:CASCADE;" json:"questions,omitempty"`
}

// QuizQuestion is one multiple-choice question; Options is a JSON array of strings.
type QuizQuestion struct {
	UUIDModel
	QuizID             string         `gorm:"size:36;not null;index" json:"quiz_id"`
	QuestionText       string         `gorm:"type:text;not null" json:"question_text"`
	Options            datatypes.JSON `json:"options"`
	CorrectOptionIndex int            `gorm:"not null" json:"-"`
	SortOrder          int            `gorm:"not null" json:"sort_order"`
}

// ContentProgress marks a content item as completed. Unique per user and item.
type ContentProgress struct {
	UUIDModel
	UserID      string    `gorm:"size:36;not null;uniqueIndex:idx_user_content,priority:1" json:"user_id"`
	ContentID   string    `gorm:"size:36;not null;uniqueIndex:idx_user_content,priority:2" json:"content_id"`
	CoinsEarned int64     `gorm:"not null;default:0" json:"coins_earned"`
	CompletedAt time.Time `json:"completed_at"`
}

// QuizAttempt records every submission. RewardKey is set only on the rewarded
// perfect attempt, so the unique index admits one paid attempt per user and quiz.
type QuizAttempt struct {
	UUIDModel
	UserID         string         `gorm:"size:36;not null;uniqueIndex:idx_quiz_reward,priority:1" json:"user_id"`
	QuizID         string         `gorm:"size:36;not null;uniqueIndex:idx_quiz_reward,priority:2" json:"quiz_id"`
	RewardKey      *string        `gorm:"size:16;uniqueIndex:idx_quiz_reward,priority:3" json:"-"`
	Answers        datatypes.JSON `json:"answers"`
	Score          int            `gorm:"not null" json:"score"`
	TotalQuestions int            `gorm:"not null" json:"total_questions"`
	CoinsEarned    int64          `gorm:"not null;default:0" json:"coins_earned"`
	CompletedAt    time.Time      `json:"completed_at"`
}

func (ContentProgress) TableName() string { return "content_progress" }
