package models

import "time"

// StreakState stores a user's consecutive-day activity. Created lazily on first activity.
type StreakState struct {
	UserID           string    `gorm:"primaryKey;size:36" json:"user_id"`
	CurrentStreak    int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int       `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate *string   `gorm:"size:10" json:"last_activity_date"`
	Multiplier       float64   `gorm:"not null;default:1" json:"multiplier"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
