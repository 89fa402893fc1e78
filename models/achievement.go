package models

import "time"

// Achievement is a badge from the read-only catalog.
type Achievement struct {
	UUIDModel
	Slug        string `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Title       string `gorm:"size:128;not null" json:"title"`
	Description string `gorm:"size:255" json:"description"`
	CoinsReward int64  `gorm:"not null;default:0" json:"coins_reward"`
}

// UserAchievement records an unlocked badge. Unique per user and achievement.
type UserAchievement struct {
	UUIDModel
	UserID        string    `gorm:"size:36;not null;uniqueIndex:idx_user_achievement,priority:1" json:"user_id"`
	AchievementID string    `gorm:"size:36;not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// ToolUnlock records access to a calculator tool. Unique per user and tool.
type ToolUnlock struct {
	UUIDModel
	UserID       string    `gorm:"size:36;not null;uniqueIndex:idx_user_tool,priority:1" json:"user_id"`
	ToolSlug     string    `gorm:"size:32;not null;uniqueIndex:idx_user_tool,priority:2" json:"tool_slug"`
	UnlockMethod string    `gorm:"size:16;not null" json:"unlock_method"`
	CoinsSpent   int64     `gorm:"not null;default:0" json:"coins_spent"`
	UnlockedAt   time.Time `json:"unlocked_at"`
}
