package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SourceType classifies what produced a ledger entry.
type SourceType string

const (
	SourceContentCompletion SourceType = "content_completion"
	SourceQuizCompletion    SourceType = "quiz_completion"
	SourceStreakBonus       SourceType = "streak_bonus"
	SourceTrackAdvance      SourceType = "track_advance"
	SourceIntentMilestone   SourceType = "intent_milestone"
	SourceAchievementUnlock SourceType = "achievement_unlock"
	SourceToolUnlock        SourceType = "tool_unlock"
	SourceManualAdjustment  SourceType = "manual_adjustment"
)

// ErrImmutableEntry is returned when something tries to rewrite ledger history.
var ErrImmutableEntry = errors.New("ledger entries are append-only")

// LedgerEntry is one coin-affecting transaction. Positive amounts earn, negative amounts spend.
type LedgerEntry struct {
	UUIDModel
	UserID        string     `gorm:"size:36;not null;index:idx_ledger_user_created,priority:1;index:idx_ledger_user_seq,priority:1" json:"user_id"`
	Amount        int64      `gorm:"not null" json:"amount"`
	SourceType    SourceType `gorm:"size:32;not null" json:"source_type"`
	SourceID      *string    `gorm:"size:36" json:"source_id"`
	IsConvertible bool       `gorm:"not null;default:false" json:"is_convertible"`
	Description   string     `gorm:"size:255" json:"description"`
	BalanceAfter  int64      `gorm:"not null" json:"balance_after"`
	Sequence      int64      `gorm:"not null;default:0;index:idx_ledger_user_seq,priority:2" json:"sequence"`
	CreatedAt     time.Time  `gorm:"index:idx_ledger_user_created,priority:2" json:"created_at"`
}

// BeforeUpdate rejects in-place edits; corrections are new manual_adjustment entries.
func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// BeforeDelete rejects deletion of ledger history.
func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableEntry
}
