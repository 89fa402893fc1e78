package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the authentication identity. Passwords are stored as bcrypt hashes only.
type User struct {
	UUIDModel
	Username     string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Profile holds the per-user progression state. Coin columns are a cached
// projection of the ledger and are written only by the ledger helper.
type Profile struct {
	UserID              string    `gorm:"primaryKey;size:36" json:"user_id"`
	TotalCoins          int64     `gorm:"not null;default:0" json:"total_coins"`
	ConvertibleCoins    int64     `gorm:"not null;default:0" json:"convertible_coins"`
	CurrentTrackID      *string   `gorm:"size:36;index" json:"current_track_id"`
	OnboardingCompleted bool      `gorm:"not null;default:false" json:"onboarding_completed"`
	LedgerSeq           int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DiagnosisResponse stores the onboarding questionnaire that picks the starting track.
type DiagnosisResponse struct {
	UUIDModel
	UserID                string    `gorm:"size:36;not null;uniqueIndex" json:"user_id"`
	HasOverdueDebt        bool      `json:"has_overdue_debt"`
	CanSaveMonthly        bool      `json:"can_save_monthly"`
	HasEmergencyFund      bool      `json:"has_emergency_fund"`
	KnowsRetirementTarget bool      `json:"knows_retirement_target"`
	UnderstandsPGBLVGBL   bool      `json:"understands_pgbl_vgbl"`
	AssignedTrackSlug     string    `gorm:"size:32;not null" json:"assigned_track_slug"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
