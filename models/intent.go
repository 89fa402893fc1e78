package models

import "time"

type IntentType string

const (
	IntentCompleteTrack   IntentType = "complete_track"
	IntentMaintainStreak  IntentType = "maintain_streak"
	IntentCompleteContent IntentType = "complete_content"
	IntentBuildHabit      IntentType = "build_habit"
	IntentSaveAmount      IntentType = "save_amount"
	IntentReduceSpending  IntentType = "reduce_spending"
)

type PeriodType string

const (
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodCustom  PeriodType = "custom"
)

type TargetMetric string

const (
	MetricCurrency     TargetMetric = "currency"
	MetricStreakDays   TargetMetric = "streak_days"
	MetricContentCount TargetMetric = "content_count"
	MetricPercentage   TargetMetric = "percentage"
	MetricCustom       TargetMetric = "custom"
)

type IntentStatus string

const (
	IntentActive    IntentStatus = "active"
	IntentPaused    IntentStatus = "paused"
	IntentCompleted IntentStatus = "completed"
	IntentAbandoned IntentStatus = "abandoned"
)

// ProgressStatus classifies a single sample against the linear pace.
type ProgressStatus string

const (
	ProgressOnTrack  ProgressStatus = "on_track"
	ProgressBehind   ProgressStatus = "behind"
	ProgressExceeded ProgressStatus = "exceeded"
)

func (t IntentType) Valid() bool {
	switch t {
	case IntentCompleteTrack, IntentMaintainStreak, IntentCompleteContent,
		IntentBuildHabit, IntentSaveAmount, IntentReduceSpending:
		return true
	}
	return false
}

func (p PeriodType) Valid() bool {
	return p == PeriodWeekly || p == PeriodMonthly || p == PeriodCustom
}

func (m TargetMetric) Valid() bool {
	switch m {
	case MetricCurrency, MetricStreakDays, MetricContentCount, MetricPercentage, MetricCustom:
		return true
	}
	return false
}

// Intent is a user goal with a target value and a date window. Dates use DateLayout.
type Intent struct {
	UUIDModel
	UserID       string       `gorm:"size:36;not null;index:idx_intent_user_status,priority:1" json:"user_id"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	IntentType   IntentType   `gorm:"size:32;not null" json:"intent_type"`
	PeriodType   PeriodType   `gorm:"size:16;not null" json:"period_type"`
	TargetValue  float64      `gorm:"not null" json:"target_value"`
	TargetMetric TargetMetric `gorm:"size:16;not null" json:"target_metric"`
	StartDate    string       `gorm:"size:10;not null" json:"start_date"`
	EndDate      string       `gorm:"size:10;not null" json:"end_date"`
	Status       IntentStatus `gorm:"size:16;not null;default:active;index:idx_intent_user_status,priority:2" json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IntentProgress is one sample per intent per calendar day. Relogging a day replaces it.
type IntentProgress struct {
	UUIDModel
	IntentID    string         `gorm:"size:36;not null;uniqueIndex:idx_intent_date,priority:1" json:"intent_id"`
	TrackedDate string         `gorm:"size:10;not null;uniqueIndex:idx_intent_date,priority:2" json:"tracked_date"`
	ActualValue float64        `gorm:"not null" json:"actual_value"`
	Status      ProgressStatus `gorm:"size:16;not null" json:"status"`
	Notes       string         `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type MilestoneType string

const (
	MilestoneDay3      MilestoneType = "day_3"
	MilestoneWeek1     MilestoneType = "week_1"
	MilestoneHalfway   MilestoneType = "halfway"
	MilestoneDay21     MilestoneType = "day_21"
	MilestoneCompleted MilestoneType = "completed"
)

// IntentMilestone is created with its intent and flips to achieved at most once.
type IntentMilestone struct {
	UUIDModel
	IntentID              string        `gorm:"size:36;not null;index" json:"intent_id"`
	MilestoneType         MilestoneType `gorm:"size:16;not null" json:"milestone_type"`
	Name                  string        `gorm:"size:128;not null" json:"name"`
	TargetProgressPercent *float64      `json:"target_progress_percent"`
	CoinsReward           int64         `gorm:"not null;default:0" json:"coins_reward"`
	AchievementID         *string       `gorm:"size:36" json:"achievement_id"`
	IsAchieved            bool          `gorm:"not null;default:false" json:"is_achieved"`
	AchievedAt            *time.Time    `json:"achieved_at"`
}

func (IntentProgress) TableName() string { return "intent_progress" }
