package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

// multiplierTable is ordered by descending threshold.
var multiplierTable = []struct {
	days       int
	multiplier float64
}{
	{90, 3.00},
	{60, 2.50},
	{30, 2.00},
	{14, 1.50},
	{7, 1.25},
}

// streakBonusDays pay streakBonusPerDay coins per streak day when reached exactly.
var streakBonusDays = map[int]bool{7: true, 14: true, 30: true, 60: true, 90: true}

const streakBonusPerDay = 5

// Multiplier returns the reward multiplier for a streak length.
func Multiplier(streak int) float64 {
	for _, row := range multiplierTable {
		if streak >= row.days {
			return row.multiplier
		}
	}
	return 1.0
}

type StreakTracker struct {
	base
	ledger *Ledger
}

func NewStreakTracker(b base, ledger *Ledger) *StreakTracker {
	return &StreakTracker{base: b.named("streak"), ledger: ledger}
}

// StreakUpdate is the outcome of RecordActivity. Bonus is nil unless a milestone day was reached.
type StreakUpdate struct {
	State   models.StreakState  `json:"state"`
	Changed bool                `json:"changed"`
	Bonus   *models.LedgerEntry `json:"bonus,omitempty"`
}

// RecordActivity counts today as an active day. Calling it again on the same day is a no-op.
func (s *StreakTracker) RecordActivity(ctx context.Context, tx store.Store, userID string) (*StreakUpdate, error) {
	todayStr := today(s.clock)

	state, err := tx.GetStreak(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state = &models.StreakState{UserID: userID}
	case err != nil:
		return nil, storeErr("streak", err)
	}

	if state.LastActivityDate != nil && *state.LastActivityDate == todayStr {
		return &StreakUpdate{State: *state}, nil
	}

	if state.LastActivityDate != nil && *state.LastActivityDate == yesterday(s.clock) {
		state.CurrentStreak++
	} else {
		state.CurrentStreak = 1
	}
	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.LastActivityDate = &todayStr
	state.Multiplier = Multiplier(state.CurrentStreak)

	if err := tx.UpsertStreak(ctx, state); err != nil {
		return nil, storeErr("save streak", err)
	}

	out := &StreakUpdate{State: *state, Changed: true}
	if streakBonusDays[state.CurrentStreak] {
		bonus := int64(state.CurrentStreak * streakBonusPerDay)
		entry, err := s.ledger.Append(ctx, tx, userID, bonus, models.SourceStreakBonus, nil, true,
			fmt.Sprintf("Sequência de %d dias", state.CurrentStreak))
		if err != nil {
			return nil, err
		}
		out.Bonus = entry
		s.log.Info("streak milestone reached", zap.String("user_id", userID), zap.Int("streak", state.CurrentStreak))
	}
	return out, nil
}

// currentMultiplier reads the stored streak without updating it.
func (s *StreakTracker) currentMultiplier(ctx context.Context, tx store.Store, userID string) (float64, error) {
	state, err := tx.GetStreak(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 1.0, nil
	}
	if err != nil {
		return 0, storeErr("streak", err)
	}
	return Multiplier(state.CurrentStreak), nil
}

// StreakView is the read model for a user's streak.
type StreakView struct {
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	LastActivityDate *string `json:"last_activity_date"`
	Multiplier       float64 `json:"multiplier"`
	ActiveToday      bool    `json:"active_today"`
	// AtRisk means the streak ends unless the user is active today.
	AtRisk bool `json:"at_risk"`
}

func (s *StreakTracker) Get(ctx context.Context, userID string) (*StreakView, error) {
	state, err := s.store.GetStreak(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &StreakView{Multiplier: 1.0}, nil
	}
	if err != nil {
		return nil, storeErr("streak", err)
	}
	v := &StreakView{
		CurrentStreak:    state.CurrentStreak,
		LongestStreak:    state.LongestStreak,
		LastActivityDate: state.LastActivityDate,
		Multiplier:       Multiplier(state.CurrentStreak),
	}
	if state.LastActivityDate != nil {
		v.ActiveToday = *state.LastActivityDate == today(s.clock)
		v.AtRisk = *state.LastActivityDate == yesterday(s.clock)
	}
	return v, nil
}
