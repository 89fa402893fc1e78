package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

const (
	UnlockFree     = "free"
	UnlockCriteria = "criteria"
	UnlockCoins    = "coins"
)

type criteriaKind string

const (
	criteriaContentCount criteriaKind = "content_count"
	criteriaStreakDays   criteriaKind = "streak_days"
)

// Tool is a calculator gated behind coins or activity.
type Tool struct {
	Slug      string
	Name      string
	Free      bool
	CoinsCost int64
	Criteria  criteriaKind
	Target    int64
}

// Tools is the ordered tool catalog.
var Tools = []Tool{
	{Slug: "emergency-fund", Name: "Reserva de emergência", Free: true},
	{Slug: "compound-interest", Name: "Juros compostos", CoinsCost: 50, Criteria: criteriaContentCount, Target: 5},
	{Slug: "debt-payoff", Name: "Quitação de dívidas", CoinsCost: 100, Criteria: criteriaStreakDays, Target: 7},
}

func lookupTool(slug string) (Tool, bool) {
	for _, t := range Tools {
		if t.Slug == slug {
			return t, true
		}
	}
	return Tool{}, false
}

type ToolStatus struct {
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	CoinsCost        int64   `json:"coins_cost"`
	Unlocked         bool    `json:"unlocked"`
	UnlockMethod     *string `json:"unlock_method"`
	CriteriaProgress *int64  `json:"criteria_progress"`
	CriteriaTarget   *int64  `json:"criteria_target"`
	CriteriaPercent  *int    `json:"criteria_percent"`
	CanAfford        bool    `json:"can_afford"`
}

type ToolUnlocker struct {
	base
	ledger *Ledger
}

func NewToolUnlocker(b base, ledger *Ledger) *ToolUnlocker {
	return &ToolUnlocker{base: b.named("tools"), ledger: ledger}
}

// Statuses reports every tool for the user. Free tools and tools whose criteria
// are met are unlocked as a side effect.
func (t *ToolUnlocker) Statuses(ctx context.Context, userID string) ([]ToolStatus, error) {
	var out []ToolStatus
	err := t.inTx(ctx, "tool statuses", func(ctx context.Context, tx store.Store) error {
		out = out[:0]
		profile, err := tx.LockProfile(ctx, userID)
		if err != nil {
			return storeErr("profile", err)
		}
		unlocks, err := tx.ListToolUnlocks(ctx, userID)
		if err != nil {
			return storeErr("tool unlocks", err)
		}
		unlocked := make(map[string]models.ToolUnlock, len(unlocks))
		for _, u := range unlocks {
			unlocked[u.ToolSlug] = u
		}

		contents, err := tx.CountAllCompletedContent(ctx, userID)
		if err != nil {
			return storeErr("count completed content", err)
		}
		var streak int64
		switch st, err := tx.GetStreak(ctx, userID); {
		case err == nil:
			streak = int64(st.CurrentStreak)
		case !errors.Is(err, store.ErrNotFound):
			return storeErr("streak", err)
		}

		for _, tool := range Tools {
			status := ToolStatus{Slug: tool.Slug, Name: tool.Name, CoinsCost: tool.CoinsCost}
			if u, ok := unlocked[tool.Slug]; ok {
				method := u.UnlockMethod
				status.Unlocked, status.UnlockMethod, status.CanAfford = true, &method, true
				out = append(out, status)
				continue
			}

			method := ""
			switch {
			case tool.Free:
				method = UnlockFree
			case tool.Criteria != "":
				progress := contents
				if tool.Criteria == criteriaStreakDays {
					progress = streak
				}
				pct := min(100, percentOf(progress, tool.Target))
				target := tool.Target
				status.CriteriaProgress, status.CriteriaTarget, status.CriteriaPercent = &progress, &target, &pct
				if progress >= tool.Target {
					method = UnlockCriteria
				}
			}

			if method == "" {
				status.CanAfford = profile.TotalCoins >= tool.CoinsCost
				out = append(out, status)
				continue
			}
			if err := tx.CreateToolUnlock(ctx, &models.ToolUnlock{
				UserID:       userID,
				ToolSlug:     tool.Slug,
				UnlockMethod: method,
				UnlockedAt:   t.clock.Now(),
			}); err != nil {
				return storeErr("unlock tool", err)
			}
			status.Unlocked, status.UnlockMethod, status.CanAfford = true, &method, true
			out = append(out, status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnlockWithCoins buys a tool. The cost is taken from non-convertible coins first.
func (t *ToolUnlocker) UnlockWithCoins(ctx context.Context, userID, slug string) (*models.ToolUnlock, error) {
	tool, ok := lookupTool(slug)
	if !ok {
		return nil, notFound("tool " + slug)
	}
	if tool.Free {
		return nil, invalid("tool %s is free", slug)
	}

	unlock := &models.ToolUnlock{
		UserID:       userID,
		ToolSlug:     tool.Slug,
		UnlockMethod: UnlockCoins,
		CoinsSpent:   tool.CoinsCost,
	}
	err := t.inTx(ctx, "unlock tool", func(ctx context.Context, tx store.Store) error {
		if _, err := tx.LockProfile(ctx, userID); err != nil {
			return storeErr("profile", err)
		}
		unlocks, err := tx.ListToolUnlocks(ctx, userID)
		if err != nil {
			return storeErr("tool unlocks", err)
		}
		for _, u := range unlocks {
			if u.ToolSlug == tool.Slug {
				return invalid("tool %s is already unlocked", slug)
			}
		}
		if _, err := t.ledger.Spend(ctx, tx, userID, tool.CoinsCost, models.SourceToolUnlock, nil,
			fmt.Sprintf("Desbloqueio: %s", tool.Name)); err != nil {
			return err
		}
		unlock.UnlockedAt = t.clock.Now()
		if err := tx.CreateToolUnlock(ctx, unlock); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return invalid("tool %s is already unlocked", slug)
			}
			return storeErr("unlock tool", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.log.Info("tool unlocked", zap.String("user_id", userID), zap.String("tool", slug), zap.Int64("amount", -tool.CoinsCost))
	return unlock, nil
}
