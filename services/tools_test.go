package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/testutil"
)

func statusBySlug(statuses []ToolStatus) map[string]ToolStatus {
	out := make(map[string]ToolStatus, len(statuses))
	for _, s := range statuses {
		out[s.Slug] = s
	}
	return out
}

func TestToolStatusesUnlockFreeAndCriteria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statuses, err := f.engine.Tools.Statuses(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, statuses, len(Tools))
	byslug := statusBySlug(statuses)

	assert.True(t, byslug["emergency-fund"].Unlocked)
	assert.Equal(t, UnlockFree, *byslug["emergency-fund"].UnlockMethod)
	compound := byslug["compound-interest"]
	assert.False(t, compound.Unlocked)
	assert.Equal(t, int64(0), *compound.CriteriaProgress)
	assert.Equal(t, int64(5), *compound.CriteriaTarget)
	assert.False(t, compound.CanAfford)

	testutil.PlaceOnTrack(t, f.db, f.user.ID, "retomada")
	items := testutil.SeedContent(t, f.db, "retomada", 20, 10, true)
	for _, item := range items[:5] {
		_, err := f.engine.Rewards.CompleteContent(ctx, f.user.ID, item.ID)
		require.NoError(t, err)
	}

	statuses, err = f.engine.Tools.Statuses(ctx, f.user.ID)
	require.NoError(t, err)
	byslug = statusBySlug(statuses)
	assert.True(t, byslug["compound-interest"].Unlocked)
	assert.Equal(t, UnlockCriteria, *byslug["compound-interest"].UnlockMethod)
	assert.False(t, byslug["debt-payoff"].Unlocked)
	assert.Equal(t, 14, *byslug["debt-payoff"].CriteriaPercent)

	var unlocks int64
	require.NoError(t, f.db.Model(&models.ToolUnlock{}).Where("user_id = ?", f.user.ID).Count(&unlocks).Error)
	assert.Equal(t, int64(2), unlocks)
}

func TestUnlockWithCoinsKeepsBalancesValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Tools.UnlockWithCoins(ctx, f.user.ID, "debt-payoff")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	f.credit(t, 30, false)
	f.credit(t, 100, true)

	unlock, err := f.engine.Tools.UnlockWithCoins(ctx, f.user.ID, "debt-payoff")
	require.NoError(t, err)
	assert.Equal(t, UnlockCoins, unlock.UnlockMethod)
	assert.Equal(t, int64(100), unlock.CoinsSpent)

	p := f.profile(t)
	assert.Equal(t, int64(30), p.TotalCoins)
	assert.Equal(t, int64(30), p.ConvertibleCoins)
	assert.Len(t, f.entries(t, models.SourceToolUnlock), 2)
	testutil.RequireLedgerConsistent(t, f.db, f.user.ID)

	_, err = f.engine.Tools.UnlockWithCoins(ctx, f.user.ID, "debt-payoff")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.engine.Tools.UnlockWithCoins(ctx, f.user.ID, "emergency-fund")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.engine.Tools.UnlockWithCoins(ctx, f.user.ID, "crystal-ball")
	require.ErrorIs(t, err, ErrNotFound)
}
