package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pulso/testutil"
)

func TestRegisterCreatesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.engine.Accounts.Register(ctx, "  carla ", "hash")
	require.NoError(t, err)
	assert.Equal(t, "carla", u.Username)
	assert.Zero(t, testutil.Profile(t, f.db, u.ID).TotalCoins)

	_, err = f.engine.Accounts.Register(ctx, "carla", "hash")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.engine.Accounts.Register(ctx, "", "hash")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestProfileView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.PlaceOnTrack(t, f.db, f.user.ID, "fundacao")
	f.credit(t, 12, true)

	v, err := f.engine.Accounts.Profile(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", v.User.Username)
	assert.Equal(t, int64(12), v.Profile.TotalCoins)
	require.NotNil(t, v.CurrentTrack)
	assert.Equal(t, "fundacao", v.CurrentTrack.Slug)
	assert.Equal(t, 0, v.Streak.CurrentStreak)
	assert.Empty(t, v.Achievements)

	_, err = f.engine.Accounts.Profile(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
