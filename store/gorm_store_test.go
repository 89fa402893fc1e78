package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
	"github.com/cppla/pulso/testutil"
)

func TestTranslatesNotFoundAndDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()

	_, err := st.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.CreateUser(ctx, &models.User{Username: "ana", PasswordHash: "x"}))
	err = st.CreateUser(ctx, &models.User{Username: "ana", PasswordHash: "y"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestTransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateUser(ctx, &models.User{Username: "rolled", PasswordHash: "x"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.GetUserByUsername(ctx, "rolled")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLedgerListingAndSums(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()
	u := testutil.NewUser(t, db, "ana")

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, e := range []struct {
		amount int64
		conv   bool
	}{{10, false}, {20, true}, {-5, false}} {
		require.NoError(t, st.AppendLedgerEntry(ctx, &models.LedgerEntry{
			UserID:        u.ID,
			Amount:        e.amount,
			SourceType:    models.SourceManualAdjustment,
			IsConvertible: e.conv,
			Description:   "seed",
			Sequence:      int64(i + 1),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	total, conv, err := st.SumLedger(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Equal(t, int64(20), conv)

	page, n, err := st.ListLedgerEntries(ctx, u.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, page, 2)
	assert.Equal(t, int64(-5), page[0].Amount)

	total, conv, err = st.SumLedger(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, conv)
}

func TestUpsertStreakReplacesRow(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()
	u := testutil.NewUser(t, db, "ana")

	day := "2025-03-10"
	require.NoError(t, st.UpsertStreak(ctx, &models.StreakState{UserID: u.ID, CurrentStreak: 1, LongestStreak: 1, LastActivityDate: &day, Multiplier: 1}))
	next := "2025-03-11"
	require.NoError(t, st.UpsertStreak(ctx, &models.StreakState{UserID: u.ID, CurrentStreak: 2, LongestStreak: 2, LastActivityDate: &next, Multiplier: 1}))

	got, err := st.GetStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStreak)
	assert.Equal(t, next, *got.LastActivityDate)
}

func TestCountCompletedContentIgnoresUnpublished(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()
	u := testutil.NewUser(t, db, "ana")
	published := testutil.SeedContent(t, db, "fundacao", 3, 10, true)
	drafts := testutil.SeedContent(t, db, "fundacao", 2, 10, false)
	track := testutil.Track(t, db, "fundacao")

	for _, c := range []models.ContentItem{published[0], published[1], drafts[0]} {
		require.NoError(t, st.CreateContentProgress(ctx, &models.ContentProgress{UserID: u.ID, ContentID: c.ID, CompletedAt: time.Now()}))
	}
	err := st.CreateContentProgress(ctx, &models.ContentProgress{UserID: u.ID, ContentID: published[0].ID, CompletedAt: time.Now()})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	n, err := st.CountPublishedContent(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = st.CountCompletedContent(ctx, u.ID, track.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestIntentProgressUpsertAndMilestones(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()
	u := testutil.NewUser(t, db, "ana")

	intent := &models.Intent{
		UserID:       u.ID,
		Title:        "Guardar",
		IntentType:   models.IntentSaveAmount,
		PeriodType:   models.PeriodCustom,
		TargetValue:  100,
		TargetMetric: models.MetricCurrency,
		StartDate:    "2025-03-01",
		EndDate:      "2025-03-31",
		Status:       models.IntentActive,
	}
	require.NoError(t, st.CreateIntent(ctx, intent, []models.IntentMilestone{
		{MilestoneType: models.MilestoneDay3, Name: "3 dias", CoinsReward: 10},
	}))

	var ids []string
	for _, v := range []float64{30, 45} {
		p := &models.IntentProgress{
			IntentID: intent.ID, TrackedDate: "2025-03-02", ActualValue: v, Status: models.ProgressOnTrack,
		}
		require.NoError(t, st.UpsertIntentProgress(ctx, p))
		assert.Equal(t, v, p.ActualValue)
		ids = append(ids, p.ID)
	}
	samples, err := st.ListIntentProgress(ctx, intent.ID)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 45.0, samples[0].ActualValue)
	assert.Equal(t, samples[0].ID, ids[0])
	assert.Equal(t, samples[0].ID, ids[1], "replace keeps the stored id")

	ms, err := st.ListMilestones(ctx, intent.ID)
	require.NoError(t, err)
	require.Len(t, ms, 1)

	ok, err := st.MarkMilestoneAchieved(ctx, ms[0].ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.MarkMilestoneAchieved(ctx, ms[0].ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second mark is a no-op")

	active, err := st.ListIntents(ctx, u.ID, models.IntentActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	paused, err := st.ListIntents(ctx, u.ID, models.IntentPaused)
	require.NoError(t, err)
	assert.Empty(t, paused)
}

func TestAchievementUnlockIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	st := store.New(db)
	ctx := context.Background()
	u := testutil.NewUser(t, db, "ana")

	ach, err := st.GetAchievementBySlug(ctx, models.AchievementIntentCompleted)
	require.NoError(t, err)

	created, err := st.UpsertAchievementUnlock(ctx, u.ID, ach.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, created)
	created, err = st.UpsertAchievementUnlock(ctx, u.ID, ach.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, created)

	list, err := st.ListUserAchievements(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
