package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/testutil"
)

func validIntent(start, end string, target float64) CreateIntentInput {
	return CreateIntentInput{
		Title:        "Guardar dinheiro",
		IntentType:   models.IntentSaveAmount,
		PeriodType:   models.PeriodCustom,
		TargetValue:  target,
		TargetMetric: models.MetricCurrency,
		StartDate:    start,
		EndDate:      end,
	}
}

func milestoneTypes(ms []models.IntentMilestone) []models.MilestoneType {
	out := make([]models.MilestoneType, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.MilestoneType)
	}
	return out
}

func TestCreateIntentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mutate := map[string]func(*CreateIntentInput){
		"empty title":       func(in *CreateIntentInput) { in.Title = "   " },
		"zero target":       func(in *CreateIntentInput) { in.TargetValue = 0 },
		"negative target":   func(in *CreateIntentInput) { in.TargetValue = -5 },
		"end before start":  func(in *CreateIntentInput) { in.EndDate = "2025-03-01" },
		"end equals start":  func(in *CreateIntentInput) { in.EndDate = in.StartDate },
		"bad date":          func(in *CreateIntentInput) { in.EndDate = "next week" },
		"bad intent type":   func(in *CreateIntentInput) { in.IntentType = "get_rich" },
		"bad period type":   func(in *CreateIntentInput) { in.PeriodType = "daily" },
		"bad target metric": func(in *CreateIntentInput) { in.TargetMetric = "vibes" },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			in := validIntent("2025-03-10", "2025-03-20", 100)
			fn(&in)
			_, err := f.engine.Intents.Create(ctx, f.user.ID, in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	var n int64
	require.NoError(t, f.db.Model(&models.Intent{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateIntentMilestonesByDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	short, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-15", 100))
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]models.MilestoneType{models.MilestoneDay3, models.MilestoneHalfway, models.MilestoneCompleted},
		milestoneTypes(short.Milestones))

	long, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-04-10", 100))
	require.NoError(t, err)
	assert.Len(t, long.Milestones, 5)

	var completed models.IntentMilestone
	require.NoError(t, f.db.Where("intent_id = ? AND milestone_type = ?", long.ID, models.MilestoneCompleted).First(&completed).Error)
	require.NotNil(t, completed.AchievementID)
	var a models.Achievement
	require.NoError(t, f.db.Where("id = ?", *completed.AchievementID).First(&a).Error)
	assert.Equal(t, models.AchievementIntentCompleted, a.Slug)
}

func TestCreateIntentDefaultsStartToToday(t *testing.T) {
	f := newFixture(t)
	v, err := f.engine.Intents.Create(context.Background(), f.user.ID, validIntent("", "2025-03-17", 70))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", v.StartDate)
	assert.Equal(t, models.IntentActive, v.Status)
	assert.Equal(t, 7, v.DaysRemaining)
}

func TestIntentProgressReplacesSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-04-10", 500))
	require.NoError(t, err)

	first, err := f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-03-10", 100, "")
	require.NoError(t, err)
	res, err := f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-03-11", 150, "")
	require.NoError(t, err)
	assert.Equal(t, 250.0, res.Intent.CurrentProgress)
	assert.Equal(t, 50, res.Intent.ProgressPercentage)

	res, err = f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-03-10", 50, "corrigido")
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.Intent.CurrentProgress)
	assert.Equal(t, 40, res.Intent.ProgressPercentage)
	assert.Len(t, res.Intent.Progress, 2)
	assert.Equal(t, first.Sample.ID, res.Sample.ID)
	assert.Equal(t, 50.0, res.Sample.ActualValue)
	assert.Equal(t, "corrigido", res.Sample.Notes)

	var stored models.IntentProgress
	require.NoError(t, f.db.Where("intent_id = ? AND tracked_date = ?", intent.ID, "2025-03-10").First(&stored).Error)
	assert.Equal(t, stored.ID, res.Sample.ID)

	// halfway was reached once at 50% and stays achieved
	halfway := f.entries(t, models.SourceIntentMilestone)
	require.Len(t, halfway, 1)
	assert.Equal(t, int64(50), halfway[0].Amount)
}

func TestIntentPaceStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 100 over 10 days: 10 expected on the first day, 30 on the third
	intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-20", 100))
	require.NoError(t, err)

	cases := []struct {
		date   string
		actual float64
		want   models.ProgressStatus
	}{
		{"2025-03-10", 10, models.ProgressOnTrack},
		{"2025-03-10", 12, models.ProgressExceeded},
		{"2025-03-10", 7.9, models.ProgressBehind},
		{"2025-03-12", 25, models.ProgressOnTrack},
		{"2025-03-12", 23, models.ProgressBehind},
	}
	for _, tc := range cases {
		res, err := f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, tc.date, tc.actual, "")
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Sample.Status, "%s=%v", tc.date, tc.actual)
	}
}

func TestIntentProgressRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-20", 100))
	require.NoError(t, err)

	_, err = f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "", -1, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-04-01", 1, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	other := testutil.NewUser(t, f.db, "bruno")
	_, err = f.engine.Intents.LogProgress(ctx, other.ID, intent.ID, "", 1, "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.engine.Intents.Get(ctx, other.ID, intent.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.Intents.UpdateStatus(ctx, f.user.ID, intent.ID, models.IntentPaused)
	require.NoError(t, err)
	_, err = f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "", 1, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIntentStatusTransitions(t *testing.T) {
	cases := []struct {
		path []models.IntentStatus
		ok   bool
	}{
		{[]models.IntentStatus{models.IntentPaused}, true},
		{[]models.IntentStatus{models.IntentAbandoned}, true},
		{[]models.IntentStatus{models.IntentPaused, models.IntentCompleted}, true},
		{[]models.IntentStatus{models.IntentPaused, models.IntentAbandoned}, true},
		{[]models.IntentStatus{models.IntentPaused, models.IntentActive}, false},
		{[]models.IntentStatus{models.IntentActive}, false},
		{[]models.IntentStatus{models.IntentCompleted, models.IntentAbandoned}, false},
		{[]models.IntentStatus{models.IntentAbandoned, models.IntentPaused}, false},
		{[]models.IntentStatus{"archived"}, false},
	}
	for _, tc := range cases {
		f := newFixture(t)
		ctx := context.Background()
		intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-20", 100))
		require.NoError(t, err)

		for i, s := range tc.path {
			_, err = f.engine.Intents.UpdateStatus(ctx, f.user.ID, intent.ID, s)
			if i < len(tc.path)-1 {
				require.NoError(t, err)
			}
		}
		if tc.ok {
			assert.NoError(t, err, "%v", tc.path)
		} else {
			assert.ErrorIs(t, err, ErrInvalidInput, "%v", tc.path)
		}
	}
}

func TestIntentAutoCompletesAndPaysAchievementOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-15", 100))
		require.NoError(t, err)

		res, err := f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-03-10", 120, "")
		require.NoError(t, err)
		assert.True(t, res.AutoCompleted)
		assert.Equal(t, models.IntentCompleted, res.Intent.Status)
		assert.Equal(t, 100, res.Intent.ProgressPercentage)
		assert.ElementsMatch(t,
			[]models.MilestoneType{models.MilestoneHalfway, models.MilestoneCompleted},
			milestoneTypes(res.AchievedMilestones))

		_, err = f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-03-11", 1, "")
		require.ErrorIs(t, err, ErrNotFound)
	}

	var unlocks int64
	require.NoError(t, f.db.Model(&models.UserAchievement{}).Where("user_id = ?", f.user.ID).Count(&unlocks).Error)
	assert.Equal(t, int64(1), unlocks)
	require.Len(t, f.entries(t, models.SourceAchievementUnlock), 1)
	assert.Len(t, f.entries(t, models.SourceIntentMilestone), 4)

	// 2 x (50 + 100) milestones + 50 achievement
	assert.Equal(t, int64(350), f.profile(t).ConvertibleCoins)
	testutil.RequireLedgerConsistent(t, f.db, f.user.ID)
}

func TestIntentPercentageCapsHugeRatios(t *testing.T) {
	_, pct := aggregate(models.Intent{TargetValue: 1e-18}, []models.IntentProgress{{ActualValue: 1}})
	assert.Equal(t, 100, pct)
	_, pct = aggregate(models.Intent{TargetValue: 200}, []models.IntentProgress{{ActualValue: 1}})
	assert.Equal(t, 1, pct)

	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-15", 1e-18))
	require.NoError(t, err)

	res, err := f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, "2025-03-10", 1, "")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Intent.ProgressPercentage)
	assert.True(t, res.AutoCompleted)
	assert.Equal(t, models.IntentCompleted, res.Intent.Status)
	assert.ElementsMatch(t,
		[]models.MilestoneType{models.MilestoneHalfway, models.MilestoneCompleted},
		milestoneTypes(res.AchievedMilestones))
}

func TestManualCompletionEvaluatesMilestones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-20", 100))
	require.NoError(t, err)

	for d, date := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		_, err := f.engine.Intents.LogProgress(ctx, f.user.ID, intent.ID, date, float64(d+1), "")
		require.NoError(t, err)
	}
	res, err := f.engine.Intents.UpdateStatus(ctx, f.user.ID, intent.ID, models.IntentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.IntentCompleted, res.Intent.Status)
	assert.False(t, res.AutoCompleted)

	var day3 models.IntentMilestone
	require.NoError(t, f.db.Where("intent_id = ? AND milestone_type = ?", intent.ID, models.MilestoneDay3).First(&day3).Error)
	assert.True(t, day3.IsAchieved)
	assert.NotNil(t, day3.AchievedAt)
}

func TestListActiveIntents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-20", 100))
	require.NoError(t, err)
	b, err := f.engine.Intents.Create(ctx, f.user.ID, validIntent("2025-03-10", "2025-03-20", 100))
	require.NoError(t, err)
	_, err = f.engine.Intents.UpdateStatus(ctx, f.user.ID, b.ID, models.IntentAbandoned)
	require.NoError(t, err)

	active, err := f.engine.Intents.ListActive(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	all, err := f.engine.Intents.List(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
