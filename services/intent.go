package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

const (
	paceExceededFactor = 1.1
	paceBehindFactor   = 0.8
)

// allowedTransitions lists the manual status changes. Resuming a paused intent is not supported.
var allowedTransitions = map[models.IntentStatus][]models.IntentStatus{
	models.IntentActive: {models.IntentPaused, models.IntentCompleted, models.IntentAbandoned},
	models.IntentPaused: {models.IntentCompleted, models.IntentAbandoned},
}

func canTransition(from, to models.IntentStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type IntentTracker struct {
	base
	ledger   *Ledger
	registry MilestoneRegistry
}

func NewIntentTracker(b base, ledger *Ledger, registry MilestoneRegistry) *IntentTracker {
	return &IntentTracker{base: b.named("intent"), ledger: ledger, registry: registry}
}

type CreateIntentInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	IntentType   models.IntentType   `json:"intent_type"`
	PeriodType   models.PeriodType   `json:"period_type"`
	TargetValue  float64             `json:"target_value"`
	TargetMetric models.TargetMetric `json:"target_metric"`
	StartDate    string              `json:"start_date"`
	EndDate      string              `json:"end_date"`
}

// IntentView is an intent with its samples, milestones and derived progress.
type IntentView struct {
	models.Intent
	Progress           []models.IntentProgress  `json:"progress"`
	Milestones         []models.IntentMilestone `json:"milestones"`
	CurrentProgress    float64                  `json:"current_progress"`
	ProgressPercentage int                      `json:"progress_percentage"`
	DaysRemaining      int                      `json:"days_remaining"`
	DaysElapsed        int                      `json:"days_elapsed"`
}

func (t *IntentTracker) validate(in *CreateIntentInput) (start, end time.Time, err error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return start, end, invalid("title is required")
	case len(in.Title) > 255:
		return start, end, invalid("title is too long")
	case !(in.TargetValue > 0) || math.IsInf(in.TargetValue, 0):
		return start, end, invalid("target_value must be positive")
	case !in.IntentType.Valid():
		return start, end, invalid("unknown intent_type %q", in.IntentType)
	case !in.PeriodType.Valid():
		return start, end, invalid("unknown period_type %q", in.PeriodType)
	case !in.TargetMetric.Valid():
		return start, end, invalid("unknown target_metric %q", in.TargetMetric)
	}

	if in.StartDate == "" {
		in.StartDate = today(t.clock)
	}
	if start, err = parseDate(in.StartDate); err != nil {
		return start, end, invalid("start_date must be YYYY-MM-DD")
	}
	if end, err = parseDate(in.EndDate); err != nil {
		return start, end, invalid("end_date must be YYYY-MM-DD")
	}
	if !end.After(start) {
		return start, end, invalid("end_date must be after start_date")
	}
	return start, end, nil
}

// Create stores the intent together with the milestones its duration qualifies for.
func (t *IntentTracker) Create(ctx context.Context, userID string, in CreateIntentInput) (*IntentView, error) {
	start, end, err := t.validate(&in)
	if err != nil {
		return nil, err
	}
	duration := daysBetween(start, end)

	intent := &models.Intent{
		UserID:       userID,
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		IntentType:   in.IntentType,
		PeriodType:   in.PeriodType,
		TargetValue:  in.TargetValue,
		TargetMetric: in.TargetMetric,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Status:       models.IntentActive,
	}

	var milestones []models.IntentMilestone
	err = t.inTx(ctx, "create intent", func(ctx context.Context, tx store.Store) error {
		milestones = milestones[:0]
		for _, def := range t.registry.ForDuration(duration) {
			m := models.IntentMilestone{
				MilestoneType:         def.Type,
				Name:                  def.Name,
				TargetProgressPercent: def.TargetPercent,
				CoinsReward:           def.Reward,
			}
			if def.AchievementSlug != "" {
				ach, err := tx.GetAchievementBySlug(ctx, def.AchievementSlug)
				switch {
				case err == nil:
					m.AchievementID = &ach.ID
				case !errors.Is(err, store.ErrNotFound):
					return storeErr("achievement", err)
				}
			}
			milestones = append(milestones, m)
		}
		return storeErr("save intent", tx.CreateIntent(ctx, intent, milestones))
	})
	if err != nil {
		return nil, err
	}

	t.log.Info("intent created",
		zap.String("user_id", userID),
		zap.String("intent_id", intent.ID),
		zap.Int("duration_days", duration),
		zap.Int("milestones", len(milestones)),
	)
	return t.view(*intent, nil, milestones), nil
}

// owned loads an intent and hides intents of other users behind ErrNotFound.
func owned(ctx context.Context, st store.Store, userID, intentID string) (*models.Intent, error) {
	intent, err := st.GetIntent(ctx, intentID)
	if err != nil {
		return nil, storeErr("intent", err)
	}
	if intent.UserID != userID {
		return nil, notFound("intent")
	}
	return intent, nil
}

func (t *IntentTracker) Get(ctx context.Context, userID, intentID string) (*IntentView, error) {
	intent, err := owned(ctx, t.store, userID, intentID)
	if err != nil {
		return nil, err
	}
	return t.load(ctx, t.store, *intent)
}

// ListActive returns the user's active intents, newest first.
func (t *IntentTracker) ListActive(ctx context.Context, userID string) ([]IntentView, error) {
	return t.List(ctx, userID, models.IntentActive)
}

// List returns the user's intents filtered by status, or all of them when none is given.
func (t *IntentTracker) List(ctx context.Context, userID string, statuses ...models.IntentStatus) ([]IntentView, error) {
	intents, err := t.store.ListIntents(ctx, userID, statuses...)
	if err != nil {
		return nil, storeErr("list intents", err)
	}
	out := make([]IntentView, 0, len(intents))
	for _, intent := range intents {
		v, err := t.load(ctx, t.store, intent)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (t *IntentTracker) load(ctx context.Context, st store.Store, intent models.Intent) (*IntentView, error) {
	samples, err := st.ListIntentProgress(ctx, intent.ID)
	if err != nil {
		return nil, storeErr("intent progress", err)
	}
	milestones, err := st.ListMilestones(ctx, intent.ID)
	if err != nil {
		return nil, storeErr("milestones", err)
	}
	return t.view(intent, samples, milestones), nil
}

func (t *IntentTracker) view(intent models.Intent, samples []models.IntentProgress, milestones []models.IntentMilestone) *IntentView {
	if samples == nil {
		samples = []models.IntentProgress{}
	}
	if milestones == nil {
		milestones = []models.IntentMilestone{}
	}
	current, pct := aggregate(intent, samples)
	v := &IntentView{
		Intent:             intent,
		Progress:           samples,
		Milestones:         milestones,
		CurrentProgress:    current,
		ProgressPercentage: pct,
	}
	now := t.clock.Now()
	if end, err := parseDate(intent.EndDate); err == nil {
		v.DaysRemaining = max(0, daysBetween(now, end))
	}
	if start, err := parseDate(intent.StartDate); err == nil {
		v.DaysElapsed = max(0, daysBetween(start, now))
	}
	return v
}

// aggregate sums the samples and caps the percentage at 100.
func aggregate(intent models.Intent, samples []models.IntentProgress) (float64, int) {
	var current float64
	for _, s := range samples {
		current += s.ActualValue
	}
	if intent.TargetValue <= 0 {
		return current, 0
	}
	// cap before converting; huge ratios overflow int
	pct := math.Min(100, math.Round(current/intent.TargetValue*100))
	return current, int(pct)
}

// paceStatus compares a sample with the linear pace expected on its date.
func paceStatus(intent models.Intent, sampleDate time.Time, actual float64) models.ProgressStatus {
	start, err1 := parseDate(intent.StartDate)
	end, err2 := parseDate(intent.EndDate)
	if err1 != nil || err2 != nil {
		return models.ProgressOnTrack
	}
	duration := max(1, daysBetween(start, end))
	elapsed := min(max(daysBetween(start, sampleDate)+1, 1), duration)

	expected := intent.TargetValue / float64(duration) * float64(elapsed)
	switch {
	case actual >= expected*paceExceededFactor:
		return models.ProgressExceeded
	case actual < expected*paceBehindFactor:
		return models.ProgressBehind
	default:
		return models.ProgressOnTrack
	}
}

// ProgressResult is the outcome of LogProgress and UpdateStatus.
type ProgressResult struct {
	Intent             *IntentView              `json:"intent"`
	Sample             *models.IntentProgress   `json:"sample,omitempty"`
	AchievedMilestones []models.IntentMilestone `json:"achieved_milestones"`
	CoinsEarned        int64                    `json:"coins_earned"`
	AutoCompleted      bool                     `json:"auto_completed"`
}

// LogProgress records the value for one day. Logging the same day again replaces the value.
func (t *IntentTracker) LogProgress(ctx context.Context, userID, intentID, date string, actual float64, notes string) (*ProgressResult, error) {
	if actual < 0 || math.IsNaN(actual) || math.IsInf(actual, 0) {
		return nil, invalid("actual_value must be a non-negative number")
	}
	if date == "" {
		date = today(t.clock)
	}
	sampleDate, err := parseDate(date)
	if err != nil {
		return nil, invalid("date must be YYYY-MM-DD")
	}

	out := &ProgressResult{}
	err = t.inTx(ctx, "log intent progress", func(ctx context.Context, tx store.Store) error {
		intent, err := owned(ctx, tx, userID, intentID)
		if err != nil {
			return err
		}
		if intent.Status != models.IntentActive {
			return notFound("active intent")
		}
		if date < intent.StartDate || date > intent.EndDate {
			return invalid("date %s is outside %s..%s", date, intent.StartDate, intent.EndDate)
		}

		sample := &models.IntentProgress{
			IntentID:    intent.ID,
			TrackedDate: date,
			ActualValue: actual,
			Status:      paceStatus(*intent, sampleDate, actual),
			Notes:       strings.TrimSpace(notes),
		}
		if err := tx.UpsertIntentProgress(ctx, sample); err != nil {
			return storeErr("save intent progress", err)
		}
		out.Sample = sample
		return t.evaluate(ctx, tx, userID, intent, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus applies a manual status change and then evaluates milestones.
func (t *IntentTracker) UpdateStatus(ctx context.Context, userID, intentID string, status models.IntentStatus) (*ProgressResult, error) {
	out := &ProgressResult{}
	err := t.inTx(ctx, "update intent status", func(ctx context.Context, tx store.Store) error {
		intent, err := owned(ctx, tx, userID, intentID)
		if err != nil {
			return err
		}
		if !canTransition(intent.Status, status) {
			return invalid("cannot change intent from %s to %s", intent.Status, status)
		}
		if err := tx.UpdateIntentStatus(ctx, intent.ID, status); err != nil {
			return storeErr("save intent status", err)
		}
		intent.Status = status
		return t.evaluate(ctx, tx, userID, intent, out)
	})
	if err != nil {
		return nil, err
	}
	t.log.Info("intent status changed",
		zap.String("user_id", userID),
		zap.String("intent_id", intentID),
		zap.String("status", string(status)),
	)
	return out, nil
}

// evaluate awards every pending milestone that is now reached, then auto-completes
// an active intent at 100%. It fills out.Intent with the fresh view.
func (t *IntentTracker) evaluate(ctx context.Context, tx store.Store, userID string, intent *models.Intent, out *ProgressResult) error {
	samples, err := tx.ListIntentProgress(ctx, intent.ID)
	if err != nil {
		return storeErr("intent progress", err)
	}
	milestones, err := tx.ListMilestones(ctx, intent.ID)
	if err != nil {
		return storeErr("milestones", err)
	}

	_, pct := aggregate(*intent, samples)
	snap := intentSnapshot{ActiveDays: len(samples), Percentage: pct}
	now := t.clock.Now()

	for i := range milestones {
		m := &milestones[i]
		if m.IsAchieved {
			continue
		}
		def, ok := t.registry.Lookup(m.MilestoneType)
		if !ok || !def.Reached(snap) {
			continue
		}
		flipped, err := tx.MarkMilestoneAchieved(ctx, m.ID, now)
		if err != nil {
			return storeErr("mark milestone", err)
		}
		if !flipped {
			continue
		}
		m.IsAchieved = true
		m.AchievedAt = &now
		out.AchievedMilestones = append(out.AchievedMilestones, *m)

		if m.CoinsReward > 0 {
			if _, err := t.ledger.Append(ctx, tx, userID, m.CoinsReward, models.SourceIntentMilestone, &m.ID, true,
				fmt.Sprintf("Marco: %s", m.Name)); err != nil {
				return err
			}
			out.CoinsEarned += m.CoinsReward
		}
		if m.AchievementID != nil {
			coins, err := t.unlockAchievement(ctx, tx, userID, *m.AchievementID, now)
			if err != nil {
				return err
			}
			out.CoinsEarned += coins
		}
		t.log.Info("milestone achieved",
			zap.String("user_id", userID),
			zap.String("intent_id", intent.ID),
			zap.String("milestone", string(m.MilestoneType)),
		)
	}

	if pct >= 100 && intent.Status == models.IntentActive {
		if err := tx.UpdateIntentStatus(ctx, intent.ID, models.IntentCompleted); err != nil {
			return storeErr("complete intent", err)
		}
		intent.Status = models.IntentCompleted
		out.AutoCompleted = true
	}
	if out.AchievedMilestones == nil {
		out.AchievedMilestones = []models.IntentMilestone{}
	}
	out.Intent = t.view(*intent, samples, milestones)
	return nil
}

// unlockAchievement is idempotent; the achievement's reward is paid on the first unlock only.
func (t *IntentTracker) unlockAchievement(ctx context.Context, tx store.Store, userID, achievementID string, at time.Time) (int64, error) {
	created, err := tx.UpsertAchievementUnlock(ctx, userID, achievementID, at)
	if err != nil {
		return 0, storeErr("unlock achievement", err)
	}
	if !created {
		return 0, nil
	}
	ach, err := tx.GetAchievement(ctx, achievementID)
	if err != nil {
		return 0, storeErr("achievement", err)
	}
	if ach.CoinsReward <= 0 {
		return 0, nil
	}
	if _, err := t.ledger.Append(ctx, tx, userID, ach.CoinsReward, models.SourceAchievementUnlock, &ach.ID, true,
		fmt.Sprintf("Conquista: %s", ach.Title)); err != nil {
		return 0, err
	}
	return ach.CoinsReward, nil
}
