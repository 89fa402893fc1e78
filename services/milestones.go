package services

import "github.com/cppla/pulso/models"

// intentSnapshot is what milestone predicates see: distinct days with a sample
// and the aggregate percentage.
type intentSnapshot struct {
	ActiveDays int
	Percentage int
}

// MilestoneDef describes one kind of intent milestone. MinDurationDays filters
// which intents get it at creation; Reached decides when it is earned.
type MilestoneDef struct {
	Type            models.MilestoneType
	Name            string
	Reward          int64
	MinDurationDays int
	TargetPercent   *float64
	AchievementSlug string
	Reached         func(s intentSnapshot) bool
}

type MilestoneRegistry []MilestoneDef

func percent(v float64) *float64 { return &v }

func activeDaysAtLeast(n int) func(intentSnapshot) bool {
	return func(s intentSnapshot) bool { return s.ActiveDays >= n }
}

func percentageAtLeast(n int) func(intentSnapshot) bool {
	return func(s intentSnapshot) bool { return s.Percentage >= n }
}

// DefaultMilestones is the catalog every new intent draws from.
func DefaultMilestones() MilestoneRegistry {
	return MilestoneRegistry{
		{Type: models.MilestoneDay3, Name: "3 dias de foco", Reward: 10, MinDurationDays: 3, Reached: activeDaysAtLeast(3)},
		{Type: models.MilestoneWeek1, Name: "1 semana firme", Reward: 25, MinDurationDays: 7, Reached: activeDaysAtLeast(7)},
		{Type: models.MilestoneHalfway, Name: "Metade do caminho", Reward: 50, TargetPercent: percent(50), Reached: percentageAtLeast(50)},
		{Type: models.MilestoneDay21, Name: "Hábito formado (21 dias)", Reward: 75, MinDurationDays: 21, Reached: activeDaysAtLeast(21)},
		{Type: models.MilestoneCompleted, Name: "Meta alcançada!", Reward: 100, TargetPercent: percent(100),
			AchievementSlug: models.AchievementIntentCompleted, Reached: percentageAtLeast(100)},
	}
}

// ForDuration returns the milestones an intent lasting durationDays is eligible for.
func (r MilestoneRegistry) ForDuration(durationDays int) []MilestoneDef {
	var out []MilestoneDef
	for _, def := range r {
		if durationDays >= def.MinDurationDays {
			out = append(out, def)
		}
	}
	return out
}

func (r MilestoneRegistry) Lookup(t models.MilestoneType) (MilestoneDef, bool) {
	for _, def := range r {
		if def.Type == t {
			return def, true
		}
	}
	return MilestoneDef{}, false
}
