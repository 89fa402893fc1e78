package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementIntentCompleted is linked to the completed milestone of every intent.
const AchievementIntentCompleted = "intent_completed"

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{}, &Profile{}, &DiagnosisResponse{},
		&LedgerEntry{}, &StreakState{},
		&Track{}, &ContentItem{}, &Quiz{}, &QuizQuestion{},
		&ContentProgress{}, &QuizAttempt{},
		&Intent{}, &IntentProgress{}, &IntentMilestone{},
		&Achievement{}, &UserAchievement{}, &ToolUnlock{},
	}
}

// DefaultTracks is the curriculum order. Coins from the entry track are not convertible.
var DefaultTracks = []Track{
	{Slug: "retomada", Name: "Retomada", Description: "Organize suas dívidas e retome o controle", SortOrder: 1, CoinsConvertible: false},
	{Slug: "fundacao", Name: "Fundação", Description: "Construa sua reserva e entenda seus investimentos", SortOrder: 2, CoinsConvertible: true},
	{Slug: "crescimento", Name: "Crescimento", Description: "Otimize sua estratégia e diversifique", SortOrder: 3, CoinsConvertible: true},
	{Slug: "expertise", Name: "Expertise", Description: "Conteúdo avançado e ferramentas sofisticadas", SortOrder: 4, CoinsConvertible: true},
}

var DefaultAchievements = []Achievement{
	{Slug: AchievementIntentCompleted, Title: "Meta cumprida", Description: "Concluiu uma meta pessoal", CoinsReward: 50},
}

// SeedCatalog inserts the read-only catalog rows that are missing, keyed by slug.
func SeedCatalog(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range DefaultTracks {
			row := t
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoNothing: true,
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		for _, a := range DefaultAchievements {
			row := a
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoNothing: true,
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
