// Package testutil builds migrated in-memory databases and catalog fixtures for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cppla/pulso/config"
	"github.com/cppla/pulso/models"
)

// NewDB returns a migrated, seeded SQLite database that lives for the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: ":memory:",
		LogLevel:    "silent",
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, models.SeedCatalog(db))
	return db
}

// NewUser creates a user with an empty profile.
func NewUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: u.ID}).Error)
	return u
}

func Track(t testing.TB, db *gorm.DB, slug string) *models.Track {
	t.Helper()
	var tr models.Track
	require.NoError(t, db.Where("slug = ?", slug).First(&tr).Error)
	return &tr
}

// PlaceOnTrack sets the user's current track without touching balances.
func PlaceOnTrack(t testing.TB, db *gorm.DB, userID, slug string) {
	t.Helper()
	tr := Track(t, db, slug)
	require.NoError(t, db.Model(&models.Profile{}).Where("user_id = ?", userID).
		Update("current_track_id", tr.ID).Error)
}

// SeedContent adds n content items to the track, each paying reward coins.
func SeedContent(t testing.TB, db *gorm.DB, slug string, n int, reward int64, published bool) []models.ContentItem {
	t.Helper()
	tr := Track(t, db, slug)
	items := make([]models.ContentItem, n)
	for i := range items {
		items[i] = models.ContentItem{
			TrackID:     tr.ID,
			DayNumber:   i + 1,
			Title:       fmt.Sprintf("%s day %d", slug, i+1),
			CoinsReward: reward,
			IsPublished: published,
		}
	}
	require.NoError(t, db.Create(&items).Error)
	return items
}

// SeedQuiz adds a quiz whose questions have the given correct option indexes.
func SeedQuiz(t testing.TB, db *gorm.DB, slug string, reward int64, correct ...int) *models.Quiz {
	t.Helper()
	tr := Track(t, db, slug)
	quiz := &models.Quiz{TrackID: tr.ID, Title: "quiz " + slug, CoinsReward: reward}
	require.NoError(t, db.Create(quiz).Error)

	options, err := json.Marshal([]string{"a", "b", "c", "d"})
	require.NoError(t, err)
	// inserted in reverse so scoring has to honour sort_order
	for i := len(correct) - 1; i >= 0; i-- {
		require.NoError(t, db.Create(&models.QuizQuestion{
			QuizID:             quiz.ID,
			QuestionText:       fmt.Sprintf("question %d", i+1),
			Options:            datatypes.JSON(options),
			CorrectOptionIndex: correct[i],
			SortOrder:          i + 1,
		}).Error)
	}
	return quiz
}

func Profile(t testing.TB, db *gorm.DB, userID string) *models.Profile {
	t.Helper()
	var p models.Profile
	require.NoError(t, db.Where("user_id = ?", userID).First(&p).Error)
	return &p
}

// RequireLedgerConsistent asserts that the ledger sums match the cached balances.
func RequireLedgerConsistent(t testing.TB, db *gorm.DB, userID string) {
	t.Helper()
	var entries []models.LedgerEntry
	require.NoError(t, db.Where("user_id = ?", userID).Find(&entries).Error)
	var total, conv int64
	for _, e := range entries {
		total += e.Amount
		if e.IsConvertible {
			conv += e.Amount
		}
	}
	p := Profile(t, db, userID)
	require.Equal(t, total, p.TotalCoins, "total coins")
	require.Equal(t, conv, p.ConvertibleCoins, "convertible coins")
	require.GreaterOrEqual(t, p.ConvertibleCoins, int64(0))
	require.LessOrEqual(t, p.ConvertibleCoins, p.TotalCoins)
}
