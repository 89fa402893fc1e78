package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
	"github.com/cppla/pulso/testutil"
)

type recordingObserver struct {
	entries []models.LedgerEntry
}

func (o *recordingObserver) ObserveEntry(e models.LedgerEntry) {
	o.entries = append(o.entries, e)
}

type fixture struct {
	engine   *Engine
	db       *gorm.DB
	clock    *FixedClock
	observer *recordingObserver
	user     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clock := NewFixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	obs := &recordingObserver{}
	return &fixture{
		engine:   NewEngine(store.New(db), Options{Clock: clock, Observer: obs}),
		db:       db,
		clock:    clock,
		observer: obs,
		user:     testutil.NewUser(t, db, "ana"),
	}
}

// tx runs fn inside a store transaction the way the engine does.
func (f *fixture) tx(t *testing.T, fn func(ctx context.Context, tx store.Store) error) error {
	t.Helper()
	return f.engine.Ledger.inTx(context.Background(), "test", fn)
}

func (f *fixture) credit(t *testing.T, amount int64, convertible bool) {
	t.Helper()
	require.NoError(t, f.tx(t, func(ctx context.Context, tx store.Store) error {
		_, err := f.engine.Ledger.Append(ctx, tx, f.user.ID, amount, models.SourceManualAdjustment, nil, convertible, "test credit")
		return err
	}))
}

func (f *fixture) profile(t *testing.T) *models.Profile {
	return testutil.Profile(t, f.db, f.user.ID)
}

func (f *fixture) entries(t *testing.T, source models.SourceType) []models.LedgerEntry {
	t.Helper()
	var out []models.LedgerEntry
	require.NoError(t, f.db.Where("user_id = ? AND source_type = ?", f.user.ID, source).Order("created_at ASC").Find(&out).Error)
	return out
}
