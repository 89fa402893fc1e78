package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
	"github.com/cppla/pulso/testutil"
)

func TestLedgerAppendMovesBalances(t *testing.T) {
	f := newFixture(t)

	f.credit(t, 100, true)
	f.credit(t, 50, false)

	p := f.profile(t)
	assert.Equal(t, int64(150), p.TotalCoins)
	assert.Equal(t, int64(100), p.ConvertibleCoins)

	entries := f.entries(t, models.SourceManualAdjustment)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].BalanceAfter)
	assert.Equal(t, int64(150), entries[1].BalanceAfter)
	testutil.RequireLedgerConsistent(t, f.db, f.user.ID)
}

func TestLedgerRejectsOverdraftBeforeWriting(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 40, true)

	cases := []struct {
		name        string
		amount      int64
		convertible bool
	}{
		{"total below zero", -41, false},
		{"convertible below zero", -41, true},
		{"locked debit eats convertible coins", -10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.tx(t, func(ctx context.Context, tx store.Store) error {
				_, err := f.engine.Ledger.Append(ctx, tx, f.user.ID, tc.amount, models.SourceToolUnlock, nil, tc.convertible, "debit")
				return err
			})
			require.ErrorIs(t, err, ErrInsufficientBalance)
		})
	}

	assert.Len(t, f.entries(t, models.SourceToolUnlock), 0)
	assert.Equal(t, int64(40), f.profile(t).TotalCoins)
	testutil.RequireLedgerConsistent(t, f.db, f.user.ID)
}

func TestLedgerAppendRejectsZeroAndUnknownUser(t *testing.T) {
	f := newFixture(t)
	err := f.tx(t, func(ctx context.Context, tx store.Store) error {
		_, err := f.engine.Ledger.Append(ctx, tx, f.user.ID, 0, models.SourceManualAdjustment, nil, false, "")
		return err
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	err = f.tx(t, func(ctx context.Context, tx store.Store) error {
		_, err := f.engine.Ledger.Append(ctx, tx, "missing", 5, models.SourceManualAdjustment, nil, false, "")
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSpendUsesLockedCoinsFirst(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 30, false)
	f.credit(t, 100, true)

	var spent []models.LedgerEntry
	require.NoError(t, f.tx(t, func(ctx context.Context, tx store.Store) error {
		var err error
		spent, err = f.engine.Ledger.Spend(ctx, tx, f.user.ID, 50, models.SourceToolUnlock, nil, "spend")
		return err
	}))

	require.Len(t, spent, 2)
	assert.Equal(t, int64(-30), spent[0].Amount)
	assert.False(t, spent[0].IsConvertible)
	assert.Equal(t, int64(-20), spent[1].Amount)
	assert.True(t, spent[1].IsConvertible)

	p := f.profile(t)
	assert.Equal(t, int64(80), p.TotalCoins)
	assert.Equal(t, int64(80), p.ConvertibleCoins)
	testutil.RequireLedgerConsistent(t, f.db, f.user.ID)
}

func TestHistoryOrdersSameInstantEntries(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f.db.Config.NowFunc = func() time.Time { return at }

	f.credit(t, 30, false)
	f.credit(t, 100, true)
	require.NoError(t, f.tx(t, func(ctx context.Context, tx store.Store) error {
		_, err := f.engine.Ledger.Spend(ctx, tx, f.user.ID, 50, models.SourceToolUnlock, nil, "spend")
		return err
	}))

	page, err := f.engine.Ledger.History(context.Background(), f.user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 4)
	for _, e := range page.Entries {
		assert.True(t, e.CreatedAt.Equal(at))
	}
	assert.Equal(t, []int64{80, 100, 130, 30}, balancesAfter(page.Entries))
	assert.Equal(t, int64(4), page.Entries[0].Sequence)
	assert.Equal(t, int64(4), f.profile(t).LedgerSeq)
}

func balancesAfter(entries []models.LedgerEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.BalanceAfter)
	}
	return out
}

func TestSpendInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 10, true)
	err := f.tx(t, func(ctx context.Context, tx store.Store) error {
		_, err := f.engine.Ledger.Spend(ctx, tx, f.user.ID, 11, models.SourceToolUnlock, nil, "spend")
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(10), f.profile(t).TotalCoins)
}

func TestLedgerEntriesAreImmutable(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 10, true)
	entry := f.entries(t, models.SourceManualAdjustment)[0]

	err := f.db.Model(&entry).Update("amount", 1000).Error
	require.ErrorIs(t, err, models.ErrImmutableEntry)
	err = f.db.Delete(&entry).Error
	require.ErrorIs(t, err, models.ErrImmutableEntry)

	assert.Equal(t, int64(10), f.entries(t, models.SourceManualAdjustment)[0].Amount)
}

func TestReconcileReportsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.credit(t, 25, true)
	f.credit(t, 5, false)

	r, err := f.engine.Ledger.Reconcile(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, int64(30), r.LedgerTotal)
	assert.Equal(t, int64(25), r.LedgerConvertible)

	require.NoError(t, f.db.Model(&models.Profile{}).Where("user_id = ?", f.user.ID).Update("total_coins", 999).Error)
	r, err = f.engine.Ledger.Reconcile(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, r.Consistent)
	assert.Equal(t, int64(999), r.ProfileTotal)
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 5; i++ {
		f.credit(t, int64(i), true)
	}

	page, err := f.engine.Ledger.History(context.Background(), f.user.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, int64(15), page.Entries[0].BalanceAfter)

	page, err = f.engine.Ledger.History(context.Background(), f.user.ID, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, 20, page.Limit)
	assert.Len(t, page.Entries, 1)
}

func TestAdjustAndObserver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.engine.Ledger.Adjust(ctx, f.user.ID, 40, true, "support credit")
	require.NoError(t, err)
	assert.Equal(t, models.SourceManualAdjustment, entry.SourceType)
	require.Len(t, f.observer.entries, 1)

	_, err = f.engine.Ledger.Adjust(ctx, f.user.ID, -100, true, "too much")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Len(t, f.observer.entries, 1, "rolled back entries are not reported")

	_, err = f.engine.Ledger.Adjust(ctx, f.user.ID, 5, true, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}
