package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

// Ledger owns every write to coin balances. Profile.TotalCoins and
// Profile.ConvertibleCoins change only through Append, in the same transaction
// as the entry that explains the change.
type Ledger struct {
	base
}

func NewLedger(b base) *Ledger {
	return &Ledger{base: b.named("ledger")}
}

// Append records one entry against the locked profile row and moves the balances by amount.
func (l *Ledger) Append(ctx context.Context, tx store.Store, userID string, amount int64, source models.SourceType, sourceID *string, convertible bool, description string) (*models.LedgerEntry, error) {
	if amount == 0 {
		return nil, invalid("ledger amount must be non-zero")
	}

	profile, err := tx.LockProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("profile", err)
	}

	total := profile.TotalCoins + amount
	conv := profile.ConvertibleCoins
	if convertible {
		conv += amount
	}
	switch {
	case total < 0:
		return nil, fmt.Errorf("%w: balance %d, debit %d", ErrInsufficientBalance, profile.TotalCoins, -amount)
	case conv < 0:
		return nil, fmt.Errorf("%w: convertible balance %d, debit %d", ErrInsufficientBalance, profile.ConvertibleCoins, -amount)
	case conv > total:
		return nil, fmt.Errorf("%w: debit would consume convertible coins", ErrInsufficientBalance)
	}

	entry := &models.LedgerEntry{
		UserID:        userID,
		Amount:        amount,
		SourceType:    source,
		SourceID:      sourceID,
		IsConvertible: convertible,
		Description:   description,
		BalanceAfter:  total,
		Sequence:      profile.LedgerSeq + 1,
	}
	if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
		return nil, storeErr("append ledger entry", err)
	}

	profile.TotalCoins = total
	profile.ConvertibleCoins = conv
	profile.LedgerSeq = entry.Sequence
	if err := tx.SaveProfile(ctx, profile); err != nil {
		return nil, storeErr("save profile", err)
	}

	collect(ctx, *entry)
	l.log.Debug("ledger entry appended",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("source", string(source)),
		zap.Int64("balance_after", total),
	)
	return entry, nil
}

// Spend debits amount coins, taking non-convertible coins first and the remainder
// from the convertible balance. It returns one or two entries.
func (l *Ledger) Spend(ctx context.Context, tx store.Store, userID string, amount int64, source models.SourceType, sourceID *string, description string) ([]models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, invalid("spend amount must be positive")
	}
	profile, err := tx.LockProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("profile", err)
	}
	if profile.TotalCoins < amount {
		return nil, fmt.Errorf("%w: balance %d, cost %d", ErrInsufficientBalance, profile.TotalCoins, amount)
	}

	fromLocked := min(amount, profile.TotalCoins-profile.ConvertibleCoins)
	fromConvertible := amount - fromLocked

	var entries []models.LedgerEntry
	if fromLocked > 0 {
		e, err := l.Append(ctx, tx, userID, -fromLocked, source, sourceID, false, description)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if fromConvertible > 0 {
		e, err := l.Append(ctx, tx, userID, -fromConvertible, source, sourceID, true, description)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// Adjust appends a manual_adjustment entry in its own transaction.
func (l *Ledger) Adjust(ctx context.Context, userID string, amount int64, convertible bool, description string) (*models.LedgerEntry, error) {
	if description == "" {
		return nil, invalid("adjustment needs a description")
	}
	var entry *models.LedgerEntry
	err := l.inTx(ctx, "manual adjustment", func(ctx context.Context, tx store.Store) error {
		var err error
		entry, err = l.Append(ctx, tx, userID, amount, models.SourceManualAdjustment, nil, convertible, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("manual adjustment", zap.String("user_id", userID), zap.Int64("amount", amount))
	return entry, nil
}

// LedgerPage is one page of history, newest first.
type LedgerPage struct {
	Entries []models.LedgerEntry `json:"entries"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

func (l *Ledger) History(ctx context.Context, userID string, limit, offset int) (*LedgerPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := l.store.ListLedgerEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeErr("ledger history", err)
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return &LedgerPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// Reconciliation compares the ledger sums with the cached profile balances.
type Reconciliation struct {
	LedgerTotal        int64 `json:"ledger_total"`
	LedgerConvertible  int64 `json:"ledger_convertible"`
	ProfileTotal       int64 `json:"profile_total"`
	ProfileConvertible int64 `json:"profile_convertible"`
	Consistent         bool  `json:"consistent"`
}

func (l *Ledger) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	profile, err := l.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("profile", err)
	}
	total, conv, err := l.store.SumLedger(ctx, userID)
	if err != nil {
		return nil, storeErr("sum ledger", err)
	}
	r := &Reconciliation{
		LedgerTotal:        total,
		LedgerConvertible:  conv,
		ProfileTotal:       profile.TotalCoins,
		ProfileConvertible: profile.ConvertibleCoins,
	}
	r.Consistent = r.LedgerTotal == r.ProfileTotal && r.LedgerConvertible == r.ProfileConvertible
	if !r.Consistent {
		l.log.Warn("ledger drift detected",
			zap.String("user_id", userID),
			zap.Int64("ledger_total", total),
			zap.Int64("profile_total", profile.TotalCoins),
		)
	}
	return r, nil
}
