package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

// CoinObserver is told about ledger entries once their transaction commits.
type CoinObserver interface {
	ObserveEntry(e models.LedgerEntry)
}

// base carries the collaborators every component shares.
type base struct {
	store    store.Store
	clock    Clock
	log      *zap.Logger
	observer CoinObserver
}

func (b base) named(component string) base {
	b.log = b.log.With(zap.String("component", component))
	return b
}

type collectorKey struct{}

type entryCollector struct {
	entries []models.LedgerEntry
}

func withCollector(ctx context.Context) (context.Context, *entryCollector) {
	if c, ok := ctx.Value(collectorKey{}).(*entryCollector); ok {
		return ctx, c
	}
	c := &entryCollector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func collect(ctx context.Context, e models.LedgerEntry) {
	if c, ok := ctx.Value(collectorKey{}).(*entryCollector); ok {
		c.entries = append(c.entries, e)
	}
}

// inTx runs fn in one transaction and reports the committed ledger entries.
func (b base) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx store.Store) error) error {
	ctx, col := withCollector(ctx)
	start := len(col.entries)
	err := b.store.Transaction(ctx, func(tx store.Store) error {
		return fn(ctx, tx)
	})
	if err != nil {
		col.entries = col.entries[:start]
		return storeErr(op, err)
	}
	if b.observer != nil {
		for _, e := range col.entries[start:] {
			b.observer.ObserveEntry(e)
		}
	}
	col.entries = col.entries[:start]
	return nil
}

// Engine wires the progression components around one store and clock.
type Engine struct {
	Ledger    *Ledger
	Streaks   *StreakTracker
	Tracks    *TrackProgression
	Intents   *IntentTracker
	Rewards   *RewardDispatcher
	Tools     *ToolUnlocker
	Accounts  *Accounts
	Milestone MilestoneRegistry
}

// Options configures NewEngine. Clock defaults to the system clock, Logger to a no-op logger.
type Options struct {
	Clock    Clock
	Logger   *zap.Logger
	Observer CoinObserver
}

func NewEngine(st store.Store, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := base{store: st, clock: opts.Clock, log: opts.Logger, observer: opts.Observer}

	ledger := NewLedger(b)
	streaks := NewStreakTracker(b, ledger)
	tracks := NewTrackProgression(b, ledger)
	registry := DefaultMilestones()
	intents := NewIntentTracker(b, ledger, registry)
	return &Engine{
		Ledger:    ledger,
		Streaks:   streaks,
		Tracks:    tracks,
		Intents:   intents,
		Rewards:   NewRewardDispatcher(b, ledger, streaks, tracks),
		Tools:     NewToolUnlocker(b, ledger),
		Accounts:  NewAccounts(b, streaks),
		Milestone: registry,
	}
}
