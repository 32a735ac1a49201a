// Package ledger keeps the paper balances of a backtest.
//
// Balances are stored as decimals so repeated fills do not accumulate float
// error. Every mutator either applies completely or leaves the ledger untouched.
package ledger

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// Operation is a single balance mutation.
type Operation string

const (
	// OperationDebit removes from available.
	OperationDebit Operation = "debit"
	// OperationCredit adds to available.
	OperationCredit Operation = "credit"
	// OperationHold moves from available to hold.
	OperationHold Operation = "hold"
	// OperationRelease moves from hold back to available.
	OperationRelease Operation = "release"
	// OperationSettle removes from hold.
	OperationSettle Operation = "settle"
)

// Change is one operation on one asset.
type Change struct {
	Asset     string
	Operation Operation
	Amount    decimal.Decimal
}

type balance struct {
	available decimal.Decimal
	hold      decimal.Decimal
}

// Ledger holds per-asset available and held amounts.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]balance
}

// New creates a ledger seeded with initial available amounts.
func New(initial map[string]float64) (*Ledger, error) {
	l := &Ledger{
		mu:       sync.Mutex{},
		balances: make(map[string]balance, len(initial)),
	}

	for asset, amount := range initial {
		if amount < 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial value of %s cannot be negative: %v", asset, amount)
		}

		l.balances[asset] = balance{available: decimal.NewFromFloat(amount), hold: decimal.Zero}
	}

	return l, nil
}

// Debit removes amount from the available balance of asset.
func Debit(asset string, amount decimal.Decimal) Change {
	return Change{Asset: asset, Operation: OperationDebit, Amount: amount}
}

// Credit adds amount to the available balance of asset.
func Credit(asset string, amount decimal.Decimal) Change {
	return Change{Asset: asset, Operation: OperationCredit, Amount: amount}
}

// Hold reserves amount of asset for an open order.
func Hold(asset string, amount decimal.Decimal) Change {
	return Change{Asset: asset, Operation: OperationHold, Amount: amount}
}

// Release returns a reservation to available.
func Release(asset string, amount decimal.Decimal) Change {
	return Change{Asset: asset, Operation: OperationRelease, Amount: amount}
}

// Settle consumes a reservation when its order fills.
func Settle(asset string, amount decimal.Decimal) Change {
	return Change{Asset: asset, Operation: OperationSettle, Amount: amount}
}

// Debit removes amount from available.
func (l *Ledger) Debit(asset string, amount decimal.Decimal) error {
	return l.Apply(Debit(asset, amount))
}

// Credit adds amount to available.
func (l *Ledger) Credit(asset string, amount decimal.Decimal) error {
	return l.Apply(Credit(asset, amount))
}

// Hold moves amount from available to hold.
func (l *Ledger) Hold(asset string, amount decimal.Decimal) error {
	return l.Apply(Hold(asset, amount))
}

// Release moves amount from hold back to available.
func (l *Ledger) Release(asset string, amount decimal.Decimal) error {
	return l.Apply(Release(asset, amount))
}

// Settle removes amount from hold.
func (l *Ledger) Settle(asset string, amount decimal.Decimal) error {
	return l.Apply(Settle(asset, amount))
}

// Apply runs the changes in order. If any of them would make a balance
// negative, none is applied and ErrCodeInsufficientFunds is returned.
func (l *Ledger) Apply(changes ...Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[string]balance, len(changes))

	for _, change := range changes {
		if change.Amount.IsNegative() {
			return errors.Newf(errors.ErrCodeInvalidParameter, "%s amount of %s cannot be negative: %s",
				change.Operation, change.Asset, change.Amount)
		}

		current, ok := staged[change.Asset]
		if !ok {
			current = l.balances[change.Asset]
		}

		next, err := apply(current, change)
		if err != nil {
			return err
		}

		staged[change.Asset] = next
	}

	for asset, b := range staged {
		l.balances[asset] = b
	}

	return nil
}

func apply(b balance, change Change) (balance, error) {
	switch change.Operation {
	case OperationCredit:
		b.available = b.available.Add(change.Amount)
	case OperationDebit:
		if b.available.LessThan(change.Amount) {
			return b, insufficient(change, b.available)
		}

		b.available = b.available.Sub(change.Amount)
	case OperationHold:
		if b.available.LessThan(change.Amount) {
			return b, insufficient(change, b.available)
		}

		b.available = b.available.Sub(change.Amount)
		b.hold = b.hold.Add(change.Amount)
	case OperationRelease:
		if b.hold.LessThan(change.Amount) {
			return b, insufficient(change, b.hold)
		}

		b.hold = b.hold.Sub(change.Amount)
		b.available = b.available.Add(change.Amount)
	case OperationSettle:
		if b.hold.LessThan(change.Amount) {
			return b, insufficient(change, b.hold)
		}

		b.hold = b.hold.Sub(change.Amount)
	default:
		return b, errors.Newf(errors.ErrCodeInvalidParameter, "unknown ledger operation %q", change.Operation)
	}

	return b, nil
}

func insufficient(change Change, have decimal.Decimal) error {
	return errors.Newf(errors.ErrCodeInsufficientFunds, "insufficient %s to %s %s: have %s",
		change.Asset, change.Operation, change.Amount, have)
}

// Balance returns the balance of asset. Unknown assets read as zero.
func (l *Ledger) Balance(asset string) types.AssetBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balances[asset]

	return types.AssetBalance{
		Available: b.available.InexactFloat64(),
		Hold:      b.hold.InexactFloat64(),
	}
}

// Available returns the exact available amount of asset.
func (l *Ledger) Available(asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[asset].available
}

// Total returns available plus hold of asset.
func (l *Ledger) Total(asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balances[asset]

	return b.available.Add(b.hold)
}

// Snapshot returns every asset the ledger has seen.
func (l *Ledger) Snapshot() map[string]types.AssetBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]types.AssetBalance, len(l.balances))
	for asset, b := range l.balances {
		out[asset] = types.AssetBalance{
			Available: b.available.InexactFloat64(),
			Hold:      b.hold.InexactFloat64(),
		}
	}

	return out
}

// Assets returns the known assets in lexical order.
func (l *Ledger) Assets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	assets := make([]string, 0, len(l.balances))
	for asset := range l.balances {
		assets = append(assets, asset)
	}

	sort.Strings(assets)

	return assets
}
