// Package ledger tracks per-user cash, FIFO lot positions, realized P&L,
// and trade history (C2). UserStates are created lazily on first
// observation of a user and persist for the process lifetime.
package ledger

import (
	"sync"
	"time"

	"tradesim/pkg/types"
)

// StartingCash is the balance every new user begins with. A parameter of
// the core, not configuration — callers may override it via New for tests.
const StartingCash = 500_000

// userState is one user's cash, lots, realized P&L, and history.
// Protected by its own mutex so concurrent portfolio reads see a
// consistent snapshot without blocking other users.
type userState struct {
	mu sync.RWMutex

	cash         float64
	lots         map[string][]types.Lot // symbol -> FIFO lot list
	realizedPnL  float64
	tradeHistory []types.TradeRecord
}

// Ledger is the process-wide collection of per-user states.
type Ledger struct {
	mu           sync.RWMutex // protects the users map itself (new user creation)
	users        map[string]*userState
	startingCash float64
}

// New builds an empty Ledger. startingCash of 0 defaults to StartingCash.
func New(startingCash float64) *Ledger {
	if startingCash <= 0 {
		startingCash = StartingCash
	}
	return &Ledger{
		users:        make(map[string]*userState),
		startingCash: startingCash,
	}
}

func (l *Ledger) getOrCreate(userID string) *userState {
	l.mu.RLock()
	u, ok := l.users[userID]
	l.mu.RUnlock()
	if ok {
		return u
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.users[userID]; ok {
		return u
	}
	u = &userState{
		cash: l.startingCash,
		lots: make(map[string][]types.Lot),
	}
	l.users[userID] = u
	return u
}

// ApplyFill applies one side of a fill to a user's position: FIFO-closes
// opposite-sign lots first, realizing P&L per closed unit, then opens a
// new lot with any residual quantity. Implements the book.LedgerApplier
// interface.
func (l *Ledger) ApplyFill(userID, symbol string, side types.Side, qty int, price float64) {
	u := l.getOrCreate(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	signedQty := qty
	if side == types.Sell {
		signedQty = -qty
		u.cash += price * float64(qty)
	} else {
		u.cash -= price * float64(qty)
	}

	u.lots[symbol] = applyToLots(u.lots[symbol], signedQty, price, &u.realizedPnL)
}

// applyToLots applies a signed quantity at a price to a FIFO lot list,
// closing opposite-sign lots first and opening a new lot with any residual.
func applyToLots(lots []types.Lot, signedQty int, price float64, realizedPnL *float64) []types.Lot {
	remaining := signedQty

	for len(lots) > 0 && remaining != 0 {
		head := lots[0]
		// Opposite signs: the incoming fill closes the head lot.
		if (head.Quantity > 0 && remaining < 0) || (head.Quantity < 0 && remaining > 0) {
			closeQty := minAbs(head.Quantity, remaining)
			if head.Quantity > 0 {
				// Closing a long lot with a sell.
				*realizedPnL += (price - head.EntryPrice) * float64(closeQty)
			} else {
				// Closing a short lot with a buy.
				*realizedPnL += (head.EntryPrice - price) * float64(closeQty)
			}

			head.Quantity += signOf(remaining) * closeQty
			remaining -= signOf(remaining) * closeQty

			if head.Quantity == 0 {
				lots = lots[1:]
			} else {
				lots[0] = head
			}
			continue
		}
		break
	}

	if remaining != 0 {
		lots = append(lots, types.Lot{Quantity: remaining, EntryPrice: price})
	}
	return lots
}

func signOf(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}

// minAbs returns the smaller of |a| and |b|.
func minAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a < b {
		return a
	}
	return b
}

// Position returns the signed net position for a user's symbol.
func (l *Ledger) Position(userID, symbol string) int {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()

	total := 0
	for _, lot := range u.lots[symbol] {
		total += lot.Quantity
	}
	return total
}

// RealizedPnL returns the cumulative realized P&L for a user.
func (l *Ledger) RealizedPnL(userID string) float64 {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.realizedPnL
}

// UnrealizedPnL sums mark-to-market P&L across every lot, given a map of
// current mark prices per symbol. Symbols with no mark price are skipped.
func (l *Ledger) UnrealizedPnL(userID string, markPrices map[string]float64) float64 {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()

	var total float64
	for symbol, lots := range u.lots {
		mark, ok := markPrices[symbol]
		if !ok {
			continue
		}
		for _, lot := range lots {
			if lot.Quantity > 0 {
				total += (mark - lot.EntryPrice) * float64(lot.Quantity)
			} else {
				total += (lot.EntryPrice - mark) * float64(-lot.Quantity)
			}
		}
	}
	return total
}

// MarketValue sums mark-price times signed quantity across every lot.
func (l *Ledger) MarketValue(userID string, markPrices map[string]float64) float64 {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()

	var total float64
	for symbol, lots := range u.lots {
		mark, ok := markPrices[symbol]
		if !ok {
			continue
		}
		for _, lot := range lots {
			total += mark * float64(lot.Quantity)
		}
	}
	return total
}

// Cash returns a user's current cash balance.
func (l *Ledger) Cash(userID string) float64 {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.cash
}

// Positions returns a copy of every symbol the user currently holds a
// nonzero position in, mapped to the signed net quantity.
func (l *Ledger) Positions(userID string) map[string]int {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make(map[string]int)
	for symbol, lots := range u.lots {
		var net int
		for _, lot := range lots {
			net += lot.Quantity
		}
		if net != 0 {
			out[symbol] = net
		}
	}
	return out
}

// RecentVolume returns the total quantity traded by the user on a symbol
// within the given window, measured from now. Used by the risk gate's
// rate limit check.
func (l *Ledger) RecentVolume(userID, symbol string, window time.Duration) int {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	total := 0
	for _, tr := range u.tradeHistory {
		if tr.Symbol == symbol && tr.Timestamp.After(cutoff) {
			total += tr.Quantity
		}
	}
	return total
}

// LastTrade returns the user's most recent trade record on a symbol, if any.
func (l *Ledger) LastTrade(userID, symbol string) (types.TradeRecord, bool) {
	u := l.getOrCreate(userID)
	u.mu.RLock()
	defer u.mu.RUnlock()

	var best types.TradeRecord
	found := false
	for _, tr := range u.tradeHistory {
		if tr.Symbol != symbol {
			continue
		}
		if !found || tr.Timestamp.After(best.Timestamp) {
			best = tr
			found = true
		}
	}
	return best, found
}

// RecordTrade appends an accepted order's quantity and side to the user's
// trade history. Called by the order handler once the risk gate has
// accepted a submission and the book has reported back — rate-limiting is
// by attempted, not filled, flow.
func (l *Ledger) RecordTrade(userID, symbol string, qty int, side types.Side) {
	u := l.getOrCreate(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tradeHistory = append(u.tradeHistory, types.TradeRecord{
		Symbol:    symbol,
		Quantity:  qty,
		Side:      side,
		Timestamp: time.Now(),
	})
}

