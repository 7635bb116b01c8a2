// Package book implements the central limit order book (C3): per-symbol
// bid/ask priority queues, price-time matching, clamp-based outlier
// filtering for quoting/reporting, and last-trade tracking.
package book

import (
	"container/heap"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradesim/internal/metrics"
	"tradesim/pkg/types"
)

// clampK is the multiplier applied to |previous_mid - last_traded_price|
// to derive the clamp radius.
const clampK = 2.5

// LedgerApplier is the user ledger's fill-application entry point. The book
// calls it once per side on every fill, inside the same per-symbol critical
// section that produced the fill, so a fill is atomic across both sides.
type LedgerApplier interface {
	ApplyFill(userID, symbol string, side types.Side, qty int, price float64)
}

// SubmitRequest describes an incoming order.
type SubmitRequest struct {
	UserID   string
	Symbol   string
	Side     types.Side
	Price    float64
	Quantity int
	Kind     types.OrderKind
}

// symbolBook holds one symbol's bid/ask queues and clamp state. All mutation
// happens under mu, making submission and matching for this symbol atomic.
type symbolBook struct {
	mu sync.Mutex

	symbol string
	bids   bidHeap
	asks   askHeap

	ordersByID map[string]*types.Order

	lastTradedPrice *float64
	previousMid     *float64
}

// Book is the process-wide collection of per-symbol order books.
type Book struct {
	symbols map[string]*symbolBook // fixed at construction time, safe for concurrent reads

	indexMu    sync.Mutex
	orderIndex map[string]string // order id -> symbol, for O(1) cancel lookup

	ledger LedgerApplier
}

// New builds a Book with one queue pair per symbol known to the registry.
// Symbols are fixed for the process lifetime, matching the registry's
// build-once-at-startup instrument lifecycle.
func New(ledger LedgerApplier, symbols []string) *Book {
	b := &Book{
		symbols:    make(map[string]*symbolBook, len(symbols)),
		orderIndex: make(map[string]string),
		ledger:     ledger,
	}
	for _, s := range symbols {
		b.symbols[s] = &symbolBook{
			symbol:     s,
			ordersByID: make(map[string]*types.Order),
		}
	}
	return b
}

// Submit accepts a new order. Quantity 0 is a no-op returning
// (open, 0 filled, 0 avg price). Bot quotes (Kind == OrderKindBot) skip
// matching entirely and rest directly, even if crossing.
func (b *Book) Submit(req SubmitRequest) types.SubmitResult {
	if req.Quantity <= 0 {
		return types.SubmitResult{Status: types.StatusOpen}
	}

	sb := b.symbols[req.Symbol]
	if sb == nil {
		return types.SubmitResult{Status: types.StatusOpen}
	}

	order := &types.Order{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Price:        req.Price,
		RemainingQty: req.Quantity,
		OriginalQty:  req.Quantity,
		CreatedAt:    time.Now(),
		Kind:         req.Kind,
		Status:       types.StatusOpen,
	}

	metrics.OrdersSubmitted.WithLabelValues(req.Symbol, string(req.Side), string(req.Kind)).Inc()

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if req.Kind == types.OrderKindBot {
		sb.rest(order)
		b.indexOrder(order.ID, req.Symbol)
		return types.SubmitResult{OrderID: order.ID, Status: types.StatusOpen}
	}

	fills := sb.match(order, b.ledger, b.deindex)

	var filledQty int
	var notional float64
	for _, f := range fills {
		filledQty += f.Quantity
		notional += f.Price * float64(f.Quantity)
	}

	var avgPrice float64
	if filledQty > 0 {
		avgPrice = notional / float64(filledQty)
	}

	switch {
	case order.RemainingQty == 0:
		order.Status = types.StatusFilled
	case filledQty > 0:
		order.Status = types.StatusPartiallyFilled
	default:
		order.Status = types.StatusOpen
	}
	order.AvgFillPrice = avgPrice

	if order.RemainingQty > 0 {
		sb.rest(order)
		b.indexOrder(order.ID, req.Symbol)
	}

	return types.SubmitResult{
		OrderID:      order.ID,
		Status:       order.Status,
		FilledQty:    filledQty,
		AvgFillPrice: avgPrice,
		Fills:        fills,
	}
}

// rest pushes a resting order onto its side's heap and index map. Caller
// must hold sb.mu.
func (sb *symbolBook) rest(o *types.Order) {
	sb.ordersByID[o.ID] = o
	if o.Side == types.Buy {
		heap.Push(&sb.bids, o)
	} else {
		heap.Push(&sb.asks, o)
	}
}

// match crosses the incoming order against the opposite side using true
// (unclamped) best prices, in price-time priority, until its remaining
// quantity is exhausted or no compatible resting liquidity remains.
func (sb *symbolBook) match(incoming *types.Order, ledger LedgerApplier, deindex func(string)) []types.Fill {
	var fills []types.Fill

	for incoming.RemainingQty > 0 {
		var resting *types.Order
		if incoming.Side == types.Buy {
			resting = lazyTopAsk(&sb.asks)
		} else {
			resting = lazyTopBid(&sb.bids)
		}
		if resting == nil {
			break
		}

		compatible := false
		if incoming.Side == types.Buy {
			compatible = resting.Price <= incoming.Price
		} else {
			compatible = resting.Price >= incoming.Price
		}
		if !compatible {
			break
		}

		qty := incoming.RemainingQty
		if resting.RemainingQty < qty {
			qty = resting.RemainingQty
		}
		price := resting.Price

		incoming.RemainingQty -= qty
		resting.RemainingQty -= qty

		buyerID, sellerID := incoming.UserID, resting.UserID
		if incoming.Side == types.Sell {
			buyerID, sellerID = resting.UserID, incoming.UserID
		}

		now := time.Now()
		fills = append(fills, types.Fill{
			Symbol:    sb.symbol,
			Price:     price,
			Quantity:  qty,
			BuyerID:   buyerID,
			SellerID:  sellerID,
			Timestamp: now,
		})
		sb.lastTradedPrice = &price
		metrics.FillsExecuted.WithLabelValues(sb.symbol).Inc()

		if ledger != nil {
			ledger.ApplyFill(buyerID, sb.symbol, types.Buy, qty, price)
			ledger.ApplyFill(sellerID, sb.symbol, types.Sell, qty, price)
		}

		if resting.RemainingQty == 0 {
			resting.MarkFilled()
			delete(sb.ordersByID, resting.ID)
			deindex(resting.ID)
		}
	}

	return fills
}

func (b *Book) indexOrder(orderID, symbol string) {
	b.indexMu.Lock()
	b.orderIndex[orderID] = symbol
	b.indexMu.Unlock()
}

// deindex removes an order id from the global order index. Used when a
// resting order is fully matched away, since it is no longer cancellable.
func (b *Book) deindex(orderID string) {
	b.indexMu.Lock()
	delete(b.orderIndex, orderID)
	b.indexMu.Unlock()
}

// OrderByID returns a snapshot of a currently resting order and whether it
// was found. A cancelled or fully-filled order is removed from the index, so
// callers should treat "not found" for a previously-seen id as "fully
// filled".
func (b *Book) OrderByID(orderID string) (types.Order, bool) {
	b.indexMu.Lock()
	symbol, ok := b.orderIndex[orderID]
	b.indexMu.Unlock()
	if !ok {
		return types.Order{}, false
	}

	sb := b.symbols[symbol]
	if sb == nil {
		return types.Order{}, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	o, ok := sb.ordersByID[orderID]
	if !ok {
		return types.Order{}, false
	}
	return *o, true
}

// Cancel removes a resting order. Returns false if the order is unknown,
// already cancelled, or already fully filled.
func (b *Book) Cancel(orderID string) bool {
	b.indexMu.Lock()
	symbol, ok := b.orderIndex[orderID]
	if ok {
		delete(b.orderIndex, orderID)
	}
	b.indexMu.Unlock()
	if !ok {
		return false
	}

	sb := b.symbols[symbol]
	if sb == nil {
		return false
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	order, ok := sb.ordersByID[orderID]
	if !ok || order.IsRemoved() {
		return false
	}
	order.MarkCancelled()
	delete(sb.ordersByID, orderID)
	return true
}

// BestBid returns the true (unclamped) best bid price and whether one exists.
func (b *Book) BestBid(symbol string) (float64, bool) {
	sb := b.symbols[symbol]
	if sb == nil {
		return 0, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	top := lazyTopBid(&sb.bids)
	if top == nil {
		return 0, false
	}
	return top.Price, true
}

// BestAsk returns the true (unclamped) best ask price and whether one exists.
func (b *Book) BestAsk(symbol string) (float64, bool) {
	sb := b.symbols[symbol]
	if sb == nil {
		return 0, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	top := lazyTopAsk(&sb.asks)
	if top == nil {
		return 0, false
	}
	return top.Price, true
}

// clampRadius returns the clamp radius and whether it is currently defined
// (both previous_mid and last_traded_price must be set). Caller must hold sb.mu.
func (sb *symbolBook) clampRadius() (float64, bool) {
	if sb.previousMid == nil || sb.lastTradedPrice == nil {
		return 0, false
	}
	return math.Abs(*sb.previousMid-*sb.lastTradedPrice) * clampK, true
}

// ClampedBestBid returns the highest live bid priced at or below
// previous_mid + clamp_radius. With no clamp defined, it falls back to the
// true best bid.
func (b *Book) ClampedBestBid(symbol string) (float64, bool) {
	sb := b.symbols[symbol]
	if sb == nil {
		return 0, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.clampedBestBidLocked()
}

func (sb *symbolBook) clampedBestBidLocked() (float64, bool) {
	radius, haveClamp := sb.clampRadius()
	if !haveClamp {
		top := lazyTopBid(&sb.bids)
		if top == nil {
			return 0, false
		}
		return top.Price, true
	}
	ceiling := *sb.previousMid + radius
	for _, o := range sortedLiveBids(sb.bids) {
		if o.Price <= ceiling {
			return o.Price, true
		}
	}
	return 0, false
}

// ClampedBestAsk returns the lowest live ask priced at or above
// previous_mid - clamp_radius. With no clamp defined, it falls back to the
// true best ask.
func (b *Book) ClampedBestAsk(symbol string) (float64, bool) {
	sb := b.symbols[symbol]
	if sb == nil {
		return 0, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.clampedBestAskLocked()
}

func (sb *symbolBook) clampedBestAskLocked() (float64, bool) {
	radius, haveClamp := sb.clampRadius()
	if !haveClamp {
		top := lazyTopAsk(&sb.asks)
		if top == nil {
			return 0, false
		}
		return top.Price, true
	}
	floor := *sb.previousMid - radius
	for _, o := range sortedLiveAsks(sb.asks) {
		if o.Price >= floor {
			return o.Price, true
		}
	}
	return 0, false
}

// Mid returns the midpoint of the clamp-restricted best bid and ask, and
// records it as this symbol's previous_mid for the next clamp calculation.
// Returns false if either side is unavailable.
func (b *Book) Mid(symbol string) (float64, bool) {
	sb := b.symbols[symbol]
	if sb == nil {
		return 0, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()

	bid, okBid := sb.clampedBestBidLocked()
	ask, okAsk := sb.clampedBestAskLocked()
	if !okBid || !okAsk {
		return 0, false
	}
	mid := (bid + ask) / 2
	sb.previousMid = &mid
	return mid, true
}

// LastTradedPrice returns the most recent fill price on this symbol.
func (b *Book) LastTradedPrice(symbol string) (float64, bool) {
	sb := b.symbols[symbol]
	if sb == nil {
		return 0, false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.lastTradedPrice == nil {
		return 0, false
	}
	return *sb.lastTradedPrice, true
}

// Snapshot returns the top `depth` aggregated price levels on each side,
// using true (unclamped) book state.
func (b *Book) Snapshot(symbol string, depth int) types.BookSnapshot {
	sb := b.symbols[symbol]
	if sb == nil {
		return types.BookSnapshot{Symbol: symbol}
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()

	bids := sortedLiveBids(sb.bids)
	asks := sortedLiveAsks(sb.asks)

	return types.BookSnapshot{
		Symbol: symbol,
		Bids:   aggregateLevels(bids, depth),
		Asks:   aggregateLevels(asks, depth),
	}
}

func aggregateLevels(orders []*types.Order, depth int) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, depth)
	for _, o := range orders {
		if n := len(levels); n > 0 && levels[n-1].Price == o.Price {
			levels[n-1].Quantity += o.RemainingQty
			continue
		}
		if len(levels) >= depth {
			break
		}
		levels = append(levels, types.PriceLevel{Price: o.Price, Quantity: o.RemainingQty})
	}
	return levels
}

// OpenOrdersFor returns every currently-resting order for a user, across
// all symbols.
func (b *Book) OpenOrdersFor(userID string) []types.Order {
	var out []types.Order
	for _, sb := range b.symbols {
		sb.mu.Lock()
		for _, o := range sb.ordersByID {
			if o.UserID == userID && !o.IsRemoved() {
				out = append(out, *o)
			}
		}
		sb.mu.Unlock()
	}
	return out
}
