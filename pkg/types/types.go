// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the simulator — instruments,
// orders, fills, lots, and news events. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import "time"

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: buy or sell.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind distinguishes how an order reached the book.
type OrderKind string

const (
	// OrderKindUser is a human-submitted order; passes through the risk gate.
	OrderKindUser OrderKind = "user"
	// OrderKindBot is a market-maker quote; skips matching entirely and
	// rests directly in the book, even when it crosses the opposite side.
	OrderKindBot OrderKind = "bot"
	// OrderKindGenerator is a reference order from the order generator; matches normally.
	OrderKindGenerator OrderKind = "generator"
)

// OrderStatus is the outcome of a submission or the current state of a resting order.
type OrderStatus string

const (
	StatusOpen            OrderStatus = "open"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
)

// RejectReason enumerates the risk gate's typed rejection kinds.
type RejectReason string

const (
	RejectNone                RejectReason = ""
	RejectInvalidInstrument   RejectReason = "invalid_instrument"
	RejectOrderSizeExceeded   RejectReason = "order_size_exceeded"
	RejectRateLimitExceeded   RejectReason = "rate_limit_exceeded"
	RejectReversalBlocked     RejectReason = "reversal_blocked"
	RejectPositionLimitExceed RejectReason = "position_limit_exceeded"
	RejectNoLiquidity         RejectReason = "no_liquidity"
	RejectCancelNotFound      RejectReason = "cancel_not_found"
)

// ————————————————————————————————————————————————————————————————————————
// Seed catalog — loaded once at startup, immutable thereafter
// ————————————————————————————————————————————————————————————————————————

// Instrument is a tradable synthetic symbol.
type Instrument struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	S0          float64 `json:"s0"`       // initial price
	Mean        float64 `json:"mean"`     // annualized drift
	Variance    float64 `json:"variance"` // annualized variance
}

// MacroFactor is a named macroeconomic exposure. CapUp/CapDown are carried
// for informational purposes only; nothing in this core enforces them.
type MacroFactor struct {
	ID      string  `json:"id"`
	CapUp   float64 `json:"cap_up"`
	CapDown float64 `json:"cap_down"`
}

// NewsEvent is a scheduled macro news release.
type NewsEvent struct {
	ID              int     `json:"id"`
	Headline        string  `json:"headline"`
	Description     string  `json:"description"`
	TsReleaseMs     int64   `json:"ts_release_ms"`
	DecayHalflifeS  float64 `json:"decay_halflife_s"`
	MagnitudeTop    float64 `json:"magnitude_top"`
	MagnitudeBottom float64 `json:"magnitude_bottom"`
}

// Magnitude returns the event's effective magnitude: the mean of top and bottom.
func (n NewsEvent) Magnitude() float64 {
	return (n.MagnitudeTop + n.MagnitudeBottom) / 2
}

// Halflife returns the decay half-life, treating a non-positive value as 1.
func (n NewsEvent) Halflife() float64 {
	if n.DecayHalflifeS <= 0 {
		return 1
	}
	return n.DecayHalflifeS
}

// NewsFactorEdge records that a news event touches a macro factor.
type NewsFactorEdge struct {
	NewsID   int    `json:"news_id"`
	FactorID string `json:"factor_id"`
}

// InstrumentFactorEdge records an instrument's beta exposure to a macro factor.
type InstrumentFactorEdge struct {
	InstrumentID string  `json:"instrument_id"`
	FactorID     string  `json:"factor_id"`
	Beta         float64 `json:"beta"`
}

// Snapshot is the startup payload: instruments, factors, news, and their
// relations. Loaded once and held in memory for the process lifetime.
type Snapshot struct {
	Instruments       []Instrument           `json:"instruments"`
	Factors           []MacroFactor          `json:"factors"`
	News              []NewsEvent            `json:"news"`
	NewsFactors       []NewsFactorEdge       `json:"news_factors"`
	InstrumentFactors []InstrumentFactorEdge `json:"instrument_factors"`
}

// ————————————————————————————————————————————————————————————————————————
// Orders, fills, lots
// ————————————————————————————————————————————————————————————————————————

// Order is a resting or historical limit order.
type Order struct {
	ID           string
	UserID       string
	Symbol       string
	Side         Side
	Price        float64
	RemainingQty int
	OriginalQty  int
	CreatedAt    time.Time
	Kind         OrderKind
	Status       OrderStatus
	AvgFillPrice float64

	removed bool // tombstoned for lazy heap eviction
}

// IsRemoved reports whether the order has been cancelled or fully filled and
// should be skipped if still encountered in a priority queue.
func (o *Order) IsRemoved() bool {
	return o.removed || o.RemainingQty <= 0
}

// MarkCancelled tombstones the order for lazy heap eviction.
func (o *Order) MarkCancelled() {
	o.removed = true
	o.Status = StatusCancelled
}

// MarkFilled tombstones the order after it has been fully matched away.
func (o *Order) MarkFilled() {
	o.removed = true
	o.Status = StatusFilled
}

// Fill is a single matched trade, emitted as a side effect of matching.
type Fill struct {
	Symbol    string
	Price     float64
	Quantity  int
	BuyerID   string
	SellerID  string
	Timestamp time.Time
}

// Lot is one contiguous acquisition of a symbol at a single price. Quantity
// is signed: positive is a long lot, negative is a short lot. A ledger never
// mixes signs within one symbol's lot list.
type Lot struct {
	Quantity   int
	EntryPrice float64
}

// TradeRecord is one entry in a user's trade history, used by the risk
// gate's rate limit and reversal guard. Both operate on real wall-clock
// time, not simulation time.
type TradeRecord struct {
	Symbol    string
	Quantity  int
	Side      Side
	Timestamp time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Book-facing value types
// ————————————————————————————————————————————————————————————————————————

// SubmitResult is returned by the order book's submit entry point.
type SubmitResult struct {
	OrderID      string
	Status       OrderStatus
	FilledQty    int
	AvgFillPrice float64
	Fills        []Fill
}

// PriceLevel is one aggregated price/quantity rung of a book snapshot.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// BookSnapshot is a depth-limited ladder view of one symbol's book.
type BookSnapshot struct {
	Symbol string       `json:"symbol"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
}
