// Package risk implements the pre-trade risk gate (C4): an ordered set of
// synchronous checks invoked on every user-submitted order, never on bot
// quotes or internal generator orders. A rejection returns before the
// order book ever sees it.
package risk

import (
	"time"

	"tradesim/internal/config"
	"tradesim/internal/metrics"
	"tradesim/pkg/types"

	"tradesim/internal/ledger"
	"tradesim/internal/registry"
)

// Gate enforces spec.md's ordered pre-trade checks table. The reversal
// guard and rate limit both read real wall-clock time from the ledger's
// trade history, not the simulation clock — under a slowed or accelerated
// sim clock this would misbehave, a known latent distinction (spec's
// design notes flag it, not "fixed" here).
type Gate struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	cfg      config.RiskConfig
}

// New builds a Gate over a registry and ledger with the given thresholds.
func New(reg *registry.Registry, led *ledger.Ledger, cfg config.RiskConfig) *Gate {
	return &Gate{registry: reg, ledger: led, cfg: cfg}
}

// Check runs the ordered pre-trade checks for a prospective order. It
// returns (true, RejectNone) on acceptance, or (false, reason) on the
// first failing check.
func (g *Gate) Check(userID, symbol string, side types.Side, qty int) (bool, types.RejectReason) {
	if reason, ok := g.check(userID, symbol, side, qty); !ok {
		metrics.OrderRejections.WithLabelValues(string(reason)).Inc()
		return false, reason
	}
	return true, types.RejectNone
}

func (g *Gate) check(userID, symbol string, side types.Side, qty int) (types.RejectReason, bool) {
	if !g.registry.HasInstrument(symbol) {
		return types.RejectInvalidInstrument, false
	}

	if qty > g.cfg.MaxOrderSize {
		return types.RejectOrderSizeExceeded, false
	}

	window := g.cfg.RateLimitWindow
	if window <= 0 {
		window = 60 * time.Second
	}
	recent := g.ledger.RecentVolume(userID, symbol, window)
	if recent+qty > g.cfg.MaxVolumePerMinute {
		return types.RejectRateLimitExceeded, false
	}

	if g.reversalBlocked(userID, symbol, side) {
		return types.RejectReversalBlocked, false
	}

	current := g.ledger.Position(userID, symbol)
	signedQty := qty
	if side == types.Sell {
		signedQty = -qty
	}
	newPosition := current + signedQty
	if abs(newPosition) > g.cfg.MaxPosition {
		return types.RejectPositionLimitExceed, false
	}

	return types.RejectNone, true
}

// reversalBlocked reports whether the user's most recent trade on this
// symbol was on the opposite side, within the reversal window, at or
// above the reversal quantity threshold.
func (g *Gate) reversalBlocked(userID, symbol string, side types.Side) bool {
	last, ok := g.ledger.LastTrade(userID, symbol)
	if !ok {
		return false
	}

	window := g.cfg.ReversalWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	reversalQty := g.cfg.ReversalQty
	if reversalQty <= 0 {
		reversalQty = 100
	}

	if time.Since(last.Timestamp) > window {
		return false
	}
	if last.Side == side {
		return false
	}
	return last.Quantity >= reversalQty
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
