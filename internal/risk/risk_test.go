package risk

import (
	"testing"
	"time"

	"tradesim/internal/config"
	"tradesim/internal/ledger"
	"tradesim/internal/registry"
	"tradesim/pkg/types"
)

func testGate(t *testing.T, cfg config.RiskConfig) (*Gate, *ledger.Ledger) {
	t.Helper()
	reg := registry.New(&types.Snapshot{
		Instruments: []types.Instrument{{ID: "AAPL", S0: 100}},
	})
	led := ledger.New(500_000)
	if cfg == (config.RiskConfig{}) {
		cfg = config.RiskConfig{
			MaxOrderSize:       500,
			MaxVolumePerMinute: 1000,
			MaxPosition:        5000,
			ReversalWindow:     30 * time.Second,
			ReversalQty:        100,
			RateLimitWindow:    60 * time.Second,
		}
	}
	return New(reg, led, cfg), led
}

func defaultRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxOrderSize:       500,
		MaxVolumePerMinute: 1000,
		MaxPosition:        5000,
		ReversalWindow:     30 * time.Second,
		ReversalQty:        100,
		RateLimitWindow:    60 * time.Second,
	}
}

func TestCheckRejectsUnknownSymbol(t *testing.T) {
	t.Parallel()
	g, _ := testGate(t, defaultRiskConfig())

	ok, reason := g.Check("alice", "MSFT", types.Buy, 10)
	if ok || reason != types.RejectInvalidInstrument {
		t.Errorf("Check() = %v, %v, want false, invalid_instrument", ok, reason)
	}
}

func TestCheckRejectsOrderSizeExceeded(t *testing.T) {
	t.Parallel()
	g, _ := testGate(t, defaultRiskConfig())

	ok, reason := g.Check("alice", "AAPL", types.Buy, 501)
	if ok || reason != types.RejectOrderSizeExceeded {
		t.Errorf("Check() = %v, %v, want false, order_size_exceeded", ok, reason)
	}
}

func TestCheckAcceptsWithinLimits(t *testing.T) {
	t.Parallel()
	g, _ := testGate(t, defaultRiskConfig())

	ok, reason := g.Check("alice", "AAPL", types.Buy, 100)
	if !ok || reason != types.RejectNone {
		t.Errorf("Check() = %v, %v, want true, none", ok, reason)
	}
}

func TestCheckRejectsRateLimitExceeded(t *testing.T) {
	t.Parallel()
	g, led := testGate(t, defaultRiskConfig())

	led.RecordTrade("alice", "AAPL", 950, types.Buy)

	ok, reason := g.Check("alice", "AAPL", types.Buy, 100)
	if ok || reason != types.RejectRateLimitExceeded {
		t.Errorf("Check() = %v, %v, want false, rate_limit_exceeded", ok, reason)
	}
}

func TestCheckRejectsReversalBlocked(t *testing.T) {
	t.Parallel()
	g, led := testGate(t, defaultRiskConfig())

	led.RecordTrade("alice", "AAPL", 100, types.Buy)

	ok, reason := g.Check("alice", "AAPL", types.Sell, 10)
	if ok || reason != types.RejectReversalBlocked {
		t.Errorf("Check() = %v, %v, want false, reversal_blocked", ok, reason)
	}
}

func TestCheckAllowsReversalBelowQtyThreshold(t *testing.T) {
	t.Parallel()
	g, led := testGate(t, defaultRiskConfig())

	led.RecordTrade("alice", "AAPL", 50, types.Buy) // below ReversalQty=100

	ok, _ := g.Check("alice", "AAPL", types.Sell, 10)
	if !ok {
		t.Error("Check() = false, want true (reversal qty below threshold)")
	}
}

func TestCheckAllowsReversalAfterWindowExpires(t *testing.T) {
	t.Parallel()
	cfg := defaultRiskConfig()
	cfg.ReversalWindow = 10 * time.Millisecond
	g, led := testGate(t, cfg)

	led.RecordTrade("alice", "AAPL", 150, types.Buy)
	time.Sleep(20 * time.Millisecond)

	ok, _ := g.Check("alice", "AAPL", types.Sell, 10)
	if !ok {
		t.Error("Check() = false, want true (reversal window expired)")
	}
}

func TestCheckRejectsPositionLimitExceeded(t *testing.T) {
	t.Parallel()
	g, led := testGate(t, defaultRiskConfig())

	led.ApplyFill("alice", "AAPL", types.Buy, 4950, 100)

	ok, reason := g.Check("alice", "AAPL", types.Buy, 100)
	if ok || reason != types.RejectPositionLimitExceed {
		t.Errorf("Check() = %v, %v, want false, position_limit_exceeded", ok, reason)
	}
}

func TestCheckSameSideNeverTriggersReversal(t *testing.T) {
	t.Parallel()
	g, led := testGate(t, defaultRiskConfig())

	led.RecordTrade("alice", "AAPL", 200, types.Buy)

	ok, _ := g.Check("alice", "AAPL", types.Buy, 10)
	if !ok {
		t.Error("Check() = false, want true (same side, no reversal)")
	}
}
