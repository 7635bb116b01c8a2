package priceproc

import (
	"math/rand"
	"testing"

	"tradesim/internal/registry"
	"tradesim/pkg/types"
)

func testRegistry() *registry.Registry {
	return registry.New(&types.Snapshot{
		Instruments: []types.Instrument{
			{ID: "AAPL", S0: 100, Mean: 0.05, Variance: 0.04},
			{ID: "TSLA", S0: 200, Mean: 0.1, Variance: 0.09},
		},
	})
}

func TestNewSeedsFromInstrumentS0(t *testing.T) {
	t.Parallel()
	sim := New(testRegistry(), rand.New(rand.NewSource(1)))

	got, ok := sim.Price("AAPL")
	if !ok || got != 100 {
		t.Errorf("Price(AAPL) = %v, %v, want 100, true", got, ok)
	}
}

func TestPriceUnknownSymbol(t *testing.T) {
	t.Parallel()
	sim := New(testRegistry(), rand.New(rand.NewSource(1)))

	_, ok := sim.Price("MSFT")
	if ok {
		t.Error("Price(MSFT) ok = true, want false")
	}
}

func TestTickNeverProducesNegativePrice(t *testing.T) {
	t.Parallel()
	sim := New(testRegistry(), rand.New(rand.NewSource(7)))

	for i := 0; i < 10_000; i++ {
		sim.Tick(nil)
	}

	for symbol := range sim.Snapshot() {
		p, _ := sim.Price(symbol)
		if p <= 0 {
			t.Errorf("Price(%s) = %v after many ticks, want > 0", symbol, p)
		}
	}
}

func TestTickWithDriftChangesPrice(t *testing.T) {
	t.Parallel()
	sim := New(testRegistry(), rand.New(rand.NewSource(7)))
	before, _ := sim.Price("AAPL")

	sim.Tick(map[string]float64{"AAPL": 0.5})

	after, _ := sim.Price("AAPL")
	if after == before {
		t.Error("Tick() with nonzero drift left price unchanged")
	}
}

func TestTickMissingDriftEntryTreatedAsZero(t *testing.T) {
	t.Parallel()
	simA := New(testRegistry(), rand.New(rand.NewSource(99)))
	simB := New(testRegistry(), rand.New(rand.NewSource(99)))

	simA.Tick(nil)
	simB.Tick(map[string]float64{})

	a, _ := simA.Price("AAPL")
	b, _ := simB.Price("AAPL")
	if a != b {
		t.Errorf("Tick(nil) = %v, Tick(empty map) = %v, want equal", a, b)
	}
}

func TestSnapshotReturnsAllSymbols(t *testing.T) {
	t.Parallel()
	sim := New(testRegistry(), rand.New(rand.NewSource(1)))

	snap := sim.Snapshot()
	if len(snap) != 2 {
		t.Errorf("Snapshot() has %d entries, want 2", len(snap))
	}
}
