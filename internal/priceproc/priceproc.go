// Package priceproc implements the reference price simulator (C6): one
// geometric Brownian motion instance per symbol, advanced once per tick
// by a drift term supplied by the news engine. The simulator never
// unilaterally moves the order book — it only produces a reference price
// consumed by the order generator (C8).
package priceproc

import (
	"math"
	"math/rand"
	"sync"

	"tradesim/internal/registry"
)

const deltaT = 1.0 / 252

// symbolState is one GBM process's mutable state.
type symbolState struct {
	mu           sync.Mutex
	currentPrice float64
	mean         float64
	variance     float64
}

// Simulator owns one GBM process per symbol.
type Simulator struct {
	rng     *rand.Rand
	rngMu   sync.Mutex
	symbols map[string]*symbolState
	order   []string // registry symbol order, so each tick draws from rng in a fixed sequence
}

// New builds a Simulator seeded from the registry's instrument catalog;
// every symbol's process starts at its s0 with its configured mean and
// variance.
func New(reg *registry.Registry, rng *rand.Rand) *Simulator {
	s := &Simulator{rng: rng, symbols: make(map[string]*symbolState)}
	for _, symbol := range reg.Symbols() {
		inst, ok := reg.Instrument(symbol)
		if !ok {
			continue
		}
		s.symbols[symbol] = &symbolState{
			currentPrice: inst.S0,
			mean:         inst.Mean,
			variance:     inst.Variance,
		}
		s.order = append(s.order, symbol)
	}
	return s
}

// Tick advances every symbol's process by one step, using the supplied
// per-symbol additional drift (typically a news engine DriftSnapshot).
// Symbols absent from drift are treated as zero additional drift.
func (s *Simulator) Tick(drift map[string]float64) {
	for _, symbol := range s.order {
		s.step(s.symbols[symbol], drift[symbol])
	}
}

func (s *Simulator) step(st *symbolState, additionalDrift float64) {
	s.rngMu.Lock()
	eps := s.rng.NormFloat64()
	s.rngMu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	exponent := (st.mean+additionalDrift-st.variance/2)*deltaT + math.Sqrt(st.variance)*eps*math.Sqrt(deltaT)
	st.currentPrice *= math.Exp(exponent)
}

// Price returns a symbol's current reference price.
func (s *Simulator) Price(symbol string) (float64, bool) {
	st, ok := s.symbols[symbol]
	if !ok {
		return 0, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.currentPrice, true
}

// Snapshot returns every symbol's current reference price.
func (s *Simulator) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(s.symbols))
	for symbol, st := range s.symbols {
		st.mu.Lock()
		out[symbol] = st.currentPrice
		st.mu.Unlock()
	}
	return out
}
