// Package bots implements the market-making bots (C7): one bot per
// symbol, running a random walk on its own reference mid with
// mean-reversion and inventory pressure, quoting multi-level ladders
// that bypass matching (types.OrderKindBot), and tracking inventory by
// diffing each prior quote's remaining size before cancelling it.
package bots

import (
	"math"
	"math/rand"
	"sync"

	"tradesim/internal/book"
	"tradesim/internal/config"
	"tradesim/internal/registry"
	"tradesim/pkg/types"
)

const maxInventoryDefault = 200

// quotedOrder remembers what a bot submitted, so a later refresh can
// compute how much filled even if the order is fully gone from the book
// by then (a fully-filled order is removed from the book's index).
type quotedOrder struct {
	id   string
	side types.Side
	qty  int
}

// botState is one symbol's market-making bot.
type botState struct {
	mu        sync.Mutex
	symbol    string
	s0        float64
	mid       float64
	inventory int
	// quotes are this bot's currently-resting orders from the prior
	// refresh, tracked so the next refresh can compute how much filled
	// before cancelling and replacing them.
	quotes []quotedOrder
}

// Manager owns one bot per symbol.
type Manager struct {
	book   *book.Book
	cfg    config.BotConfig
	rng    *rand.Rand
	rngMu  sync.Mutex
	states map[string]*botState
}

// New builds a Manager with one bot per registry symbol, seeded at each
// instrument's s0.
func New(reg *registry.Registry, b *book.Book, cfg config.BotConfig, rng *rand.Rand) *Manager {
	m := &Manager{book: b, cfg: cfg, rng: rng, states: make(map[string]*botState)}
	for _, symbol := range reg.Symbols() {
		inst, ok := reg.Instrument(symbol)
		if !ok {
			continue
		}
		m.states[symbol] = &botState{symbol: symbol, s0: inst.S0, mid: inst.S0}
	}
	return m
}

// RefreshAll runs one refresh cycle for every bot.
func (m *Manager) RefreshAll() {
	for _, st := range m.states {
		m.refresh(st)
	}
}

func (m *Manager) normal(stdDev float64) float64 {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.NormFloat64() * stdDev
}

// refresh runs one random-walk + requoting cycle for a single bot.
func (m *Manager) refresh(st *botState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	m.walkMid(st)
	spread := m.computeSpread(st)

	filled := m.reconcilePriorQuotes(st)
	st.inventory += filled

	levels := m.cfg.Levels
	if levels <= 0 {
		levels = 3
	}
	maxInv := m.cfg.MaxInventory
	if maxInv <= 0 {
		maxInv = maxInventoryDefault
	}

	var newQuotes []quotedOrder
	suppressBid := st.inventory >= maxInv
	suppressAsk := st.inventory <= -maxInv

	for l := 0; l < levels; l++ {
		depth := 50 - 10*l
		if depth < 10 {
			depth = 10
		}
		if !suppressBid {
			bidPrice := st.mid*(1-spread/2) - float64(l)*spread
			res := m.book.Submit(book.SubmitRequest{
				UserID:   "bot:" + st.symbol,
				Symbol:   st.symbol,
				Side:     types.Buy,
				Price:    bidPrice,
				Quantity: depth,
				Kind:     types.OrderKindBot,
			})
			if res.OrderID != "" {
				newQuotes = append(newQuotes, quotedOrder{id: res.OrderID, side: types.Buy, qty: depth})
			}
		}
		if !suppressAsk {
			askPrice := st.mid*(1+spread/2) + float64(l)*spread
			res := m.book.Submit(book.SubmitRequest{
				UserID:   "bot:" + st.symbol,
				Symbol:   st.symbol,
				Side:     types.Sell,
				Price:    askPrice,
				Quantity: depth,
				Kind:     types.OrderKindBot,
			})
			if res.OrderID != "" {
				newQuotes = append(newQuotes, quotedOrder{id: res.OrderID, side: types.Sell, qty: depth})
			}
		}
	}

	st.quotes = newQuotes
}

// walkMid applies one step of the random walk with mean reversion and
// inventory pressure, clamped to never fall below 10% of s0.
func (m *Manager) walkMid(st *botState) {
	shockFrac := m.cfg.ShockSigmaFrac
	if shockFrac <= 0 {
		shockFrac = 0.0045
	}
	meanReversion := m.cfg.MeanReversion
	if meanReversion <= 0 {
		meanReversion = 1 - 0.97
	}
	pressureCoef := m.cfg.InventoryPressureCoef
	if pressureCoef <= 0 {
		pressureCoef = 0.0005
	}

	shock := m.normal(shockFrac * st.mid)
	reversion := (st.s0 - st.mid) * meanReversion
	inv := clip(float64(st.inventory), -100, 100)
	inventoryPressure := -inv * pressureCoef * st.s0

	next := st.mid + shock + reversion + inventoryPressure
	floor := 0.1 * st.s0
	if next < floor {
		next = floor
	}
	st.mid = next
}

// computeSpread returns the quoted spread; bots are given drift = 0 and
// do not react to news directly, per the bot design.
func (m *Manager) computeSpread(st *botState) float64 {
	const drift = 0
	base := m.cfg.BaseSpread
	if base <= 0 {
		base = 0.005
	}
	eta := m.normal(m.cfg.NoiseSigma)
	spread := base + m.cfg.StressCoef*math.Abs(drift) + m.cfg.InventoryCoef*math.Abs(float64(st.inventory)) + eta
	if spread < 0 {
		spread = 0
	}
	return spread
}

// reconcilePriorQuotes cancels every quote from the previous cycle and
// returns the net inventory delta implied by what filled: +filled on
// buys that were reduced, -filled on sells that were reduced. A quote
// absent from the book by now was fully filled (nothing else removes a
// bot's own order between refreshes).
func (m *Manager) reconcilePriorQuotes(st *botState) int {
	delta := 0
	for _, q := range st.quotes {
		filled := q.qty
		if order, ok := m.book.OrderByID(q.id); ok {
			filled = order.OriginalQty - order.RemainingQty
			m.book.Cancel(q.id)
		}
		if q.side == types.Buy {
			delta += filled
		} else {
			delta -= filled
		}
	}
	return delta
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
