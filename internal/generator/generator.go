// Package generator implements the periodic order generator (C8): for
// each symbol, places a paired buy/sell around the GBM reference price
// through normal matching, nudging the book toward the reference when
// bot quoting alone leaves it stale.
package generator

import (
	"tradesim/internal/book"
	"tradesim/internal/priceproc"
	"tradesim/internal/registry"
	"tradesim/pkg/types"
)

// Generator submits paired reference orders under a single reserved
// user id.
type Generator struct {
	book     *book.Book
	sim      *priceproc.Simulator
	registry *registry.Registry
	userID   string
}

// New builds a Generator. userID is the reserved account these orders
// are submitted under (config.GeneratorConfig.UserID).
func New(reg *registry.Registry, b *book.Book, sim *priceproc.Simulator, userID string) *Generator {
	return &Generator{book: b, sim: sim, registry: reg, userID: userID}
}

// Tick runs one generation pass over every symbol.
func (g *Generator) Tick() {
	for _, symbol := range g.registry.Symbols() {
		g.tickSymbol(symbol)
	}
}

func (g *Generator) tickSymbol(symbol string) {
	mid, ok := g.sim.Price(symbol)
	if !ok {
		return
	}

	bid, okBid := g.book.ClampedBestBid(symbol)
	ask, okAsk := g.book.ClampedBestAsk(symbol)
	if !okBid || !okAsk {
		return
	}
	spread := ask - bid
	if spread <= 0 {
		return
	}

	g.book.Submit(book.SubmitRequest{
		UserID:   g.userID,
		Symbol:   symbol,
		Side:     types.Buy,
		Price:    mid - spread/2,
		Quantity: 1,
		Kind:     types.OrderKindGenerator,
	})
	g.book.Submit(book.SubmitRequest{
		UserID:   g.userID,
		Symbol:   symbol,
		Side:     types.Sell,
		Price:    mid + spread/2,
		Quantity: 1,
		Kind:     types.OrderKindGenerator,
	})
}
