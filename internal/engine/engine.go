// Package engine is the central tick orchestrator (C9). It launches the
// news engine, price simulator, market-making bots, and order generator
// as concurrent loops sharing a single order book and user ledger, plus
// a snapshot broadcaster that fans out each symbol's reference price to
// subscribers (the WebSocket market feed).
//
// Lifecycle: New() → Start() → [runs until Stop() or ctx cancellation].
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tradesim/internal/book"
	"tradesim/internal/bots"
	"tradesim/internal/config"
	"tradesim/internal/generator"
	"tradesim/internal/metrics"
	"tradesim/internal/news"
	"tradesim/internal/priceproc"
	"tradesim/internal/registry"
)

// MarketSnapshot maps symbol to its broadcast reference price.
type MarketSnapshot map[string]float64

// Engine owns every periodic loop of the simulation core and the
// subscriber fan-out for its snapshot broadcaster.
type Engine struct {
	cfg      config.SimulationConfig
	registry *registry.Registry
	book     *book.Book
	news     *news.Engine
	sim      *priceproc.Simulator
	bots     *bots.Manager
	gen      *generator.Generator
	logger   *slog.Logger

	subMu sync.Mutex
	subs  map[chan MarketSnapshot]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an Engine from its already-constructed collaborators.
func New(
	cfg config.SimulationConfig,
	reg *registry.Registry,
	b *book.Book,
	newsEngine *news.Engine,
	sim *priceproc.Simulator,
	botMgr *bots.Manager,
	gen *generator.Generator,
	logger *slog.Logger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:      cfg,
		registry: reg,
		book:     b,
		news:     newsEngine,
		sim:      sim,
		bots:     botMgr,
		gen:      gen,
		logger:   logger.With("component", "engine"),
		subs:     make(map[chan MarketSnapshot]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches every tick loop as a goroutine. Returns immediately.
func (e *Engine) Start() {
	e.runLoop("news", hzInterval(e.cfg.NewsTickHz), e.tickNews)
	e.runLoop("price", hzInterval(e.cfg.PriceTickHz), e.tickPrice)
	e.runLoop("bots", hzInterval(e.cfg.BotRefreshHz), e.tickBots)
	e.runLoop("generator", secInterval(e.cfg.GeneratorIntervalSec), e.tickGenerator)
	e.runLoop("broadcast", hzInterval(e.cfg.BroadcastHz), e.tickBroadcast)
}

// Stop cancels every loop and waits for them to exit.
func (e *Engine) Stop() {
	e.logger.Info("engine shutting down")
	e.cancel()
	e.wg.Wait()
	e.logger.Info("engine shutdown complete")
}

// runLoop runs fn on every tick of a ticker at the given interval until
// the engine's context is cancelled. fn returns no error; a panic inside
// it is recovered and logged by safeTick, and the loop carries on at its
// next tick.
func (e *Engine) runLoop(name string, interval time.Duration, fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				e.safeTick(name, fn)
			}
		}
	}()
}

// safeTick recovers a panicking tick so one loop's failure can never take
// down the others; it logs and lets the loop continue at its next tick.
func (e *Engine) safeTick(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick panic recovered", "loop", name, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) tickNews() {
	e.news.Tick()
	metrics.ActiveNewsEvents.Set(float64(e.news.CurrentStatus().ActiveCount))
}

func (e *Engine) tickPrice() {
	drift := e.news.DriftSnapshot()
	e.sim.Tick(drift)
}

func (e *Engine) tickBots() {
	e.bots.RefreshAll()
}

func (e *Engine) tickGenerator() {
	e.gen.Tick()
}

// tickBroadcast collects each symbol's mid (falling back to best bid,
// then best ask, when mid is undefined) and publishes it to subscribers.
func (e *Engine) tickBroadcast() {
	snap := make(MarketSnapshot, len(e.registry.Symbols()))
	for _, symbol := range e.registry.Symbols() {
		if mid, ok := e.book.Mid(symbol); ok {
			snap[symbol] = mid
		} else if bid, ok := e.book.BestBid(symbol); ok {
			snap[symbol] = bid
		} else if ask, ok := e.book.BestAsk(symbol); ok {
			snap[symbol] = ask
		} else {
			continue
		}
		metrics.ReferencePrice.WithLabelValues(symbol).Set(snap[symbol])
	}
	e.publish(snap)
}

// Subscribe registers a channel to receive every broadcast snapshot. The
// caller must call Unsubscribe when done to avoid leaking the channel.
// The channel is buffered; a slow subscriber has its oldest pending
// snapshot dropped rather than blocking the broadcaster.
func (e *Engine) Subscribe() chan MarketSnapshot {
	ch := make(chan MarketSnapshot, 1)
	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()
	return ch
}

// Unsubscribe removes a previously subscribed channel.
func (e *Engine) Unsubscribe(ch chan MarketSnapshot) {
	e.subMu.Lock()
	delete(e.subs, ch)
	e.subMu.Unlock()
}

func (e *Engine) publish(snap MarketSnapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func hzInterval(hz float64) time.Duration {
	if hz <= 0 {
		hz = 1
	}
	return time.Duration(float64(time.Second) / hz)
}

func secInterval(sec float64) time.Duration {
	if sec <= 0 {
		sec = 5
	}
	return time.Duration(sec * float64(time.Second))
}
