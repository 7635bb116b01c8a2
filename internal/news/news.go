// Package news implements the news engine (C5): a simulation clock,
// bucketed activation of scheduled events, exponential decay, and
// per-instrument drift projection fed to the price simulator (C6).
package news

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"tradesim/internal/registry"
	"tradesim/pkg/types"
)

// Engine owns the news engine's mutable state: which events are active,
// which have ever been activated (a one-shot guard), and which 100-second
// buckets have already had their lottery run.
type Engine struct {
	mu sync.RWMutex

	registry     *registry.Registry
	rng          *rand.Rand
	bucketSizeMs int64
	simStart     time.Time

	activeIDs      map[int]struct{}
	activatedIDs   map[int]struct{}
	consumedBucket map[int64]bool
	injectionLog   []int
}

// New builds a news Engine. bucketSizeMs is the bucket width in simulation
// milliseconds (spec default: 100,000 = 100s). The simulation clock starts
// at construction time.
func New(reg *registry.Registry, rng *rand.Rand, bucketSizeMs int64) *Engine {
	if bucketSizeMs <= 0 {
		bucketSizeMs = 100_000
	}
	return &Engine{
		registry:       reg,
		rng:            rng,
		bucketSizeMs:   bucketSizeMs,
		simStart:       time.Now(),
		activeIDs:      make(map[int]struct{}),
		activatedIDs:   make(map[int]struct{}),
		consumedBucket: make(map[int64]bool),
	}
}

// SimTimeMs returns the current simulation time in milliseconds, which
// advances at 1x real wall-clock rate from the engine's construction.
func (e *Engine) SimTimeMs() int64 {
	return time.Since(e.simStart).Milliseconds()
}

// Tick runs one activation pass: for every bucket with at least one
// eligible candidate that hasn't already been consumed, pick exactly one
// candidate uniformly at random and mark it active and activated.
func (e *Engine) Tick() {
	simTime := e.SimTimeMs()

	e.mu.Lock()
	defer e.mu.Unlock()

	byBucket := make(map[int64][]types.NewsEvent)
	for _, ev := range e.registry.AllNews() {
		if _, done := e.activatedIDs[ev.ID]; ev.TsReleaseMs > simTime || done {
			continue
		}
		bucket := ev.TsReleaseMs / e.bucketSizeMs
		if e.consumedBucket[bucket] {
			continue
		}
		byBucket[bucket] = append(byBucket[bucket], ev)
	}

	for bucket, candidates := range byBucket {
		pick := candidates[e.rng.Intn(len(candidates))]
		e.activeIDs[pick.ID] = struct{}{}
		e.activatedIDs[pick.ID] = struct{}{}
		e.consumedBucket[bucket] = true
	}
}

// InjectAdHoc immediately marks a news event active and activated,
// bypassing the bucket lottery. If the event is already activated, this
// is a no-op for activation state but the injection attempt is still
// logged.
func (e *Engine) InjectAdHoc(newsID int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.injectionLog = append(e.injectionLog, newsID)
	if _, done := e.activatedIDs[newsID]; done {
		return
	}
	e.activeIDs[newsID] = struct{}{}
	e.activatedIDs[newsID] = struct{}{}
}

// Effect returns an active event's contribution at the given simulation
// time: M * 2^(-(t-t0)/h) for t >= t0, else 0.
func Effect(ev types.NewsEvent, simTimeMs int64) float64 {
	if simTimeMs < ev.TsReleaseMs {
		return 0
	}
	elapsedS := float64(simTimeMs-ev.TsReleaseMs) / 1000
	return ev.Magnitude() * math.Pow(2, -elapsedS/ev.Halflife())
}

// DriftSnapshot computes drift(i) for every instrument in the registry at
// the current simulation time, taking one consistent snapshot of active
// event state. Intended to be called once per price-simulator tick.
func (e *Engine) DriftSnapshot() map[string]float64 {
	simTime := e.SimTimeMs()

	e.mu.RLock()
	active := make([]int, 0, len(e.activeIDs))
	for id := range e.activeIDs {
		active = append(active, id)
	}
	e.mu.RUnlock()

	drift := make(map[string]float64)
	for _, symbol := range e.registry.Symbols() {
		drift[symbol] = 0
	}

	for _, id := range active {
		ev, ok := e.registry.News(id)
		if !ok {
			continue
		}
		effect := Effect(ev, simTime)
		if effect == 0 {
			continue
		}
		factors := e.registry.FactorsFor(id)
		for _, symbol := range e.registry.Symbols() {
			var betaSum float64
			for _, f := range factors {
				betaSum += e.registry.Beta(symbol, f)
			}
			drift[symbol] += effect * betaSum
		}
	}
	return drift
}

// Status is a read-only summary of the news engine's current state, used
// by the /news/status introspection endpoint.
type Status struct {
	SimTimeMs   int64 `json:"sim_time_ms"`
	ActiveCount int   `json:"active_count"`
}

// CurrentStatus returns the engine's current status.
func (e *Engine) CurrentStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{SimTimeMs: e.SimTimeMs(), ActiveCount: len(e.activeIDs)}
}

// Active returns every currently active news event.
func (e *Engine) Active() []types.NewsEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.NewsEvent, 0, len(e.activeIDs))
	for id := range e.activeIDs {
		if ev, ok := e.registry.News(id); ok {
			out = append(out, ev)
		}
	}
	return out
}

// All returns every news event known to the registry.
func (e *Engine) All() []types.NewsEvent {
	return e.registry.AllNews()
}

// Candidates returns every news event eligible to activate right now:
// released but not yet activated.
func (e *Engine) Candidates() []types.NewsEvent {
	simTime := e.SimTimeMs()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []types.NewsEvent
	for _, ev := range e.registry.AllNews() {
		if _, done := e.activatedIDs[ev.ID]; ev.TsReleaseMs <= simTime && !done {
			out = append(out, ev)
		}
	}
	return out
}
