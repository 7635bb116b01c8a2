package news

import (
	"math/rand"
	"testing"

	"tradesim/internal/registry"
	"tradesim/pkg/types"
)

func TestEffectZeroBeforeRelease(t *testing.T) {
	t.Parallel()
	ev := types.NewsEvent{TsReleaseMs: 1000, DecayHalflifeS: 60, MagnitudeTop: 0.02, MagnitudeBottom: 0.0}

	if got := Effect(ev, 500); got != 0 {
		t.Errorf("Effect() before release = %v, want 0", got)
	}
}

func TestEffectMonotoneDecay(t *testing.T) {
	t.Parallel()
	ev := types.NewsEvent{TsReleaseMs: 0, DecayHalflifeS: 100, MagnitudeTop: 0.01, MagnitudeBottom: 0.01}

	e1 := Effect(ev, 50_000)
	e2 := Effect(ev, 150_000)
	if e1 < e2 {
		t.Errorf("Effect(t1) = %v should be >= Effect(t2) = %v for t1 <= t2", e1, e2)
	}
}

func TestEffectDriftProjectionScenario(t *testing.T) {
	t.Parallel()
	// M=0.01, h=100. At t=t0+100s effect=0.005, at t=t0+200s effect=0.0025.
	ev := types.NewsEvent{ID: 1, TsReleaseMs: 0, DecayHalflifeS: 100, MagnitudeTop: 0.01, MagnitudeBottom: 0.01}

	e100 := Effect(ev, 100_000)
	if diff := e100 - 0.005; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Effect(100s) = %v, want 0.005", e100)
	}

	e200 := Effect(ev, 200_000)
	if diff := e200 - 0.0025; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Effect(200s) = %v, want 0.0025", e200)
	}
}

func TestInjectAdHocActivatesImmediately(t *testing.T) {
	t.Parallel()
	reg := registry.New(&types.Snapshot{
		News: []types.NewsEvent{{ID: 7, TsReleaseMs: 999_999_999}},
	})
	e := New(reg, rand.New(rand.NewSource(1)), 100_000)

	e.InjectAdHoc(7)

	active := e.Active()
	if len(active) != 1 || active[0].ID != 7 {
		t.Errorf("Active() = %+v, want [{ID:7}]", active)
	}
}

func TestInjectAdHocAlreadyActivatedIsNoOpForActivation(t *testing.T) {
	t.Parallel()
	reg := registry.New(&types.Snapshot{
		News: []types.NewsEvent{{ID: 7, TsReleaseMs: 0}},
	})
	e := New(reg, rand.New(rand.NewSource(1)), 100_000)
	e.InjectAdHoc(7)
	e.InjectAdHoc(7) // should not panic or duplicate activation

	active := e.Active()
	if len(active) != 1 {
		t.Errorf("Active() = %+v, want exactly one entry", active)
	}
}

func TestBucketActivationPicksExactlyOne(t *testing.T) {
	t.Parallel()
	reg := registry.New(&types.Snapshot{
		News: []types.NewsEvent{
			{ID: 1, TsReleaseMs: 50_000},
			{ID: 2, TsReleaseMs: 60_000},
		},
	})
	e := New(reg, rand.New(rand.NewSource(42)), 100_000)
	e.simStart = e.simStart.Add(-61 * 1e9) // force sim time past 60s

	e.Tick()

	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("Active() = %+v, want exactly one activated event", active)
	}

	// A second tick must not activate the other candidate: the bucket is consumed.
	e.Tick()
	active = e.Active()
	if len(active) != 1 {
		t.Errorf("Active() after second tick = %+v, want still exactly one (bucket consumed)", active)
	}
}

func TestDriftSnapshotSumsActiveEvents(t *testing.T) {
	t.Parallel()
	reg := registry.New(&types.Snapshot{
		Instruments: []types.Instrument{{ID: "AAPL", S0: 100}},
		Factors:     []types.MacroFactor{{ID: "tech"}},
		News: []types.NewsEvent{
			{ID: 1, TsReleaseMs: 0, DecayHalflifeS: 100, MagnitudeTop: 0.01, MagnitudeBottom: 0.01},
		},
		NewsFactors:       []types.NewsFactorEdge{{NewsID: 1, FactorID: "tech"}},
		InstrumentFactors: []types.InstrumentFactorEdge{{InstrumentID: "AAPL", FactorID: "tech", Beta: 2.0}},
	})
	e := New(reg, rand.New(rand.NewSource(1)), 100_000)
	e.InjectAdHoc(1)

	drift := e.DriftSnapshot()
	// effect(0) = M = 0.01, drift = effect * beta = 0.01 * 2.0 = 0.02
	got := drift["AAPL"]
	if diff := got - 0.02; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("DriftSnapshot()[AAPL] = %v, want ~0.02", got)
	}
}

func TestDriftSnapshotMissingEdgeContributesNothing(t *testing.T) {
	t.Parallel()
	reg := registry.New(&types.Snapshot{
		Instruments: []types.Instrument{{ID: "TSLA", S0: 200}},
		News: []types.NewsEvent{
			{ID: 1, TsReleaseMs: 0, DecayHalflifeS: 100, MagnitudeTop: 0.01, MagnitudeBottom: 0.01},
		},
	})
	e := New(reg, rand.New(rand.NewSource(1)), 100_000)
	e.InjectAdHoc(1)

	drift := e.DriftSnapshot()
	if got := drift["TSLA"]; got != 0 {
		t.Errorf("DriftSnapshot()[TSLA] = %v, want 0 (no edge)", got)
	}
}
