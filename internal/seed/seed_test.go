package seed

import (
	"os"
	"path/filepath"
	"testing"

	"tradesim/pkg/types"
)

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeSnapshot(t, `{
		"instruments": [{"id": "AAPL", "display_name": "Apple", "s0": 100, "mean": 0.08, "variance": 0.04}],
		"factors": [{"id": "rates", "cap_up": 0.05, "cap_down": -0.05}],
		"news": [{"id": 1, "headline": "h", "description": "d", "ts_release_ms": 1000, "decay_halflife_s": 60, "magnitude_top": 0.01, "magnitude_bottom": 0.0}],
		"news_factors": [{"news_id": 1, "factor_id": "rates"}],
		"instrument_factors": [{"instrument_id": "AAPL", "factor_id": "rates", "beta": 1.2}]
	}`)

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Instruments) != 1 || snap.Instruments[0].ID != "AAPL" {
		t.Errorf("unexpected instruments: %+v", snap.Instruments)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load() = nil error, want error for missing file")
	}
}

func TestValidateRejectsDuplicateInstrument(t *testing.T) {
	snap := &types.Snapshot{
		Instruments: []types.Instrument{
			{ID: "AAPL", S0: 100},
			{ID: "AAPL", S0: 200},
		},
	}
	if err := Validate(snap); err == nil {
		t.Error("Validate() = nil, want error for duplicate instrument id")
	}
}

func TestValidateRejectsNonPositiveS0(t *testing.T) {
	snap := &types.Snapshot{
		Instruments: []types.Instrument{{ID: "AAPL", S0: 0}},
	}
	if err := Validate(snap); err == nil {
		t.Error("Validate() = nil, want error for s0 <= 0")
	}
}

func TestValidateRejectsDanglingEdges(t *testing.T) {
	tests := []struct {
		name string
		snap *types.Snapshot
	}{
		{
			"news_factors references unknown news",
			&types.Snapshot{NewsFactors: []types.NewsFactorEdge{{NewsID: 99, FactorID: "rates"}}},
		},
		{
			"news_factors references unknown factor",
			&types.Snapshot{
				News:        []types.NewsEvent{{ID: 1}},
				NewsFactors: []types.NewsFactorEdge{{NewsID: 1, FactorID: "missing"}},
			},
		},
		{
			"instrument_factors references unknown instrument",
			&types.Snapshot{
				Factors:           []types.MacroFactor{{ID: "rates"}},
				InstrumentFactors: []types.InstrumentFactorEdge{{InstrumentID: "missing", FactorID: "rates"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.snap); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
