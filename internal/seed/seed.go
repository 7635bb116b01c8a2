// Package seed loads the startup snapshot of instruments, macro factors,
// news events, and their relations from a JSON file. The snapshot is read
// exactly once at process start; nothing in the core writes it back.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"tradesim/pkg/types"
)

// Load reads a types.Snapshot from the given JSON file path.
func Load(path string) (*types.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed snapshot: %w", err)
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal seed snapshot: %w", err)
	}
	if err := Validate(&snap); err != nil {
		return nil, fmt.Errorf("invalid seed snapshot: %w", err)
	}
	return &snap, nil
}

// Validate checks basic shape constraints on a loaded snapshot: unique
// instrument and factor IDs, positive initial prices, and edges that
// reference IDs present in the snapshot.
func Validate(snap *types.Snapshot) error {
	instrumentIDs := make(map[string]bool, len(snap.Instruments))
	for _, inst := range snap.Instruments {
		if inst.ID == "" {
			return fmt.Errorf("instrument with empty id")
		}
		if inst.S0 <= 0 {
			return fmt.Errorf("instrument %s: s0 must be > 0", inst.ID)
		}
		if instrumentIDs[inst.ID] {
			return fmt.Errorf("duplicate instrument id %s", inst.ID)
		}
		instrumentIDs[inst.ID] = true
	}

	factorIDs := make(map[string]bool, len(snap.Factors))
	for _, f := range snap.Factors {
		if f.ID == "" {
			return fmt.Errorf("factor with empty id")
		}
		if factorIDs[f.ID] {
			return fmt.Errorf("duplicate factor id %s", f.ID)
		}
		factorIDs[f.ID] = true
	}

	newsIDs := make(map[int]bool, len(snap.News))
	for _, n := range snap.News {
		if newsIDs[n.ID] {
			return fmt.Errorf("duplicate news id %d", n.ID)
		}
		newsIDs[n.ID] = true
	}

	for _, e := range snap.NewsFactors {
		if !newsIDs[e.NewsID] {
			return fmt.Errorf("news_factors edge references unknown news id %d", e.NewsID)
		}
		if !factorIDs[e.FactorID] {
			return fmt.Errorf("news_factors edge references unknown factor id %s", e.FactorID)
		}
	}
	for _, e := range snap.InstrumentFactors {
		if !instrumentIDs[e.InstrumentID] {
			return fmt.Errorf("instrument_factors edge references unknown instrument id %s", e.InstrumentID)
		}
		if !factorIDs[e.FactorID] {
			return fmt.Errorf("instrument_factors edge references unknown factor id %s", e.FactorID)
		}
	}

	return nil
}
