// internal/fees/priority.go
package fees

import (
	"fmt"

	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

type PriorityLevel string

const (
	PriorityNone    PriorityLevel = ""
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
	// PriorityAuto prices units from recent prioritization fees.
	PriorityAuto PriorityLevel = "auto"
)

var profiles = map[PriorityLevel]instruction.ComputeBudget{
	PriorityLow: {
		UnitLimit:              200_000,
		UnitPriceMicroLamports: 1_000,
	},
	PriorityMedium: {
		UnitLimit:              200_000,
		UnitPriceMicroLamports: 5_000, // как в исходном priority-скрипте
	},
	PriorityHigh: {
		UnitLimit:              400_000,
		UnitPriceMicroLamports: 10_000,
	},
	PriorityExtreme: {
		UnitLimit:              800_000,
		UnitPriceMicroLamports: 50_000,
	},
}

// Profile returns the compute budget of a fixed priority level. PriorityNone
// yields nil, so no budget instructions are added.
func Profile(level PriorityLevel) (*instruction.ComputeBudget, error) {
	if level == PriorityNone {
		return nil, nil
	}
	p, ok := profiles[level]
	if !ok {
		return nil, fmt.Errorf("unknown priority level: %s", level)
	}
	return &p, nil
}

// ParseLevel validates a level name from flags or config.
func ParseLevel(s string) (PriorityLevel, error) {
	level := PriorityLevel(s)
	if level == PriorityNone || level == PriorityAuto {
		return level, nil
	}
	if _, ok := profiles[level]; !ok {
		return PriorityNone, fmt.Errorf("unknown priority level: %s", s)
	}
	return level, nil
}
