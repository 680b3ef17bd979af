// internal/fees/units.go
package fees

import "math"

const (
	// MaxUnitLimit is the per-transaction compute ceiling, used for the sizing pass.
	MaxUnitLimit uint32 = 1_400_000
	// UnitMargin pads simulated consumption before it becomes the limit.
	UnitMargin = 1.2
	// MinUnitLimit keeps a limit usable when simulation reports almost nothing.
	MinUnitLimit uint32 = 1_000
)

// UnitsFromSimulation turns simulated consumption into a unit limit.
func UnitsFromSimulation(consumed uint64) uint32 {
	units := math.Ceil(float64(consumed) * UnitMargin)
	switch {
	case units >= float64(MaxUnitLimit):
		return MaxUnitLimit
	case units < float64(MinUnitLimit):
		return MinUnitLimit
	}
	return uint32(units)
}
