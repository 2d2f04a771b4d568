package power

import (
	"math"

	"irbcore-go/types"
	"irbcore-go/x/mathx"
)

// Supply-rail hard limits. Outside this window a reading is numerically
// real but operationally unsafe, signalled as an infinity rather than NaN.
const (
	SupplyAbsMaxMilliVolts uint16 = 5500
	SupplyMinMilliVolts    uint16 = 2700
)

// Thresholds holds the classifier's calibration points, taken from the
// charger IC datasheet for this board's divider topology. The floating
// boundary in particular drifts with cell chemistry, so the whole set is a
// value, not a constant.
type Thresholds struct {
	// Feedback-voltage bands.
	CCLowerMilliVolts  uint16 // constant-current mode at or above this
	CCUpperMilliVolts  uint16 // feedback ceiling; above it no current flows
	CVLowerMilliVolts  uint16 // constant-voltage mode at or above this
	FloatMaxMilliVolts uint16 // below this the feedback network is idle

	// Supply-rail bands.
	FullSupplyMilliVolts  uint16 // battery reads full at or above this
	RechargeMilliVolts    uint16 // recharge floor, Full minus hysteresis
	EmptySupplyMilliVolts uint16 // battery empty below this
}

// DefaultThresholds returns the shipping calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CCLowerMilliVolts:     900,
		CCUpperMilliVolts:     1100,
		CVLowerMilliVolts:     100,
		FloatMaxMilliVolts:    15,
		FullSupplyMilliVolts:  4150,
		RechargeMilliVolts:    4000,
		EmptySupplyMilliVolts: 3400,
	}
}

// ------------------------
// Conversions
// ------------------------

// ProgMillivoltsToVolts converts a feedback reading, NaN on the sentinel.
func ProgMillivoltsToVolts(mv uint16) float32 {
	if mv == types.InvalidMilliVolts {
		return float32(math.NaN())
	}
	return float32(mv) / 1000
}

// SupplyMillivoltsToVolts converts a rail reading. The sentinel maps to
// NaN; a real value outside the safe window maps to the matching infinity,
// keeping "unsafe but measured" distinguishable from "measurement failed".
func SupplyMillivoltsToVolts(mv uint16) float32 {
	switch {
	case mv == types.InvalidMilliVolts:
		return float32(math.NaN())
	case mv > SupplyAbsMaxMilliVolts:
		return float32(math.Inf(1))
	case mv < SupplyMinMilliVolts:
		return float32(math.Inf(-1))
	}
	return float32(mv) / 1000
}

// CurrentMilliampsToAmps converts a charging-current reading, NaN on either
// sentinel.
func CurrentMilliampsToAmps(ma uint16) float32 {
	if ma == types.InvalidMilliAmps || ma == types.UnknownMilliAmps {
		return float32(math.NaN())
	}
	return float32(ma) / 1000
}

// ChargingCurrentMilliAmps derives the charger's output current from the
// feedback voltage and the programming resistor. The pin's own drive state
// dominates the electrical picture, so it is inspected first.
func (th Thresholds) ChargingCurrentMilliAmps(progMV, rOhms uint16, mode types.PinMode, level bool) uint16 {
	if progMV == types.InvalidMilliVolts || rOhms == 0 || rOhms == types.InvalidResistance {
		return types.InvalidMilliAmps
	}
	switch mode {
	case types.Output:
		if level {
			// Driven high the pin overrides the feedback network and the
			// charger stops sourcing current.
			return 0
		}
		// Driven low it parallels an unknown effective resistance.
		return types.UnknownMilliAmps
	case types.InputPullup:
		return types.UnknownMilliAmps
	case types.Input:
		// Feedback network undisturbed; fall through to the voltage math.
	default:
		return types.InvalidMilliAmps
	}
	if progMV > th.CCUpperMilliVolts || progMV < th.FloatMaxMilliVolts {
		return 0
	}
	ma := uint32(progMV) * 1000 / uint32(rOhms)
	// Zero is reserved for the charger-off cases above.
	return uint16(mathx.Max(ma, 1))
}

// ------------------------
// Classifiers
// ------------------------

// EstimateChargerState classifies the charger from one refresh's samples.
// Rules are evaluated in a fixed priority order; the bands overlap under
// measurement noise, and the order prefers an actively-charging reading
// over an idle one and reports impossible combinations as unknown.
func (th Thresholds) EstimateChargerState(currentMA, progMV, supplyMV uint16) types.ChargerState {
	if currentMA == types.InvalidMilliAmps ||
		progMV == types.InvalidMilliVolts ||
		supplyMV == types.InvalidMilliVolts {
		return types.ChargerError
	}
	if currentMA == types.UnknownMilliAmps {
		return types.ChargerUnknown
	}
	switch {
	case progMV >= th.CCLowerMilliVolts:
		if supplyMV >= th.FullSupplyMilliVolts {
			// CC mode with a full battery cannot happen.
			return types.ChargerUnknown
		}
		return types.ChargerCC
	case progMV >= th.CVLowerMilliVolts:
		if supplyMV <= th.RechargeMilliVolts {
			// CV mode implies the battery is near full.
			return types.ChargerUnknown
		}
		return types.ChargerCV
	case supplyMV >= th.RechargeMilliVolts:
		return types.ChargerFloating
	case currentMA == 0:
		return types.ChargerOff
	}
	return types.ChargerUnknown
}

// EstimateBatteryState classifies the battery from the rail and the charger
// classification, again first match wins.
func (th Thresholds) EstimateBatteryState(supplyMV uint16, charger types.ChargerState) types.BatteryState {
	switch {
	case supplyMV == types.InvalidMilliVolts || charger == types.ChargerError:
		return types.BatteryError
	case charger.Charging():
		return types.BatteryCharging
	case charger == types.ChargerFloating || supplyMV >= th.RechargeMilliVolts:
		return types.BatteryFull
	case supplyMV < th.EmptySupplyMilliVolts:
		return types.BatteryEmpty
	case charger == types.ChargerOff:
		return types.BatteryNotCharging
	}
	return types.BatteryUnknown
}
