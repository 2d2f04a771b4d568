package power

import "irbcore-go/types"

// PowerInfo caches the latest refresh. Accessors are pure reads; nothing
// changes between Update calls.
type PowerInfo struct {
	th Thresholds

	reading types.PowerReading
	charger types.ChargerState
	battery types.BatteryState
	valid   bool
}

func NewPowerInfo(th Thresholds) *PowerInfo {
	return &PowerInfo{
		th:      th,
		charger: types.ChargerUnknown,
		battery: types.BatteryUnknown,
		reading: types.PowerReading{
			SupplyMilliVolts:  types.InvalidMilliVolts,
			ProgMilliVolts:    types.InvalidMilliVolts,
			ProgPinMode:       types.PinModeInvalid,
			ChargingMilliAmps: types.InvalidMilliAmps,
		},
	}
}

// Update takes a fresh set of samples and re-derives both classifications.
// It reports true only when every sampled field came back valid; on a
// partial failure the raw reading is still stored but the previous
// classifications are kept.
func (p *PowerInfo) Update(s *Sampler, rOhms uint16, samples uint8) bool {
	if s == nil || samples == 0 {
		return false
	}

	mode, level := s.ProgPinState()
	r := types.PowerReading{
		SupplyMilliVolts: s.SupplyMilliVolts(samples),
		ProgMilliVolts:   s.ProgMilliVolts(samples),
		ProgPinMode:      mode,
		ProgPinLevel:     level,
	}
	r.ChargingMilliAmps = p.th.ChargingCurrentMilliAmps(r.ProgMilliVolts, rOhms, mode, level)

	p.reading = r
	if !r.Valid() {
		p.valid = false
		return false
	}
	p.charger = p.th.EstimateChargerState(r.ChargingMilliAmps, r.ProgMilliVolts, r.SupplyMilliVolts)
	p.battery = p.th.EstimateBatteryState(r.SupplyMilliVolts, p.charger)
	p.valid = true
	return true
}

// Reading returns the raw samples from the last Update.
func (p *PowerInfo) Reading() types.PowerReading { return p.reading }

// Valid reports whether the last Update produced a fully valid reading.
func (p *PowerInfo) Valid() bool { return p.valid }

func (p *PowerInfo) ChargerState() types.ChargerState { return p.charger }
func (p *PowerInfo) BatteryState() types.BatteryState { return p.battery }

// Convenience float views of the cached reading.
func (p *PowerInfo) SupplyVolts() float32 {
	return SupplyMillivoltsToVolts(p.reading.SupplyMilliVolts)
}
func (p *PowerInfo) ProgVolts() float32 {
	return ProgMillivoltsToVolts(p.reading.ProgMilliVolts)
}
func (p *PowerInfo) ChargingAmps() float32 {
	return CurrentMilliampsToAmps(p.reading.ChargingMilliAmps)
}
