// Package power turns noisy analog samples into charger and battery state:
// an averaging Sampler over the hw interfaces, pure threshold classifiers,
// and a PowerInfo cache refreshed on demand.
package power

import (
	"time"

	"irbcore-go/errcode"
	"irbcore-go/hw"
	"irbcore-go/types"
	"irbcore-go/x/mathx"
)

const (
	adcCounts = 1024
	adcMax    = 1023

	// Bandgap conversions at or below this raw code imply a rail above any
	// voltage the board can physically see; treat them as failed reads.
	bandgapRawFloor = 160

	// Reference multiplexer settle time after switching, and the spacing
	// between averaged conversions.
	settleDelay = 5 * time.Millisecond
	sampleDelay = 5 * time.Millisecond

	// Acceptance window for the rail when it is pressed into service as
	// the conversion reference. 6000 mV is the absolute-maximum rating.
	railRefMinMilliVolts = 2700
	railRefMaxMilliVolts = 6000
)

// Calibration supplies the measured bandgap reference voltage. conf.Manager
// satisfies it.
type Calibration interface {
	BandgapMilliVolts() uint16
}

// Sampler owns the analog conversions. It is careful to leave the converter,
// its reference selection, and the feedback pin exactly as it found them.
type Sampler struct {
	adc     hw.ADC
	delay   hw.Delayer
	emitter hw.GPIOPin
	prog    hw.GPIOPin
	cal     Calibration
}

func NewSampler(adc hw.ADC, delay hw.Delayer, emitter, prog hw.GPIOPin, cal Calibration) *Sampler {
	return &Sampler{adc: adc, delay: delay, emitter: emitter, prog: prog, cal: cal}
}

// ProgPinState reports the feedback pin's current mode and level. Callers
// snapshot this before sampling; SampleProgRaw reconfigures the pin while it
// runs.
func (s *Sampler) ProgPinState() (types.PinMode, bool) {
	return s.prog.Mode(), s.prog.Get()
}

// SampleBandgapRaw converts the internal bandgap against the supply-rail
// reference and returns the averaged raw code. The IR emitter is forced low
// first so its drive current cannot disturb the rail mid-conversion.
func (s *Sampler) SampleBandgapRaw(samples uint8) (uint16, error) {
	if samples == 0 {
		return 0, errcode.InvalidArgument
	}
	s.emitter.Set(false)

	prevCtl := s.adc.Control()
	prevRef := s.adc.Reference()
	s.adc.SetReference(types.RefSupply)
	s.adc.SelectBandgapChannel()
	raw := s.average(samples)

	s.adc.SetControl(prevCtl)
	if prevRef != types.RefSupply {
		s.adc.SetReference(prevRef)
	}
	return raw, nil
}

// SampleProgRaw converts the charger-feedback pin against ref. When the
// 1.1 V reference saturates, the conversion is repeated against the supply
// rail; the reference actually used is returned so the caller can scale the
// code. The pin is forced to a plain input for the duration and restored.
func (s *Sampler) SampleProgRaw(samples uint8, ref types.AnalogRef) (uint16, types.AnalogRef, error) {
	if samples == 0 || (ref != types.RefSupply && ref != types.RefBandgap1V1) {
		return 0, types.RefInvalid, errcode.InvalidArgument
	}
	prevMode := s.prog.Mode()
	prevLevel := s.prog.Get()
	s.prog.ConfigureInput(hw.PullNone)

	prevCtl := s.adc.Control()
	prevRef := s.adc.Reference()

	s.adc.SetReference(ref)
	s.adc.SelectPinChannel(s.prog.Number())
	raw := s.average(samples)
	used := ref
	if ref == types.RefBandgap1V1 && raw >= adcMax {
		// Feedback voltage exceeds the 1.1 V full scale.
		s.adc.SetReference(types.RefSupply)
		s.adc.SelectPinChannel(s.prog.Number())
		raw = s.average(samples)
		used = types.RefSupply
	}

	s.adc.SetControl(prevCtl)
	if prevRef != used {
		s.adc.SetReference(prevRef)
	}
	restorePin(s.prog, prevMode, prevLevel)
	return raw, used, nil
}

// average runs one throwaway conversion, waits out the reference settle,
// then returns a single code or the round-half-up mean of samples codes.
func (s *Sampler) average(samples uint8) uint16 {
	_ = s.adc.Convert()
	s.delay.Delay(settleDelay)
	if samples == 1 {
		return s.adc.Convert()
	}
	var sum uint32
	for i := uint8(0); i < samples; i++ {
		sum += uint32(s.adc.Convert())
		if i != samples-1 {
			s.delay.Delay(sampleDelay)
		}
	}
	return uint16(mathx.RoundDiv(sum, uint32(samples)))
}

// SupplyMilliVolts measures the supply rail via the bandgap ratio.
func (s *Sampler) SupplyMilliVolts(samples uint8) uint16 {
	raw, err := s.SampleBandgapRaw(samples)
	if err != nil {
		return types.InvalidMilliVolts
	}
	return SupplyFromBandgapRaw(raw, s.cal.BandgapMilliVolts())
}

// SupplyFromBandgapRaw back-calculates the rail from a bandgap conversion:
// raw/1024 == bandgapMV/railMV, solved for railMV with rounding.
func SupplyFromBandgapRaw(raw, bandgapMV uint16) uint16 {
	if raw <= bandgapRawFloor || raw > adcMax {
		return types.InvalidMilliVolts
	}
	return uint16((adcCounts*uint32(bandgapMV) + uint32(raw)/2) / uint32(raw))
}

// ProgMilliVolts measures the charger-feedback voltage. The 1.1 V bandgap
// reference is preferred for resolution; on saturation the rail takes over
// as reference and is itself measured and sanity-checked first.
func (s *Sampler) ProgMilliVolts(samples uint8) uint16 {
	raw, used, err := s.SampleProgRaw(samples, types.RefBandgap1V1)
	if err != nil {
		return types.InvalidMilliVolts
	}
	var refMV uint16
	switch used {
	case types.RefBandgap1V1:
		refMV = s.cal.BandgapMilliVolts()
	case types.RefSupply:
		rail := s.SupplyMilliVolts(samples)
		if rail == types.InvalidMilliVolts ||
			!mathx.Between(rail, uint16(railRefMinMilliVolts), uint16(railRefMaxMilliVolts)) {
			return types.InvalidMilliVolts
		}
		refMV = rail
	default:
		return types.InvalidMilliVolts
	}
	return uint16(mathx.RoundDiv(uint32(raw)*uint32(refMV), uint32(adcCounts)))
}

func restorePin(p hw.GPIOPin, mode types.PinMode, level bool) {
	switch mode {
	case types.Output:
		p.ConfigureOutput(level)
	case types.InputPullup:
		p.ConfigureInput(hw.PullUp)
	default:
		p.ConfigureInput(hw.PullNone)
	}
}
