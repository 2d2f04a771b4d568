// Package sim provides an in-memory MCU implementing the hw interfaces.
// It backs the package tests and cmd/boardtest; conversion results, pin
// levels, and wake events are scripted by the caller.
package sim

import (
	"time"

	"irbcore-go/hw"
	"irbcore-go/types"
)

// MCU aggregates one simulated chip. Pins are created on demand and
// remembered by number.
type MCU struct {
	ADC   *ADC
	Comp  *Comparator
	WDT   *Watchdog
	CPU   *CPU
	Clock *Clock

	pins map[int]*Pin
}

func NewMCU() *MCU {
	return &MCU{
		ADC:   NewADC(),
		Comp:  &Comparator{control: CompEnableBit},
		WDT:   &Watchdog{},
		CPU:   &CPU{},
		Clock: &Clock{},
		pins:  map[int]*Pin{},
	}
}

// Pin returns the simulated pin with the given number, creating it if
// needed.
func (m *MCU) Pin(n int) *Pin {
	p, ok := m.pins[n]
	if !ok {
		p = &Pin{Num: n, mode: types.Input}
		m.pins[n] = p
	}
	return p
}

// ------------------------
// Pin
// ------------------------

// Pin implements hw.IRQPin. Set NoIRQ to model a pin without interrupt
// routing.
type Pin struct {
	Num   int
	NoIRQ bool

	mode  types.PinMode
	level bool

	irqEdge    hw.Edge
	irqHandler func()
}

var _ hw.IRQPin = (*Pin)(nil)

func (p *Pin) ConfigureInput(pull hw.Pull) error {
	if pull == hw.PullUp {
		p.mode = types.InputPullup
		p.level = true
	} else {
		p.mode = types.Input
	}
	return nil
}

func (p *Pin) ConfigureOutput(initial bool) error {
	p.mode = types.Output
	p.level = initial
	return nil
}

func (p *Pin) Set(level bool)      { p.level = level }
func (p *Pin) Get() bool           { return p.level }
func (p *Pin) Mode() types.PinMode { return p.mode }
func (p *Pin) Number() int         { return p.Num }

// SetLevel drives the pin externally (test harness side).
func (p *Pin) SetLevel(level bool) { p.level = level }

// ForceMode overrides the tracked mode (test harness side).
func (p *Pin) ForceMode(m types.PinMode) { p.mode = m }

func (p *Pin) SetIRQ(edge hw.Edge, handler func()) error {
	if p.NoIRQ {
		return hw.ErrNoIRQ
	}
	p.irqEdge = edge
	p.irqHandler = handler
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.irqEdge = hw.EdgeNone
	p.irqHandler = nil
	return nil
}

// IRQArmed reports whether an interrupt handler is currently attached.
func (p *Pin) IRQArmed() bool { return p.irqHandler != nil }

// TriggerIRQ fires the attached handler, as the hardware would on a
// matching edge. No-op when nothing is attached.
func (p *Pin) TriggerIRQ() {
	if p.irqHandler != nil {
		p.irqHandler()
	}
}

// ------------------------
// ADC
// ------------------------

// ADC implements hw.ADC. Conversion results come from ReadRaw; the default
// returns mid-scale.
type ADC struct {
	ref     types.AnalogRef
	bandgap bool
	channel int
	control uint8
	enabled bool

	// ReadRaw produces the next conversion result for the current
	// selection. bandgap is true when the bandgap channel is selected.
	ReadRaw func(ref types.AnalogRef, bandgap bool, channel int) uint16

	Conversions int
}

var _ hw.ADC = (*ADC)(nil)

func NewADC() *ADC {
	return &ADC{ref: types.RefSupply, enabled: true}
}

func (a *ADC) Reference() types.AnalogRef       { return a.ref }
func (a *ADC) SetReference(ref types.AnalogRef) { a.ref = ref }

func (a *ADC) SelectBandgapChannel() { a.bandgap = true }
func (a *ADC) SelectPinChannel(n int) {
	a.bandgap = false
	a.channel = n
}

func (a *ADC) Convert() uint16 {
	a.Conversions++
	if a.ReadRaw != nil {
		return a.ReadRaw(a.ref, a.bandgap, a.channel)
	}
	return 512
}

func (a *ADC) SetEnabled(on bool) { a.enabled = on }
func (a *ADC) Enabled() bool      { return a.enabled }

func (a *ADC) Control() uint8     { return a.control }
func (a *ADC) SetControl(v uint8) { a.control = v }

// ------------------------
// Comparator
// ------------------------

// CompEnableBit is the enable flag inside the simulated comparator's
// control byte. Restoring a snapshotted control byte restores the enable
// state with it, as on the real part.
const CompEnableBit uint8 = 0x80

type Comparator struct {
	control uint8
}

var _ hw.Comparator = (*Comparator)(nil)

func (c *Comparator) SetEnabled(on bool) {
	if on {
		c.control |= CompEnableBit
	} else {
		c.control &^= CompEnableBit
	}
}

func (c *Comparator) Enabled() bool      { return c.control&CompEnableBit != 0 }
func (c *Comparator) Control() uint8     { return c.control }
func (c *Comparator) SetControl(v uint8) { c.control = v }

// ------------------------
// Watchdog
// ------------------------

type Watchdog struct {
	// Armed records every ArmInterrupt interval in order.
	Armed []time.Duration
	// Active is true between ArmInterrupt and Disarm.
	Active bool
	// ResetTimeout records the last ArmReset.
	ResetTimeout time.Duration
}

var _ hw.Watchdog = (*Watchdog)(nil)

func (w *Watchdog) ArmInterrupt(interval time.Duration) {
	w.Armed = append(w.Armed, interval)
	w.Active = true
}

func (w *Watchdog) Disarm() { w.Active = false }

func (w *Watchdog) ArmReset(timeout time.Duration) { w.ResetTimeout = timeout }

// ------------------------
// CPU
// ------------------------

type CPU struct {
	IntDisabled       bool
	PowerDownSelected bool
	Debugger          bool
	Halted            bool

	SleepCount int
	// OnSleep runs during each Sleep with the 1-based sleep count; use it
	// to script wake interrupts mid-ladder.
	OnSleep func(n int)
}

var _ hw.CPU = (*CPU)(nil)

func (c *CPU) DisableInterrupts() hw.IntState {
	prev := hw.IntState(0)
	if c.IntDisabled {
		prev = 1
	}
	c.IntDisabled = true
	return prev
}

func (c *CPU) RestoreInterrupts(s hw.IntState) { c.IntDisabled = s == 1 }

func (c *CPU) SelectPowerDown() { c.PowerDownSelected = true }

func (c *CPU) Sleep() {
	// Interrupts come back on just before the core suspends.
	c.IntDisabled = false
	c.SleepCount++
	if c.OnSleep != nil {
		c.OnSleep(c.SleepCount)
	}
}

func (c *CPU) DebuggerAttached() bool { return c.Debugger }

func (c *CPU) Halt() { c.Halted = true }

// ------------------------
// Clock
// ------------------------

// Clock implements hw.Delayer by recording requested delays.
type Clock struct {
	Slept []time.Duration
}

var _ hw.Delayer = (*Clock)(nil)

func (c *Clock) Delay(d time.Duration) { c.Slept = append(c.Slept, d) }

// Total returns the sum of recorded delays.
func (c *Clock) Total() time.Duration {
	var t time.Duration
	for _, d := range c.Slept {
		t += d
	}
	return t
}
