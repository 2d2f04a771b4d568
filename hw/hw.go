// Package hw declares the narrow hardware interfaces the board library is
// written against. A platform binding (TinyGo machine wrappers on real
// hardware, hw/sim on the host) supplies the implementations; nothing above
// this package touches registers directly.
package hw

import (
	"errors"
	"time"

	"irbcore-go/types"
)

// ErrNoIRQ is returned by SetIRQ when the platform cannot route an
// interrupt for the pin. Callers treat the pin as not attachable.
var ErrNoIRQ = errors.New("no_irq_routing")

// Pull selects the input pull configuration.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for pin interrupts.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIOPin is one digital pin.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	// Mode reports the pin's current configuration, PinModeInvalid if it
	// cannot be resolved.
	Mode() types.PinMode
	Number() int
}

// IRQPin extends GPIOPin with edge interrupts. Handlers run in interrupt
// context: they must only set flags.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// ADC is the analog converter. Reference and channel selection are sticky;
// Convert performs one blocking conversion against the current selection.
//
// Control exposes the converter's control register as an opaque byte so
// callers can snapshot and restore it around sequences that reconfigure the
// converter. The snapshot/restore pairing is mandatory wherever it is used:
// leaving the register altered corrupts unrelated later measurements.
type ADC interface {
	Reference() types.AnalogRef
	SetReference(ref types.AnalogRef)
	SelectBandgapChannel()
	SelectPinChannel(n int)
	Convert() uint16
	SetEnabled(on bool)
	Enabled() bool
	Control() uint8
	SetControl(v uint8)
}

// Comparator is the analog comparator module; the board only ever
// snapshots, disables, and restores it around sleep.
type Comparator interface {
	SetEnabled(on bool)
	Control() uint8
	SetControl(v uint8)
}

// Watchdog drives the hardware watchdog timer in both of its roles.
type Watchdog interface {
	// ArmInterrupt arms the watchdog to fire a wake interrupt (not a
	// reset) after interval. Supported intervals are hardware-fixed; see
	// sleep.WatchdogIntervals.
	ArmInterrupt(interval time.Duration)
	Disarm()
	// ArmReset arms a hard reset after timeout. Used only on fatal
	// configuration mismatch.
	ArmReset(timeout time.Duration)
}

// IntState is an opaque saved interrupt-enable state.
type IntState uint8

// CPU covers sleep-mode control and global interrupt gating.
type CPU interface {
	DisableInterrupts() IntState
	RestoreInterrupts(s IntState)
	// SelectPowerDown picks the deepest sleep mode for the next Sleep.
	SelectPowerDown()
	// Sleep re-enables interrupts immediately before suspending the core,
	// blocks until any enabled wake event fires, and returns with
	// interrupts enabled. The enable-then-suspend step is atomic with
	// respect to interrupt delivery.
	Sleep()
	// DebuggerAttached reports whether a hardware debugger holds the CPU.
	// Sleep instructions are incompatible with the debug stub.
	DebuggerAttached() bool
	// Halt spins forever; paired with Watchdog.ArmReset for fatal errors.
	Halt()
}

// Delayer provides blocking settle delays.
type Delayer interface {
	Delay(d time.Duration)
}
