// Package sleep suspends the CPU for a requested duration, tiling it over
// the watchdog timer's fixed intervals, with button and host-line wake
// sources. The orchestrator's contract is strict: every peripheral it
// touches is bit-for-bit restored before the call returns, and user
// callbacks never run in interrupt context.
package sleep

import (
	"sync/atomic"
	"time"

	"irbcore-go/hw"
	"irbcore-go/types"
)

// SleepForever requests an unbounded sleep ended only by a wake interrupt.
const SleepForever time.Duration = 0

// WatchdogIntervals are the timer's hardware-fixed options, longest first.
// The ladder picks the largest entry not exceeding the remaining time.
var WatchdogIntervals = [...]time.Duration{
	8000 * time.Millisecond,
	4000 * time.Millisecond,
	2000 * time.Millisecond,
	1000 * time.Millisecond,
	500 * time.Millisecond,
	250 * time.Millisecond,
	125 * time.Millisecond,
	64 * time.Millisecond,
	32 * time.Millisecond,
	16 * time.Millisecond,
}

// NextInterval picks the ladder step for the remaining time. A remainder
// shorter than the smallest interval still sleeps one smallest step; the
// caller floors the remainder at zero.
func NextInterval(remaining time.Duration) time.Duration {
	for _, iv := range WatchdogIntervals {
		if iv <= remaining {
			return iv
		}
	}
	return WatchdogIntervals[len(WatchdogIntervals)-1]
}

// Permissions gates sleeping and the host wake line. conf.Manager
// satisfies it.
type Permissions interface {
	SleepAllowed() bool
	HostWakeAllowed() bool
}

// Orchestrator owns the power-down sequence and the wake flags shared with
// the pin ISRs.
type Orchestrator struct {
	cpu     hw.CPU
	wdt     hw.Watchdog
	adc     hw.ADC
	comp    hw.Comparator
	emitter hw.GPIOPin
	button  hw.IRQPin
	host    hw.IRQPin
	perms   Permissions

	// Wake callbacks, dispatched after peripheral restore in normal
	// context. Optional.
	OnButtonWake func()
	OnHostWake   func()

	// Internal flags gate callback dispatch and end the ladder early; they
	// are consumed by PowerDown itself. External flags persist for the
	// application until explicitly taken or cleared.
	buttonFired atomic.Bool
	hostFired   atomic.Bool
	buttonWake  atomic.Bool
	hostWake    atomic.Bool
}

func New(cpu hw.CPU, wdt hw.Watchdog, adc hw.ADC, comp hw.Comparator,
	emitter hw.GPIOPin, button, host hw.IRQPin, perms Permissions) *Orchestrator {
	return &Orchestrator{
		cpu:     cpu,
		wdt:     wdt,
		adc:     adc,
		comp:    comp,
		emitter: emitter,
		button:  button,
		host:    host,
		perms:   perms,
	}
}

// ISR trampolines. Flag stores only; dispatch happens in PowerDown.

func (o *Orchestrator) buttonISR() {
	o.buttonFired.Store(true)
	o.buttonWake.Store(true)
}

func (o *Orchestrator) hostISR() {
	o.hostFired.Store(true)
	o.hostWake.Store(true)
}

// ButtonWake reports whether a button wake has occurred since the flags
// were last cleared.
func (o *Orchestrator) ButtonWake() bool { return o.buttonWake.Load() }

// HostWake reports whether a host-line wake has occurred since the flags
// were last cleared.
func (o *Orchestrator) HostWake() bool { return o.hostWake.Load() }

// TakeButtonWake returns and clears the button wake flag.
func (o *Orchestrator) TakeButtonWake() bool { return o.buttonWake.Swap(false) }

// TakeHostWake returns and clears the host-line wake flag.
func (o *Orchestrator) TakeHostWake() bool { return o.hostWake.Swap(false) }

// ClearWakeFlags clears both externally visible wake flags.
func (o *Orchestrator) ClearWakeFlags() {
	o.buttonWake.Store(false)
	o.hostWake.Store(false)
}

// PowerDown suspends the CPU for d, or until a requested wake source
// fires; d == SleepForever sleeps until a wake interrupt alone. The call
// is a no-op when sleeping is administratively disallowed or a debugger
// holds the CPU.
func (o *Orchestrator) PowerDown(d time.Duration, src types.WakeSource) {
	if !o.perms.SleepAllowed() || o.cpu.DebuggerAttached() {
		return
	}

	// Preparing: quiesce the emitter and the analog blocks, remembering
	// everything that gets touched.
	o.emitter.Set(false)
	adcCtl := o.adc.Control()
	compCtl := o.comp.Control()
	prevRef := o.adc.Reference()
	o.adc.SetReference(types.RefExternal)
	o.adc.SetEnabled(false)
	o.comp.SetEnabled(false)
	o.cpu.SelectPowerDown()

	// Arm wake sources with interrupts off so an edge cannot slip between
	// arming and the first sleep.
	ints := o.cpu.DisableInterrupts()

	buttonArmed := false
	if src.IncludesButton() {
		if err := o.button.SetIRQ(hw.EdgeFalling, o.buttonISR); err == nil {
			buttonArmed = true
		}
	}
	hostArmed := false
	var hostMode types.PinMode
	var hostLevel bool
	if src.IncludesHostLine() && o.perms.HostWakeAllowed() {
		hostMode = o.host.Mode()
		hostLevel = o.host.Get()
		// The line floats when the host side is unpowered; the pull-up
		// keeps it from chattering the edge interrupt all through the
		// sleep.
		o.host.ConfigureInput(hw.PullUp)
		// A platform without interrupt routing for the line is treated as
		// simply not attached.
		if err := o.host.SetIRQ(hw.EdgeBoth, o.hostISR); err == nil {
			hostArmed = true
		} else {
			restorePinState(o.host, hostMode, hostLevel)
		}
	}

	// Waiting. Sleep re-enables interrupts atomically with the suspend.
	if d == SleepForever {
		o.cpu.Sleep()
		o.cpu.DisableInterrupts()
	} else {
		remaining := d
		for remaining > 0 {
			iv := NextInterval(remaining)
			o.wdt.ArmInterrupt(iv)
			o.cpu.Sleep()
			// Flag check and re-arm must not race the next edge.
			o.cpu.DisableInterrupts()
			o.wdt.Disarm()
			if o.buttonFired.Load() || o.hostFired.Load() {
				// A pin wake outranks the timer; the rest of the request
				// counts as elapsed.
				remaining = 0
			} else if remaining > iv {
				remaining -= iv
			} else {
				remaining = 0
			}
		}
	}

	// Restoring, still with interrupts off.
	if buttonArmed {
		o.button.ClearIRQ()
	}
	if hostArmed {
		o.host.ClearIRQ()
		restorePinState(o.host, hostMode, hostLevel)
	}
	o.adc.SetEnabled(true)
	o.adc.SetControl(adcCtl)
	o.comp.SetControl(compCtl)
	if prevRef != types.RefExternal {
		o.adc.SetReference(prevRef)
	}
	o.cpu.RestoreInterrupts(ints)

	// Callback dispatch in normal context. Internal flags are consumed
	// here whether or not a callback is registered.
	if o.buttonFired.Swap(false) && o.OnButtonWake != nil {
		o.OnButtonWake()
	}
	if o.hostFired.Swap(false) && o.OnHostWake != nil {
		o.OnHostWake()
	}
}

func restorePinState(p hw.GPIOPin, mode types.PinMode, level bool) {
	switch mode {
	case types.Output:
		p.ConfigureOutput(level)
	case types.InputPullup:
		p.ConfigureInput(hw.PullUp)
	default:
		p.ConfigureInput(hw.PullNone)
	}
}
