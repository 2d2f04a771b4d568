// Package board ties the pieces together: pin roles, the persisted
// configuration, power estimation, and sleep orchestration, behind one
// explicitly constructed Board value. There is no package-level instance;
// whoever owns the hardware owns the Board.
package board

import (
	"time"

	"irbcore-go/conf"
	"irbcore-go/errcode"
	"irbcore-go/hw"
	"irbcore-go/power"
	"irbcore-go/sleep"
	"irbcore-go/types"
	"irbcore-go/x/strconvx"
)

// LibVersion identifies this library build.
const LibVersion = "1.0.0"

// Default pin assignments for the shipping board layout.
const (
	PinIREmitter = 3  // PWM-capable, drives the IR LED
	PinProg      = 15 // A1, charger feedback through the RC filter
	PinButton    = 2  // primary wake, external interrupt
	PinHostLine  = 4  // secondary wake from the host bridge
	PinStatLED   = 13 // shares the SPI clock line
)

// Pins carries the board's pin roles. The host line and button need
// interrupt routing; the rest are plain GPIO.
type Pins struct {
	IREmitter hw.GPIOPin
	Prog      hw.GPIOPin
	Button    hw.IRQPin
	HostLine  hw.IRQPin
	StatLED   hw.GPIOPin
}

// fatalResetTimeout is armed before halting on a configuration mismatch.
const fatalResetTimeout = 2 * time.Second

// Low-battery notification timing: morse "L" (dit dah dit dit) on the
// status LED.
const (
	morseDit = 150 * time.Millisecond
	morseDah = 3 * morseDit
	morseGap = morseDit
)

var lowBatteryPattern = [...]time.Duration{morseDit, morseDah, morseDit, morseDit}

// Board is the board-support object. Construct with New, then call Begin
// before anything else.
type Board struct {
	pins  Pins
	adc   hw.ADC
	comp  hw.Comparator
	wdt   hw.Watchdog
	cpu   hw.CPU
	delay hw.Delayer
	cfg   *conf.Manager

	sampler *power.Sampler
	info    *power.PowerInfo
	orch    *sleep.Orchestrator

	initialized bool
}

func New(pins Pins, adc hw.ADC, comp hw.Comparator, wdt hw.Watchdog,
	cpu hw.CPU, delay hw.Delayer, cfg *conf.Manager) (*Board, error) {
	if pins.IREmitter == nil || pins.Prog == nil || pins.Button == nil ||
		pins.HostLine == nil || pins.StatLED == nil ||
		adc == nil || comp == nil || wdt == nil || cpu == nil ||
		delay == nil || cfg == nil {
		return nil, errcode.InvalidArgument
	}
	b := &Board{
		pins:  pins,
		adc:   adc,
		comp:  comp,
		wdt:   wdt,
		cpu:   cpu,
		delay: delay,
		cfg:   cfg,
	}
	b.sampler = power.NewSampler(adc, delay, pins.IREmitter, pins.Prog, cfg)
	b.info = power.NewPowerInfo(power.DefaultThresholds())
	b.orch = sleep.New(cpu, wdt, adc, comp, pins.IREmitter, pins.Button, pins.HostLine, cfg)
	return b, nil
}

// SetThresholds replaces the estimator calibration. Call before the first
// RefreshPowerInfo; it discards any cached classification.
func (b *Board) SetThresholds(th power.Thresholds) {
	b.info = power.NewPowerInfo(th)
}

// Begin loads the configuration and brings the pins to their resting
// states. A hardware-version mismatch is fatal: the library's thresholds
// and pin roles are calibrated per revision, and running against the
// wrong board risks damaging the charger circuit, so Begin arms a short
// watchdog reset and halts instead of degrading.
func (b *Board) Begin() error {
	if err := b.cfg.Load(); err != nil {
		return err
	}
	if !b.cfg.VersionMatches() {
		b.wdt.ArmReset(fatalResetTimeout)
		b.cpu.Halt()
		return errcode.HWVersionMismatch
	}

	b.pins.IREmitter.ConfigureOutput(false)
	b.pins.Prog.ConfigureInput(hw.PullNone)
	b.pins.Button.ConfigureInput(hw.PullUp)
	b.pins.HostLine.ConfigureInput(hw.PullNone)
	b.pins.StatLED.ConfigureOutput(false)

	b.cfg.SetSerialDebugger(b.cpu.DebuggerAttached())
	b.cfg.IncrementBootCount()
	if b.cfg.Dirty() {
		if err := b.cfg.Save(); err != nil {
			return err
		}
	}
	if b.cfg.ProgResistorOhms() == types.InvalidResistance {
		return errcode.ProgResistorInvalid
	}
	b.initialized = true
	return nil
}

// Initialized reports whether Begin has completed successfully.
func (b *Board) Initialized() bool { return b.initialized }

// ------------------------
// Power estimation
// ------------------------

// RefreshPowerInfo takes a fresh set of samples and re-derives the charger
// and battery classifications. When the battery reads empty with no charge
// current flowing, the status LED flashes a morse "L" as a last-gasp
// warning. Returns the cache and whether every sample came back valid.
func (b *Board) RefreshPowerInfo(samples uint8) (*power.PowerInfo, bool) {
	if !b.initialized {
		return nil, false
	}
	ok := b.info.Update(b.sampler, b.cfg.ProgResistorOhms(), samples)
	if ok && b.info.BatteryState() == types.BatteryEmpty && !b.info.ChargerState().Charging() {
		b.flashLowBattery()
	}
	return b.info, ok
}

// PowerInfo returns the cached estimate from the last refresh.
func (b *Board) PowerInfo() *power.PowerInfo { return b.info }

func (b *Board) flashLowBattery() {
	led := b.pins.StatLED
	prevMode := led.Mode()
	prevLevel := led.Get()
	led.ConfigureOutput(false)
	for i, on := range lowBatteryPattern {
		if i > 0 {
			b.delay.Delay(morseGap)
		}
		led.Set(true)
		b.delay.Delay(on)
		led.Set(false)
	}
	switch prevMode {
	case types.Output:
		led.ConfigureOutput(prevLevel)
	case types.InputPullup:
		led.ConfigureInput(hw.PullUp)
	case types.Input:
		led.ConfigureInput(hw.PullNone)
	}
}

// ------------------------
// Sleep / wake
// ------------------------

// PowerDown suspends the board for d (sleep.SleepForever for unbounded),
// waking early on the requested sources. No-op before Begin.
func (b *Board) PowerDown(d time.Duration, src types.WakeSource) {
	if !b.initialized {
		return
	}
	b.orch.PowerDown(d, src)
}

// OnButtonWake registers fn to run, in normal context, after a power-down
// that was ended by the wake button.
func (b *Board) OnButtonWake(fn func()) { b.orch.OnButtonWake = fn }

// OnHostWake registers fn to run after a power-down ended by the host line.
func (b *Board) OnHostWake(fn func()) { b.orch.OnHostWake = fn }

func (b *Board) ButtonWake() bool     { return b.orch.ButtonWake() }
func (b *Board) HostWake() bool       { return b.orch.HostWake() }
func (b *Board) TakeButtonWake() bool { return b.orch.TakeButtonWake() }
func (b *Board) TakeHostWake() bool   { return b.orch.TakeHostWake() }
func (b *Board) ClearWakeFlags()      { b.orch.ClearWakeFlags() }

// ------------------------
// Configuration surface
// ------------------------

// Config exposes the persisted-configuration manager for accessors not
// wrapped here.
func (b *Board) Config() *conf.Manager { return b.cfg }

func (b *Board) HardwareVersion() conf.Version { return b.cfg.Data().HWVersion }
func (b *Board) BootCount() uint32             { return b.cfg.BootCount() }
func (b *Board) ProgResistorOhms() uint16      { return b.cfg.ProgResistorOhms() }
func (b *Board) BandgapMilliVolts() uint16     { return b.cfg.BandgapMilliVolts() }
func (b *Board) SleepAllowed() bool            { return b.cfg.SleepAllowed() }
func (b *Board) HostWakeAllowed() bool         { return b.cfg.HostWakeAllowed() }
func (b *Board) StatLEDBrightness() uint8      { return b.cfg.StatLEDBrightness() }

// SetBandgapMilliVolts updates the reference calibration, optionally
// persisting it immediately.
func (b *Board) SetBandgapMilliVolts(mv uint16, persist bool) error {
	if err := b.cfg.SetBandgapMilliVolts(mv); err != nil {
		return err
	}
	if persist {
		return b.cfg.Save()
	}
	return nil
}

// SetProgResistorOhms updates the feedback-resistor calibration,
// optionally persisting it immediately.
func (b *Board) SetProgResistorOhms(ohms uint16, persist bool) error {
	if err := b.cfg.SetProgResistorOhms(ohms); err != nil {
		return err
	}
	if persist {
		return b.cfg.Save()
	}
	return nil
}

// USBSerial composes the identity string the USB bridge reports:
// IRB-V<maj><min>-<year><serial>-<factorytag>.
func (b *Board) USBSerial() string {
	v := b.cfg.Data().HWVersion
	sn := b.cfg.BoardSerial()
	padded := "0000"
	if sn != conf.InvalidBoardSerial {
		padded = pad4(sn)
	}
	return "IRB-V" + strconvx.Itoa(int(v.Major)) + strconvx.Itoa(int(v.Minor)) +
		"-" + strconvx.Itoa(int(b.cfg.ManufactureYear())) + padded +
		"-" + b.cfg.FactorySerial()
}

func pad4(v uint16) string {
	s := strconvx.Itoa(int(v))
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
