package board

import (
	"testing"
	"time"

	"irbcore-go/conf"
	"irbcore-go/errcode"
	"irbcore-go/hw/sim"
	"irbcore-go/types"
)

func seedData() conf.Data {
	d := conf.Data{
		HWVersion:             conf.CurrentHWVersion,
		StatLEDBrightness:     128,
		ProgResistorOhms:      5100,
		SleepAllowed:          true,
		HostWakeAllowed:       true,
		BootCountEnabled:      true,
		ManufactureMonth:      7,
		ManufactureYearOffset: 4,
		BootCount:             321,
		BoardSerial:           42,
	}
	copy(d.FactorySerial[:], "AB12CD34")
	return d
}

func seedStore(d conf.Data) *conf.MemStore {
	st := conf.NewMemStore()
	img := d.Pack()
	st.Seed(conf.DataAddr, img[:])
	return st
}

func newTestBoard(t *testing.T, m *sim.MCU, st conf.Store) (*Board, *conf.Manager) {
	t.Helper()
	cfg := conf.NewManager(st)
	pins := Pins{
		IREmitter: m.Pin(PinIREmitter),
		Prog:      m.Pin(PinProg),
		Button:    m.Pin(PinButton),
		HostLine:  m.Pin(PinHostLine),
		StatLED:   m.Pin(PinStatLED),
	}
	b, err := New(pins, m.ADC, m.Comp, m.WDT, m.CPU, m.Clock, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, cfg
}

func TestBeginHappyPath(t *testing.T) {
	m := sim.NewMCU()
	st := seedStore(seedData())
	b, cfg := newTestBoard(t, m, st)

	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !b.Initialized() {
		t.Fatal("board should be initialized")
	}
	if m.Pin(PinIREmitter).Mode() != types.Output || m.Pin(PinIREmitter).Get() {
		t.Fatal("emitter should rest as a low output")
	}
	if m.Pin(PinButton).Mode() != types.InputPullup {
		t.Fatal("button should have its pull-up enabled")
	}
	if m.Pin(PinStatLED).Mode() != types.Output || m.Pin(PinStatLED).Get() {
		t.Fatal("status LED should rest low")
	}
	if cfg.BootCount() != 322 {
		t.Fatalf("boot count = %d, want incremented", cfg.BootCount())
	}

	// The incremented count must have been persisted.
	reload := conf.NewManager(st)
	if err := reload.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reload.BootCount() != 322 {
		t.Fatalf("persisted boot count = %d", reload.BootCount())
	}
}

func TestBeginVersionMismatchIsFatal(t *testing.T) {
	m := sim.NewMCU()
	d := seedData()
	d.HWVersion = conf.Version{Major: 0, Minor: 1}
	b, _ := newTestBoard(t, m, seedStore(d))

	err := b.Begin()
	if errcode.Of(err) != errcode.HWVersionMismatch {
		t.Fatalf("err = %v, want hw_version_mismatch", err)
	}
	if m.WDT.ResetTimeout != 2*time.Second {
		t.Fatalf("reset timeout = %v, want 2 s armed", m.WDT.ResetTimeout)
	}
	if !m.CPU.Halted {
		t.Fatal("mismatch must halt, not limp on")
	}
	if b.Initialized() {
		t.Fatal("board must not report initialized")
	}
}

func TestBeginRejectsInvalidProgResistor(t *testing.T) {
	m := sim.NewMCU()
	d := seedData()
	d.ProgResistorOhms = 0
	b, _ := newTestBoard(t, m, seedStore(d))

	if err := b.Begin(); errcode.Of(err) != errcode.ProgResistorInvalid {
		t.Fatalf("err = %v, want prog_resistor_invalid", err)
	}
}

func TestRefreshRequiresBegin(t *testing.T) {
	m := sim.NewMCU()
	b, _ := newTestBoard(t, m, seedStore(seedData()))
	if info, ok := b.RefreshPowerInfo(1); info != nil || ok {
		t.Fatal("refresh before Begin must be a no-op")
	}
	b.PowerDown(time.Second, types.WakeButton)
	if m.CPU.SleepCount != 0 {
		t.Fatal("power-down before Begin must be a no-op")
	}
}

func TestRefreshLowBatteryNotifies(t *testing.T) {
	m := sim.NewMCU()
	b, _ := newTestBoard(t, m, seedStore(seedData()))
	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Rail 3200 mV (bandgap raw 352), feedback 10 mV (raw 9): battery
	// empty with the charger off.
	m.ADC.ReadRaw = func(ref types.AnalogRef, bandgap bool, channel int) uint16 {
		if bandgap {
			return 352
		}
		return 9
	}
	info, ok := b.RefreshPowerInfo(1)
	if !ok {
		t.Fatalf("refresh failed; reading %+v", info.Reading())
	}
	if info.ChargerState() != types.ChargerOff || info.BatteryState() != types.BatteryEmpty {
		t.Fatalf("states %v/%v", info.ChargerState(), info.BatteryState())
	}

	// The morse "L" ran on the LED: one dah among the recorded delays.
	sawDah := false
	for _, d := range m.Clock.Slept {
		if d == morseDah {
			sawDah = true
		}
	}
	if !sawDah {
		t.Fatal("low-battery notification did not flash")
	}
	if m.Pin(PinStatLED).Mode() != types.Output || m.Pin(PinStatLED).Get() {
		t.Fatal("LED mode/level not restored after the flash")
	}
}

func TestRefreshHealthyBatteryDoesNotNotify(t *testing.T) {
	m := sim.NewMCU()
	b, _ := newTestBoard(t, m, seedStore(seedData()))
	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Rail 3705 mV, feedback 950 mV: charging normally.
	m.ADC.ReadRaw = func(ref types.AnalogRef, bandgap bool, channel int) uint16 {
		if bandgap {
			return 304
		}
		return 884
	}
	if _, ok := b.RefreshPowerInfo(1); !ok {
		t.Fatal("refresh failed")
	}
	for _, d := range m.Clock.Slept {
		if d == morseDah {
			t.Fatal("notification flashed for a healthy battery")
		}
	}
	if b.PowerInfo().BatteryState() != types.BatteryCharging {
		t.Fatalf("battery = %v", b.PowerInfo().BatteryState())
	}
}

func TestPowerDownDelegates(t *testing.T) {
	m := sim.NewMCU()
	b, _ := newTestBoard(t, m, seedStore(seedData()))
	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	fired := 0
	b.OnButtonWake(func() { fired++ })
	m.CPU.OnSleep = func(n int) { m.Pin(PinButton).TriggerIRQ() }

	b.PowerDown(8*time.Second, types.WakeButton)
	if fired != 1 {
		t.Fatalf("button callback fired %d times", fired)
	}
	if !b.TakeButtonWake() || b.ButtonWake() {
		t.Fatal("wake flag surface broken")
	}
}

func TestUSBSerial(t *testing.T) {
	m := sim.NewMCU()
	b, _ := newTestBoard(t, m, seedStore(seedData()))
	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := b.USBSerial(); got != "IRB-V02-20240042-AB12CD34" {
		t.Fatalf("USBSerial = %q", got)
	}
}

func TestSetCalibrationPersists(t *testing.T) {
	m := sim.NewMCU()
	st := seedStore(seedData())
	b, _ := newTestBoard(t, m, st)
	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := b.SetBandgapMilliVolts(1150, true); err != nil {
		t.Fatalf("SetBandgapMilliVolts: %v", err)
	}
	if err := b.SetProgResistorOhms(4990, true); err != nil {
		t.Fatalf("SetProgResistorOhms: %v", err)
	}

	reload := conf.NewManager(st)
	if err := reload.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reload.BandgapMilliVolts() != 1150 || reload.ProgResistorOhms() != 4990 {
		t.Fatalf("persisted calibration: bg=%d r=%d",
			reload.BandgapMilliVolts(), reload.ProgResistorOhms())
	}
}
