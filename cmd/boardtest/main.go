// cmd/boardtest/main.go
//
// Host-side exercise of the board library on the simulated MCU: provisions
// a configuration image, runs the init sequence, refreshes the power
// estimate against scripted rail scenarios, and demonstrates a timed
// power-down with a button wake.
package main

import (
	"time"

	"irbcore-go/board"
	"irbcore-go/conf"
	"irbcore-go/hw/sim"
	"irbcore-go/types"
)

// ---------- Configuration ----------

const (
	refreshSamples = 4
	napDuration    = 24 * time.Second
)

// Scripted rail scenarios: bandgap raw code sets the supply reading,
// feedback raw code the charger feedback reading.
var scenarios = []struct {
	name     string
	bandgap  uint16
	feedback uint16
}{
	{"charging_cc", 304, 884}, // 3705 mV rail, 950 mV feedback
	{"topped_off", 270, 46},   // 4172 mV rail, 49 mV feedback
	{"running_down", 312, 9},  // 3610 mV rail, 10 mV feedback
	{"nearly_flat", 352, 9},   // 3200 mV rail, 10 mV feedback
}

func provision(st *conf.MemStore) error {
	m := conf.NewManager(st)
	d := conf.Data{
		HWVersion:        conf.CurrentHWVersion,
		ProgResistorOhms: 5100,
		SleepAllowed:     true,
		HostWakeAllowed:  true,
		BootCountEnabled: true,
	}
	copy(d.FactorySerial[:], "DEMO0001")
	m.SetData(d)
	if err := m.SetBoardSerial(7); err != nil {
		return err
	}
	if err := m.SetManufactureMonth(8); err != nil {
		return err
	}
	if err := m.SetManufactureYear(2026); err != nil {
		return err
	}
	return m.Save()
}

func main() {
	println("boardtest: provisioning")
	st := conf.NewMemStore()
	if err := provision(st); err != nil {
		println("provision failed:", err.Error())
		return
	}

	mcu := sim.NewMCU()
	pins := board.Pins{
		IREmitter: mcu.Pin(board.PinIREmitter),
		Prog:      mcu.Pin(board.PinProg),
		Button:    mcu.Pin(board.PinButton),
		HostLine:  mcu.Pin(board.PinHostLine),
		StatLED:   mcu.Pin(board.PinStatLED),
	}
	b, err := board.New(pins, mcu.ADC, mcu.Comp, mcu.WDT, mcu.CPU, mcu.Clock, conf.NewManager(st))
	if err != nil {
		println("new board:", err.Error())
		return
	}
	if err := b.Begin(); err != nil {
		println("begin:", err.Error())
		return
	}
	println("boardtest: up as", b.USBSerial(), "boot", b.BootCount())

	scripted := scenarios[0]
	mcu.ADC.ReadRaw = func(ref types.AnalogRef, bandgap bool, channel int) uint16 {
		if bandgap {
			return scripted.bandgap
		}
		return scripted.feedback
	}

	for _, sc := range scenarios {
		scripted = sc
		info, ok := b.RefreshPowerInfo(refreshSamples)
		r := info.Reading()
		println(sc.name,
			"ok:", ok,
			"rail(mV):", r.SupplyMilliVolts,
			"feedback(mV):", r.ProgMilliVolts,
			"current(mA):", r.ChargingMilliAmps,
			"charger:", info.ChargerState().String(),
			"battery:", info.BatteryState().String())
	}

	// Timed nap with a scripted button press two ladder steps in.
	b.OnButtonWake(func() { println("woke: button") })
	mcu.CPU.OnSleep = func(n int) {
		if n == 2 {
			mcu.Pin(board.PinButton).TriggerIRQ()
		}
	}
	println("boardtest: napping", int64(napDuration/time.Millisecond), "ms")
	b.PowerDown(napDuration, types.WakeButton)
	println("boardtest: slept", len(mcu.WDT.Armed), "watchdog ticks,",
		"button flag:", b.TakeButtonWake())
}
