package conf

import (
	"testing"
	"time"

	"irbcore-go/errcode"
	"irbcore-go/types"
)

func testData() Data {
	d := Data{
		HWVersion:             CurrentHWVersion,
		BandgapOffset:         -23,
		StatLEDBrightness:     128,
		ProgResistorOhms:      5100,
		SerialDebugger:        true,
		SleepAllowed:          true,
		HostWakeAllowed:       false,
		BootCountEnabled:      true,
		ManufactureMonth:      7,
		ManufactureYearOffset: 4,
		BootCount:             321,
		BoardSerial:           42,
	}
	copy(d.FactorySerial[:], "AB12CD34")
	return d
}

func TestPackLayout(t *testing.T) {
	b := testData().Pack()

	if b[0] != 0x02 {
		t.Fatalf("version byte = %#x, want 0x02", b[0])
	}
	if int8(b[1]) != -23 {
		t.Fatalf("bandgap offset = %d, want -23", int8(b[1]))
	}
	if b[2] != 128 {
		t.Fatalf("brightness = %d", b[2])
	}
	if got := uint16(b[3]) | uint16(b[4])<<8; got != 5100 {
		t.Fatalf("rprog = %d, want 5100", got)
	}
	// debugger|sleep|bootcount set, host wake clear
	if b[5] != flagSerialDebugger|flagSleepAllowed|flagBootCount {
		t.Fatalf("flags = %#x", b[5])
	}
	if b[6] != 7<<4|4 {
		t.Fatalf("date byte = %#x", b[6])
	}
	if got := uint32(b[7]) | uint32(b[8])<<8 | uint32(b[9])<<16 | uint32(b[10])<<24; got != 321 {
		t.Fatalf("boot count = %d", got)
	}
	if got := uint16(b[11]) | uint16(b[12])<<8; got != 42 {
		t.Fatalf("board serial = %d", got)
	}
	if string(b[13:21]) != "AB12CD34" {
		t.Fatalf("factory serial = %q", b[13:21])
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	d := testData()
	got := Unpack(d.Pack())
	if got != d {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, d)
	}
}

func TestPackMasksSerialReservedBits(t *testing.T) {
	d := testData()
	d.BoardSerial = 0xFFFF
	got := Unpack(d.Pack())
	if got.BoardSerial != 0x3FFF {
		t.Fatalf("serial = %#x, want reserved bits stripped", got.BoardSerial)
	}
}

func TestLoadSaveDirty(t *testing.T) {
	st := NewMemStore()
	img := testData().Pack()
	st.Seed(DataAddr, img[:])

	m := NewManager(st)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Loaded() || m.Dirty() {
		t.Fatalf("fresh load: loaded=%v dirty=%v", m.Loaded(), m.Dirty())
	}
	if !m.VersionMatches() {
		t.Fatal("version should match")
	}

	m.SetStatLEDBrightness(200)
	if !m.Dirty() {
		t.Fatal("setter should dirty the working copy")
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.Dirty() {
		t.Fatal("save should clear dirty")
	}

	m2 := NewManager(st)
	if err := m2.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if m2.StatLEDBrightness() != 200 {
		t.Fatalf("persisted brightness = %d", m2.StatLEDBrightness())
	}
}

func TestSaveRequiresImage(t *testing.T) {
	m := NewManager(NewMemStore())
	if err := m.Save(); errcode.Of(err) != errcode.NotInitialized {
		t.Fatalf("err = %v, want not_initialized before any image", err)
	}
	m.SetData(testData())
	if !m.Loaded() {
		t.Fatal("SetData should establish the working image")
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save after SetData: %v", err)
	}
}

// droppingStore accepts writes but never retains them.
type droppingStore struct{ MemStore }

func (s *droppingStore) WriteBlock(addr uint16, src []byte) error { return nil }

func TestSaveVerifiesReadBack(t *testing.T) {
	st := &droppingStore{}
	m := NewManager(st)
	m.SetData(testData())

	err := m.Save()
	if err == nil {
		t.Fatal("Save should fail when the medium drops the image")
	}
	if errcode.Of(err) != errcode.StoreSaveFailed {
		t.Fatalf("code = %v, want store_save_failed", errcode.Of(err))
	}
	if m.Dirty() != true {
		t.Fatal("failed save must not adopt the image as stored")
	}
}

func TestBandgapCalibration(t *testing.T) {
	m := NewManager(NewMemStore())
	if m.BandgapMilliVolts() != NominalBandgapMilliVolts {
		t.Fatalf("default bandgap = %d", m.BandgapMilliVolts())
	}
	if err := m.SetBandgapMilliVolts(972); err != nil {
		t.Fatalf("972 mV should be accepted: %v", err)
	}
	if m.BandgapMilliVolts() != 972 {
		t.Fatalf("bandgap = %d, want 972", m.BandgapMilliVolts())
	}
	if err := m.SetBandgapMilliVolts(1227); err != nil {
		t.Fatalf("1227 mV should be accepted: %v", err)
	}
	if err := m.SetBandgapMilliVolts(971); err == nil {
		t.Fatal("971 mV should be rejected")
	}
	if err := m.SetBandgapMilliVolts(1228); err == nil {
		t.Fatal("1228 mV should be rejected")
	}
}

func TestProgResistorFloor(t *testing.T) {
	m := NewManager(NewMemStore())
	if m.ProgResistorOhms() != types.InvalidResistance {
		t.Fatalf("zeroed rprog = %d, want invalid", m.ProgResistorOhms())
	}
	if err := m.SetProgResistorOhms(MinProgResistorOhms); err == nil {
		t.Fatal("floor value should be rejected")
	}
	if err := m.SetProgResistorOhms(MinProgResistorOhms + 1); err != nil {
		t.Fatalf("just above floor should be accepted: %v", err)
	}
	if m.ProgResistorOhms() != MinProgResistorOhms+1 {
		t.Fatalf("rprog = %d", m.ProgResistorOhms())
	}
}

func TestManufactureDateRanges(t *testing.T) {
	m := NewManager(NewMemStore())
	if m.ManufactureMonth() != InvalidManufactureMonth {
		t.Fatalf("zeroed month = %d, want invalid", m.ManufactureMonth())
	}
	if err := m.SetManufactureMonth(0); err == nil {
		t.Fatal("month 0 should be rejected")
	}
	if err := m.SetManufactureMonth(13); err == nil {
		t.Fatal("month 13 should be rejected")
	}
	if err := m.SetManufactureMonth(12); err != nil {
		t.Fatalf("month 12: %v", err)
	}
	if err := m.SetManufactureYear(2019); err == nil {
		t.Fatal("pre-base year should be rejected")
	}
	if err := m.SetManufactureYear(2036); err == nil {
		t.Fatal("year past offset range should be rejected")
	}
	if err := m.SetManufactureYear(2024); err != nil {
		t.Fatalf("2024: %v", err)
	}
	if m.ManufactureYear() != 2024 {
		t.Fatalf("year = %d", m.ManufactureYear())
	}
}

func TestBootCountGatedAndSaturating(t *testing.T) {
	m := NewManager(NewMemStore())
	m.IncrementBootCount()
	if m.BootCount() != 0 {
		t.Fatal("increment must be a no-op while counting is disabled")
	}
	m.SetBootCounting(true)
	m.IncrementBootCount()
	m.IncrementBootCount()
	if m.BootCount() != 2 {
		t.Fatalf("boot count = %d", m.BootCount())
	}
	d := m.Data()
	d.BootCount = ^uint32(0)
	m.SetData(d)
	m.IncrementBootCount()
	if m.BootCount() != ^uint32(0) {
		t.Fatal("counter must saturate")
	}
}

func TestSerials(t *testing.T) {
	m := NewManager(NewMemStore())
	if m.BoardSerial() != InvalidBoardSerial {
		t.Fatalf("zeroed serial = %d, want invalid", m.BoardSerial())
	}
	if err := m.SetBoardSerial(0); err == nil {
		t.Fatal("serial 0 should be rejected")
	}
	if err := m.SetBoardSerial(MaxBoardSerial + 1); err == nil {
		t.Fatal("serial 10000 should be rejected")
	}
	if err := m.SetBoardSerial(MaxBoardSerial); err != nil {
		t.Fatalf("serial 9999: %v", err)
	}
	if err := m.SetFactorySerial("short"); err == nil {
		t.Fatal("short factory serial should be rejected")
	}
	if err := m.SetFactorySerial("FACTORY1"); err != nil {
		t.Fatalf("factory serial: %v", err)
	}
	if m.FactorySerial() != "FACTORY1" {
		t.Fatalf("factory serial = %q", m.FactorySerial())
	}
}

func TestEEPROM24PageWrites(t *testing.T) {
	bus := &fakeI2C{mem: map[uint16]byte{}}
	clk := &countingDelayer{}
	e := NewEEPROM24(bus, 0, clk)

	// 40 bytes starting at 0x1E crosses two page boundaries.
	src := make([]byte, 40)
	for i := range src {
		src[i] = byte(i + 1)
	}
	if err := e.WriteBlock(0x1E, src); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if bus.writes != 3 {
		t.Fatalf("writes = %d, want 3 page-bounded transactions", bus.writes)
	}
	if clk.n != 3 {
		t.Fatalf("write-cycle delays = %d, want one per transaction", clk.n)
	}

	dst := make([]byte, 40)
	if err := e.ReadBlock(0x1E, dst); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, dst[i], src[i])
		}
	}
}

// fakeI2C models a 24-series EEPROM: two-byte word address followed by
// payload on write, sequential read otherwise.
type fakeI2C struct {
	mem    map[uint16]byte
	writes int
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	word := uint16(w[0])<<8 | uint16(w[1])
	if len(w) > 2 {
		f.writes++
		for i, b := range w[2:] {
			f.mem[word+uint16(i)] = b
		}
		return nil
	}
	for i := range r {
		r[i] = f.mem[word+uint16(i)]
	}
	return nil
}

type countingDelayer struct{ n int }

func (c *countingDelayer) Delay(d time.Duration) { c.n++ }
