package conf

import "irbcore-go/errcode"

const (
	// ManufactureBaseYear anchors the 4-bit persisted year offset.
	ManufactureBaseYear uint16 = 2020

	maxYearOffset = 15
)

// Bandgap calibration bounds implied by the int8 offset encoding.
const (
	MinBandgapMilliVolts uint16 = NominalBandgapMilliVolts - 128
	MaxBandgapMilliVolts uint16 = NominalBandgapMilliVolts + 127
)

// Manager mediates all access to the persisted configuration. It keeps a
// working copy in RAM; setters mutate only the working copy and Save
// commits it. Save verifies the medium by reading the block back.
type Manager struct {
	store Store

	cur    Data
	stored Data
	loaded bool
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load reads the configuration block and replaces both the working copy
// and the stored snapshot.
func (m *Manager) Load() error {
	var b [DataSize]byte
	if err := m.store.ReadBlock(DataAddr, b[:]); err != nil {
		return &errcode.E{C: errcode.StoreReadFailed, Op: "conf.Load", Err: err}
	}
	m.cur = Unpack(b)
	m.stored = m.cur
	m.loaded = true
	return nil
}

// Save writes the working copy and reads it back; a mismatch means the
// medium did not retain the image. Saving before the working copy has been
// established by Load or SetData is refused: a zero-valued image would
// overwrite real provisioning data.
func (m *Manager) Save() error {
	if !m.loaded {
		return &errcode.E{C: errcode.NotInitialized, Op: "conf.Save"}
	}
	img := m.cur.Pack()
	if err := m.store.WriteBlock(DataAddr, img[:]); err != nil {
		return &errcode.E{C: errcode.StoreSaveFailed, Op: "conf.Save", Err: err}
	}
	var back [DataSize]byte
	if err := m.store.ReadBlock(DataAddr, back[:]); err != nil {
		return &errcode.E{C: errcode.StoreSaveFailed, Op: "conf.Save", Err: err}
	}
	if back != img {
		return &errcode.E{C: errcode.StoreSaveFailed, Op: "conf.Save",
			Msg: "read-back mismatch"}
	}
	m.stored = m.cur
	return nil
}

// Data returns the working copy.
func (m *Manager) Data() Data { return m.cur }

// SetData replaces the working copy wholesale. Like Load it establishes a
// complete image, so a subsequent Save is allowed.
func (m *Manager) SetData(d Data) {
	m.cur = d
	m.loaded = true
}

// Stored returns the last image known to be on the medium.
func (m *Manager) Stored() Data { return m.stored }

// Dirty reports whether the working copy differs from the stored image.
func (m *Manager) Dirty() bool { return m.cur != m.stored }

// Loaded reports whether a complete working image has been established,
// by Load or by SetData.
func (m *Manager) Loaded() bool { return m.loaded }

// VersionMatches reports whether the stored hardware revision is the one
// this library is calibrated for.
func (m *Manager) VersionMatches() bool {
	return m.cur.HWVersion == CurrentHWVersion
}

// ------------------------
// Calibration
// ------------------------

// BandgapMilliVolts returns the calibrated internal reference voltage.
func (m *Manager) BandgapMilliVolts() uint16 {
	return uint16(int32(NominalBandgapMilliVolts) + int32(m.cur.BandgapOffset))
}

func (m *Manager) SetBandgapMilliVolts(mv uint16) error {
	if mv < MinBandgapMilliVolts || mv > MaxBandgapMilliVolts {
		return &errcode.E{C: errcode.ValueOutOfRange, Op: "conf.SetBandgapMilliVolts"}
	}
	m.cur.BandgapOffset = int8(int32(mv) - int32(NominalBandgapMilliVolts))
	return nil
}

// ProgResistorOhms returns the charger feedback resistance, or
// types.InvalidResistance when the stored value is at or below the usable
// floor.
func (m *Manager) ProgResistorOhms() uint16 {
	return progResistorOrInvalid(m.cur.ProgResistorOhms)
}

func (m *Manager) SetProgResistorOhms(ohms uint16) error {
	if ohms <= MinProgResistorOhms {
		return &errcode.E{C: errcode.ProgResistorInvalid, Op: "conf.SetProgResistorOhms"}
	}
	m.cur.ProgResistorOhms = ohms
	return nil
}

// ------------------------
// Flags and brightness
// ------------------------

func (m *Manager) SerialDebugger() bool       { return m.cur.SerialDebugger }
func (m *Manager) SetSerialDebugger(on bool)  { m.cur.SerialDebugger = on }
func (m *Manager) SleepAllowed() bool         { return m.cur.SleepAllowed }
func (m *Manager) SetSleepAllowed(on bool)    { m.cur.SleepAllowed = on }
func (m *Manager) HostWakeAllowed() bool      { return m.cur.HostWakeAllowed }
func (m *Manager) SetHostWakeAllowed(on bool) { m.cur.HostWakeAllowed = on }

func (m *Manager) StatLEDBrightness() uint8     { return m.cur.StatLEDBrightness }
func (m *Manager) SetStatLEDBrightness(v uint8) { m.cur.StatLEDBrightness = v }

// ------------------------
// Manufacture date
// ------------------------

// ManufactureMonth returns the stored month, InvalidManufactureMonth when
// out of range.
func (m *Manager) ManufactureMonth() uint8 {
	if m.cur.ManufactureMonth < 1 || m.cur.ManufactureMonth > 12 {
		return InvalidManufactureMonth
	}
	return m.cur.ManufactureMonth
}

func (m *Manager) SetManufactureMonth(month uint8) error {
	if month < 1 || month > 12 {
		return &errcode.E{C: errcode.ValueOutOfRange, Op: "conf.SetManufactureMonth"}
	}
	m.cur.ManufactureMonth = month
	return nil
}

func (m *Manager) ManufactureYear() uint16 {
	return ManufactureBaseYear + uint16(m.cur.ManufactureYearOffset)
}

func (m *Manager) SetManufactureYear(year uint16) error {
	if year < ManufactureBaseYear || year > ManufactureBaseYear+maxYearOffset {
		return &errcode.E{C: errcode.ValueOutOfRange, Op: "conf.SetManufactureYear"}
	}
	m.cur.ManufactureYearOffset = uint8(year - ManufactureBaseYear)
	return nil
}

// ------------------------
// Counters and serials
// ------------------------

func (m *Manager) BootCount() uint32       { return m.cur.BootCount }
func (m *Manager) BootCountEnabled() bool  { return m.cur.BootCountEnabled }
func (m *Manager) SetBootCounting(on bool) { m.cur.BootCountEnabled = on }

// IncrementBootCount bumps the counter when counting is enabled. The
// counter saturates rather than wrapping.
func (m *Manager) IncrementBootCount() {
	if !m.cur.BootCountEnabled {
		return
	}
	if m.cur.BootCount != ^uint32(0) {
		m.cur.BootCount++
	}
}

// BoardSerial returns the mutable per-unit serial, InvalidBoardSerial when
// the stored value is unusable.
func (m *Manager) BoardSerial() uint16 {
	if m.cur.BoardSerial < 1 || m.cur.BoardSerial > MaxBoardSerial {
		return InvalidBoardSerial
	}
	return m.cur.BoardSerial
}

func (m *Manager) SetBoardSerial(serial uint16) error {
	if serial < 1 || serial > MaxBoardSerial {
		return &errcode.E{C: errcode.ValueOutOfRange, Op: "conf.SetBoardSerial"}
	}
	m.cur.BoardSerial = serial
	return nil
}

// FactorySerial returns the immutable factory tag as a string.
func (m *Manager) FactorySerial() string {
	return string(m.cur.FactorySerial[:])
}

// SetFactorySerial accepts exactly FactorySerialLen bytes; it exists for
// provisioning, not field use.
func (m *Manager) SetFactorySerial(s string) error {
	if len(s) != FactorySerialLen {
		return &errcode.E{C: errcode.ValueOutOfRange, Op: "conf.SetFactorySerial"}
	}
	copy(m.cur.FactorySerial[:], s)
	return nil
}
