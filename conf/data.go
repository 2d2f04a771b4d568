// Package conf holds the board's persisted configuration: an explicit
// field struct, an exact-layout codec, and a manager that mediates all
// access to the storage medium.
package conf

import (
	"encoding/binary"

	"irbcore-go/types"
)

// DataAddr is the fixed start address of the configuration block.
const DataAddr uint16 = 0x00

// DataSize is the packed size of Data in bytes.
const DataSize = 21

// FactorySerialLen is the length of the immutable factory serial tag.
const FactorySerialLen = 8

const (
	// NominalBandgapMilliVolts is the datasheet bandgap voltage; the
	// persisted calibration is an int8 offset around it, so valid values
	// span [972, 1227] mV.
	NominalBandgapMilliVolts = 1100

	// MinProgResistorOhms is the lowest usable feedback resistance
	// (5 kΩ in parallel with the 10 kΩ RC network).
	MinProgResistorOhms uint16 = 3333

	// MaxBoardSerial bounds the mutable board serial number.
	MaxBoardSerial uint16 = 9999

	// InvalidBoardSerial is returned when the stored serial is unusable.
	InvalidBoardSerial uint16 = 0xFFFF

	// InvalidManufactureMonth is returned for an out-of-range month.
	InvalidManufactureMonth uint8 = 0
)

// Version is the hardware revision tag, one nibble each.
type Version struct {
	Major uint8
	Minor uint8
}

// CurrentHWVersion is the revision this library is calibrated for.
// A stored tag that differs makes continued operation unsafe.
var CurrentHWVersion = Version{Major: 0, Minor: 2}

func (v Version) Byte() uint8 { return v.Major<<4 | v.Minor&0x0F }

func VersionFromByte(b uint8) Version {
	return Version{Major: b >> 4, Minor: b & 0x0F}
}

// Data is the full persisted configuration image. Fields are explicit;
// Pack/Unpack define the storage bit layout as a contract.
type Data struct {
	HWVersion         Version
	BandgapOffset     int8 // mV offset from NominalBandgapMilliVolts
	StatLEDBrightness uint8
	ProgResistorOhms  uint16

	SerialDebugger   bool
	SleepAllowed     bool
	HostWakeAllowed  bool
	BootCountEnabled bool

	ManufactureMonth      uint8 // 1..12
	ManufactureYearOffset uint8 // years since 2020, 0..15

	BootCount     uint32
	BoardSerial   uint16 // 14 bits used
	FactorySerial [FactorySerialLen]byte
}

// Flag bit positions within the packed config byte. Bits 4..7 are
// reserved and preserved as zero.
const (
	flagSerialDebugger = 1 << 0
	flagSleepAllowed   = 1 << 1
	flagHostWake       = 1 << 2
	flagBootCount      = 1 << 3
)

// Pack serialises Data into its storage layout:
//
//	off 0      hardware version (major high nibble, minor low nibble)
//	off 1      bandgap offset, int8
//	off 2      status LED brightness
//	off 3..4   feedback resistor ohms, uint16 LE
//	off 5      config flags byte
//	off 6      manufacture date (year-offset low nibble, month high nibble)
//	off 7..10  boot count, uint32 LE
//	off 11..12 board serial, uint16 LE, bits 14..15 reserved
//	off 13..20 factory serial tag, 8 raw bytes
func (d Data) Pack() [DataSize]byte {
	var b [DataSize]byte
	b[0] = d.HWVersion.Byte()
	b[1] = byte(d.BandgapOffset)
	b[2] = d.StatLEDBrightness
	binary.LittleEndian.PutUint16(b[3:5], d.ProgResistorOhms)

	var flags byte
	if d.SerialDebugger {
		flags |= flagSerialDebugger
	}
	if d.SleepAllowed {
		flags |= flagSleepAllowed
	}
	if d.HostWakeAllowed {
		flags |= flagHostWake
	}
	if d.BootCountEnabled {
		flags |= flagBootCount
	}
	b[5] = flags

	b[6] = d.ManufactureYearOffset&0x0F | d.ManufactureMonth<<4
	binary.LittleEndian.PutUint32(b[7:11], d.BootCount)
	binary.LittleEndian.PutUint16(b[11:13], d.BoardSerial&0x3FFF)
	copy(b[13:], d.FactorySerial[:])
	return b
}

// Unpack deserialises the storage layout defined by Pack.
func Unpack(b [DataSize]byte) Data {
	var d Data
	d.HWVersion = VersionFromByte(b[0])
	d.BandgapOffset = int8(b[1])
	d.StatLEDBrightness = b[2]
	d.ProgResistorOhms = binary.LittleEndian.Uint16(b[3:5])

	d.SerialDebugger = b[5]&flagSerialDebugger != 0
	d.SleepAllowed = b[5]&flagSleepAllowed != 0
	d.HostWakeAllowed = b[5]&flagHostWake != 0
	d.BootCountEnabled = b[5]&flagBootCount != 0

	d.ManufactureYearOffset = b[6] & 0x0F
	d.ManufactureMonth = b[6] >> 4
	d.BootCount = binary.LittleEndian.Uint32(b[7:11])
	d.BoardSerial = binary.LittleEndian.Uint16(b[11:13]) & 0x3FFF
	copy(d.FactorySerial[:], b[13:])
	return d
}

// progResistorOrInvalid applies the validity floor shared by the manager
// and the estimator's calibration input.
func progResistorOrInvalid(ohms uint16) uint16 {
	if ohms <= MinProgResistorOhms {
		return types.InvalidResistance
	}
	return ohms
}
