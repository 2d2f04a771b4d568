package conf

import (
	"time"

	"tinygo.org/x/drivers"

	"irbcore-go/hw"
)

// EEPROM24 is a Store backed by a 24-series I2C EEPROM (two-byte word
// address, paged writes). Boards that keep configuration off-chip wire
// this in place of MemStore.
type EEPROM24 struct {
	bus  drivers.I2C
	addr uint16
	page int

	delay hw.Delayer

	// Scratch buffers; avoids per-call heap allocations.
	w [2 + eeprom24PageSize]byte
}

const (
	// EEPROM24DefaultAddr is the 7-bit device address with A2..A0 low.
	EEPROM24DefaultAddr uint16 = 0x50

	eeprom24PageSize = 32

	// eeprom24WriteCycle is the self-timed write cycle (datasheet max).
	eeprom24WriteCycle = 5 * time.Millisecond
)

var _ Store = (*EEPROM24)(nil)

func NewEEPROM24(bus drivers.I2C, addr uint16, delay hw.Delayer) *EEPROM24 {
	if addr == 0 {
		addr = EEPROM24DefaultAddr
	}
	return &EEPROM24{bus: bus, addr: addr, page: eeprom24PageSize, delay: delay}
}

func (e *EEPROM24) ReadBlock(addr uint16, dst []byte) error {
	e.w[0] = byte(addr >> 8)
	e.w[1] = byte(addr)
	return e.bus.Tx(e.addr, e.w[:2], dst)
}

func (e *EEPROM24) WriteBlock(addr uint16, src []byte) error {
	for len(src) > 0 {
		// Writes must not cross a page boundary.
		n := e.page - int(addr)%e.page
		if n > len(src) {
			n = len(src)
		}
		e.w[0] = byte(addr >> 8)
		e.w[1] = byte(addr)
		copy(e.w[2:], src[:n])
		if err := e.bus.Tx(e.addr, e.w[:2+n], nil); err != nil {
			return err
		}
		e.delay.Delay(eeprom24WriteCycle)
		addr += uint16(n)
		src = src[n:]
	}
	return nil
}
