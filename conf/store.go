package conf

import "irbcore-go/errcode"

// Store is the storage medium behind the configuration block. Reads and
// writes are whole-block and synchronous; the manager never talks to the
// medium except through this interface.
type Store interface {
	ReadBlock(addr uint16, dst []byte) error
	WriteBlock(addr uint16, src []byte) error
}

// MemStore is a RAM-backed Store for host builds and tests.
type MemStore struct {
	cells [256]byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) ReadBlock(addr uint16, dst []byte) error {
	if int(addr)+len(dst) > len(s.cells) {
		return errcode.InvalidArgument
	}
	copy(dst, s.cells[addr:])
	return nil
}

func (s *MemStore) WriteBlock(addr uint16, src []byte) error {
	if int(addr)+len(src) > len(s.cells) {
		return errcode.InvalidArgument
	}
	copy(s.cells[addr:], src)
	return nil
}

// Seed loads a packed image, bypassing the manager. Test/bring-up helper.
func (s *MemStore) Seed(addr uint16, img []byte) { copy(s.cells[addr:], img) }
