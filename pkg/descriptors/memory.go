package descriptors

import (
	"errors"
	"fmt"
	"io"
)

// Memory is addressable storage holding a bootable region. Addresses are the
// absolute addresses found in the records themselves (for example
// app_descriptor_base_address), not offsets into a buffer.
//
// The storage is owned by the caller. It is assumed stable for the duration of
// a single parse; callers sharing it with a writer must serialise access.
type Memory interface {
	// ReadAt copies len(p) bytes starting at address into p.
	ReadAt(p []byte, address uint32) error
}

// Region is a Memory backed by a byte slice placed at a base address.
type Region struct {
	Base uint32
	Data []byte
}

// NewRegion returns a zeroed region of size bytes starting at base.
func NewRegion(base uint32, size int) *Region {
	return &Region{Base: base, Data: make([]byte, size)}
}

// End returns the first address past the region.
func (r *Region) End() uint64 {
	return uint64(r.Base) + uint64(len(r.Data))
}

// Contains reports whether [address, address+length) lies inside the region.
func (r *Region) Contains(address uint32, length int) bool {
	return address >= r.Base && uint64(address)+uint64(length) <= r.End()
}

// ReadAt implements Memory.
func (r *Region) ReadAt(p []byte, address uint32) error {
	if !r.Contains(address, len(p)) {
		return &AccessError{Address: address, Length: len(p)}
	}
	off := address - r.Base
	copy(p, r.Data[off:])
	return nil
}

// WriteAt copies p into the region at address.
func (r *Region) WriteAt(p []byte, address uint32) error {
	if !r.Contains(address, len(p)) {
		return &AccessError{Address: address, Length: len(p)}
	}
	off := address - r.Base
	copy(r.Data[off:], p)
	return nil
}

// ReaderAtMemory exposes an io.ReaderAt, such as a flash dump opened with
// os.Open, as Memory whose first byte sits at a base address.
type ReaderAtMemory struct {
	base uint32
	r    io.ReaderAt
}

// NewReaderAtMemory places r at base.
func NewReaderAtMemory(r io.ReaderAt, base uint32) *ReaderAtMemory {
	return &ReaderAtMemory{base: base, r: r}
}

// ReadAt implements Memory.
func (m *ReaderAtMemory) ReadAt(p []byte, address uint32) error {
	if address < m.base {
		return &AccessError{Address: address, Length: len(p)}
	}
	n, err := m.r.ReadAt(p, int64(address-m.base))
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return &AccessError{Address: address, Length: len(p)}
	}
	return fmt.Errorf("read %d bytes at 0x%08x: %w", len(p), address, err)
}

// loadHeader and loadApp are the only places raw memory becomes a record.
// Each reads exactly one record's worth of bytes into a fixed array; the
// bytes are then decoded field by field in the packed little-endian layout.
// Nothing is trusted until the caller has checked the checksum.

func loadHeader(mem Memory, address uint32) (Header, error) {
	var raw [HeaderSize]byte
	if err := mem.ReadAt(raw[:], address); err != nil {
		return Header{}, err
	}
	return decodeHeader(&raw), nil
}

func loadApp(mem Memory, address uint32) (AppDescriptor, error) {
	var raw [AppDescriptorSize]byte
	if err := mem.ReadAt(raw[:], address); err != nil {
		return AppDescriptor{}, err
	}
	return decodeApp(&raw), nil
}
