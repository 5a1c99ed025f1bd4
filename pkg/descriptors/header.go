package descriptors

import (
	"encoding/binary"
	"fmt"
)

// Header is the bootable region descriptor header (32 bytes).
//
// Binary layout: 8 little-endian uint32 fields, packed, no padding.
type Header struct {
	Signature                 uint32  // Signature
	DescriptorVersion         Version // DescriptorVersion at build time
	DescriptorHeaderSizeBytes uint32  // HeaderSize
	AppDescriptorSizeBytes    uint32  // AppDescriptorSize
	AppDescriptorBaseAddress  uint32  // Address of AppDescriptor[NumAppSlots]
	NumAppSlots               uint32  // Number of app descriptors, at least 1
	ActiveAppSlot             uint32  // Slot to boot
	HeaderChecksum            uint32  // CRC-32/CKSUM of the fields above
}

// NewHeader returns a header for a region with slotCount descriptors starting
// at descriptorBaseAddress, with the checksum filled in. It has no side
// effects and can initialise package-level variables for statically placed
// descriptors.
func NewHeader(slotCount, activeSlot, descriptorBaseAddress uint32) Header {
	h := Header{
		Signature:                 Signature,
		DescriptorVersion:         DescriptorVersion,
		DescriptorHeaderSizeBytes: HeaderSize,
		AppDescriptorSizeBytes:    AppDescriptorSize,
		AppDescriptorBaseAddress:  descriptorBaseAddress,
		NumAppSlots:               slotCount,
		ActiveAppSlot:             activeSlot,
	}
	h.HeaderChecksum = h.ComputeChecksum()
	return h
}

// ParseHeader reads the header at address and validates it. Checks run in a
// fixed order and the first failure is returned: signature, checksum, slot
// count, then active slot.
func ParseHeader(mem Memory, address uint32) (Header, error) {
	h, err := loadHeader(mem, address)
	if err != nil {
		return Header{}, err
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Validate applies the header checks in order and returns the first failure.
func (h Header) Validate() error {
	switch {
	case h.Signature != Signature:
		return ErrInvalidSignature
	case !h.IsChecksumValid():
		return &HeaderChecksumError{Found: h.HeaderChecksum, Expected: h.ComputeChecksum()}
	case h.NumAppSlots < 1:
		return ErrInvalidSlotCount
	case h.ActiveAppSlot >= h.NumAppSlots:
		return ErrInvalidAppSlot
	}
	return nil
}

// Bytes serializes the header to exactly HeaderSize bytes.
func (h Header) Bytes() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.DescriptorVersion))
	binary.LittleEndian.PutUint32(buf[8:12], h.DescriptorHeaderSizeBytes)
	binary.LittleEndian.PutUint32(buf[12:16], h.AppDescriptorSizeBytes)
	binary.LittleEndian.PutUint32(buf[16:20], h.AppDescriptorBaseAddress)
	binary.LittleEndian.PutUint32(buf[20:24], h.NumAppSlots)
	binary.LittleEndian.PutUint32(buf[24:28], h.ActiveAppSlot)
	binary.LittleEndian.PutUint32(buf[28:32], h.HeaderChecksum)
	return buf
}

// UnpackHeader deserializes a header from exactly HeaderSize bytes. It does
// not validate the contents.
func UnpackHeader(data []byte) (Header, error) {
	if len(data) != HeaderSize {
		return Header{}, fmt.Errorf("invalid header size: expected %d, got %d", HeaderSize, len(data))
	}
	return decodeHeader((*[HeaderSize]byte)(data)), nil
}

func decodeHeader(raw *[HeaderSize]byte) Header {
	return Header{
		Signature:                 binary.LittleEndian.Uint32(raw[0:4]),
		DescriptorVersion:         Version(binary.LittleEndian.Uint32(raw[4:8])),
		DescriptorHeaderSizeBytes: binary.LittleEndian.Uint32(raw[8:12]),
		AppDescriptorSizeBytes:    binary.LittleEndian.Uint32(raw[12:16]),
		AppDescriptorBaseAddress:  binary.LittleEndian.Uint32(raw[16:20]),
		NumAppSlots:               binary.LittleEndian.Uint32(raw[20:24]),
		ActiveAppSlot:             binary.LittleEndian.Uint32(raw[24:28]),
		HeaderChecksum:            binary.LittleEndian.Uint32(raw[28:32]),
	}
}

// ComputeChecksum returns the checksum over every field except HeaderChecksum.
func (h Header) ComputeChecksum() uint32 {
	buf := h.Bytes()
	return Checksum(buf[:HeaderSize-ChecksumSize])
}

// IsChecksumValid reports whether HeaderChecksum matches the contents.
func (h Header) IsChecksumValid() bool {
	return h.HeaderChecksum == h.ComputeChecksum()
}

// SlotAddress returns the address of the descriptor for slot. The slot is
// not checked against NumAppSlots.
func (h Header) SlotAddress(slot uint32) uint32 {
	return SlotAddress(h.AppDescriptorBaseAddress, slot)
}
