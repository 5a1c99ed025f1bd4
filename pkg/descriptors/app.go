package descriptors

import (
	"encoding/binary"
	"fmt"
)

// AppDescriptor describes one stored application image and how to load it
// (44 bytes).
//
// Binary layout: 11 little-endian uint32 fields, packed, no padding.
type AppDescriptor struct {
	DescriptorVersion      Version // DescriptorVersion at build time
	AppSlotNumber          uint32  // Expected to match the array position
	AppVersion             uint32  // Application version for roll forward/back decisions
	SecurityVersion        uint32  // Anti-rollback floor for this image
	Flags                  uint32  // FlagCopyToExecutionAddress | FlagSkipImageChecksum
	StoredAddress          uint32  // Where the contiguous image is stored
	ImageSizeBytes         uint32  // Size of the stored image
	StoredCRCAddress       uint32  // Where the CRC-32/CKSUM of the stored image is kept
	ExecutionCopySizeBytes uint32  // Bytes to copy to ExecutionAddress before branching
	ExecutionAddress       uint32  // Where execution begins once loaded
	DescriptorChecksum     uint32  // CRC-32/CKSUM of the fields above
}

// SlotAddress returns the address of slot in a descriptor array starting at
// base.
func SlotAddress(base, slot uint32) uint32 {
	return base + slot*AppDescriptorSize
}

// NewExecuteInPlace returns a descriptor for an image that runs from where it
// is stored.
func NewExecuteInPlace(slot, appVersion, securityVersion, flags, storedAddress, imageSizeBytes, storedCRCAddress uint32) AppDescriptor {
	d := AppDescriptor{
		DescriptorVersion:      DescriptorVersion,
		AppSlotNumber:          slot,
		AppVersion:             appVersion,
		SecurityVersion:        securityVersion,
		Flags:                  flags,
		StoredAddress:          storedAddress,
		ImageSizeBytes:         imageSizeBytes,
		StoredCRCAddress:       storedCRCAddress,
		ExecutionCopySizeBytes: 0,
		ExecutionAddress:       storedAddress,
	}
	d.DescriptorChecksum = d.ComputeChecksum()
	return d
}

// NewRAMImage returns a descriptor for an image copied from flashAddress to
// ramAddress before running. The copy flag is always set.
func NewRAMImage(slot, appVersion, securityVersion, flags, flashAddress, imageSizeBytes, ramAddress, storedCRCAddress uint32) AppDescriptor {
	d := AppDescriptor{
		DescriptorVersion:      DescriptorVersion,
		AppSlotNumber:          slot,
		AppVersion:             appVersion,
		SecurityVersion:        securityVersion,
		Flags:                  flags | FlagCopyToExecutionAddress,
		StoredAddress:          flashAddress,
		ImageSizeBytes:         imageSizeBytes,
		StoredCRCAddress:       storedCRCAddress,
		ExecutionCopySizeBytes: imageSizeBytes,
		ExecutionAddress:       ramAddress,
	}
	d.DescriptorChecksum = d.ComputeChecksum()
	return d
}

// ParseApp reads the descriptor at address and verifies its checksum.
func ParseApp(mem Memory, address uint32) (AppDescriptor, error) {
	d, err := loadApp(mem, address)
	if err != nil {
		return AppDescriptor{}, err
	}
	if !d.IsChecksumValid() {
		return AppDescriptor{}, &AppChecksumError{
			Address:  address,
			Found:    d.DescriptorChecksum,
			Expected: d.ComputeChecksum(),
		}
	}
	return d, nil
}

// ParseAppAtSlot reads descriptor slot of the array starting at base. The
// caller must already know that slot is below the header's slot count.
func ParseAppAtSlot(mem Memory, base, slot uint32) (AppDescriptor, error) {
	return ParseApp(mem, SlotAddress(base, slot))
}

// Bytes serializes the descriptor to exactly AppDescriptorSize bytes.
func (d AppDescriptor) Bytes() [AppDescriptorSize]byte {
	var buf [AppDescriptorSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d.DescriptorVersion))
	binary.LittleEndian.PutUint32(buf[4:8], d.AppSlotNumber)
	binary.LittleEndian.PutUint32(buf[8:12], d.AppVersion)
	binary.LittleEndian.PutUint32(buf[12:16], d.SecurityVersion)
	binary.LittleEndian.PutUint32(buf[16:20], d.Flags)
	binary.LittleEndian.PutUint32(buf[20:24], d.StoredAddress)
	binary.LittleEndian.PutUint32(buf[24:28], d.ImageSizeBytes)
	binary.LittleEndian.PutUint32(buf[28:32], d.StoredCRCAddress)
	binary.LittleEndian.PutUint32(buf[32:36], d.ExecutionCopySizeBytes)
	binary.LittleEndian.PutUint32(buf[36:40], d.ExecutionAddress)
	binary.LittleEndian.PutUint32(buf[40:44], d.DescriptorChecksum)
	return buf
}

// UnpackApp deserializes a descriptor from exactly AppDescriptorSize bytes.
// It does not verify the checksum.
func UnpackApp(data []byte) (AppDescriptor, error) {
	if len(data) != AppDescriptorSize {
		return AppDescriptor{}, fmt.Errorf("invalid app descriptor size: expected %d, got %d", AppDescriptorSize, len(data))
	}
	return decodeApp((*[AppDescriptorSize]byte)(data)), nil
}

func decodeApp(raw *[AppDescriptorSize]byte) AppDescriptor {
	return AppDescriptor{
		DescriptorVersion:      Version(binary.LittleEndian.Uint32(raw[0:4])),
		AppSlotNumber:          binary.LittleEndian.Uint32(raw[4:8]),
		AppVersion:             binary.LittleEndian.Uint32(raw[8:12]),
		SecurityVersion:        binary.LittleEndian.Uint32(raw[12:16]),
		Flags:                  binary.LittleEndian.Uint32(raw[16:20]),
		StoredAddress:          binary.LittleEndian.Uint32(raw[20:24]),
		ImageSizeBytes:         binary.LittleEndian.Uint32(raw[24:28]),
		StoredCRCAddress:       binary.LittleEndian.Uint32(raw[28:32]),
		ExecutionCopySizeBytes: binary.LittleEndian.Uint32(raw[32:36]),
		ExecutionAddress:       binary.LittleEndian.Uint32(raw[36:40]),
		DescriptorChecksum:     binary.LittleEndian.Uint32(raw[40:44]),
	}
}

// ComputeChecksum returns the checksum over every field except
// DescriptorChecksum.
func (d AppDescriptor) ComputeChecksum() uint32 {
	buf := d.Bytes()
	return Checksum(buf[:AppDescriptorSize-ChecksumSize])
}

// IsChecksumValid reports whether DescriptorChecksum matches the contents.
func (d AppDescriptor) IsChecksumValid() bool {
	return d.DescriptorChecksum == d.ComputeChecksum()
}

// CopyToExecution reports whether the image must be copied to
// ExecutionAddress before running.
func (d AppDescriptor) CopyToExecution() bool {
	return d.Flags&FlagCopyToExecutionAddress != 0
}

// SkipImageChecksum reports whether the CRC over the image contents may be
// skipped.
func (d AppDescriptor) SkipImageChecksum() bool {
	return d.Flags&FlagSkipImageChecksum != 0
}

// UnknownFlags returns flag bits this version does not define.
func (d AppDescriptor) UnknownFlags() uint32 {
	return d.Flags &^ knownFlags
}
