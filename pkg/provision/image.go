package provision

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

// ErrImageChecksum is returned when a stored image does not match the
// checksum kept at its descriptor's StoredCRCAddress.
var ErrImageChecksum = errors.New("image checksum mismatch")

// ImageChecksumError carries the details of an image checksum mismatch.
type ImageChecksumError struct {
	Slot     uint32
	Found    uint32 // value stored at StoredCRCAddress
	Expected uint32 // checksum of the stored image
}

func (e *ImageChecksumError) Error() string {
	return fmt.Sprintf("%v: found 0x%08X, expected 0x%08X", ErrImageChecksum, e.Found, e.Expected)
}

func (e *ImageChecksumError) Unwrap() error { return ErrImageChecksum }

const imageChunkSize = 4096

// memoryReader reads n bytes of Memory starting at address.
type memoryReader struct {
	mem       descriptors.Memory
	address   uint32
	remaining uint32
}

func (r *memoryReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > uint64(r.remaining) {
		p = p[:r.remaining]
	}
	if len(p) > imageChunkSize {
		p = p[:imageChunkSize]
	}
	if err := r.mem.ReadAt(p, r.address); err != nil {
		return 0, err
	}
	r.address += uint32(len(p))
	r.remaining -= uint32(len(p))
	return len(p), nil
}

// ImageChecksum computes the CRC-32/CKSUM of the image d describes.
func ImageChecksum(mem descriptors.Memory, d descriptors.AppDescriptor) (uint32, error) {
	return descriptors.ChecksumReader(&memoryReader{
		mem:       mem,
		address:   d.StoredAddress,
		remaining: d.ImageSizeBytes,
	})
}

// StoredImageChecksum reads the checksum kept at d.StoredCRCAddress.
func StoredImageChecksum(mem descriptors.Memory, d descriptors.AppDescriptor) (uint32, error) {
	var raw [4]byte
	if err := mem.ReadAt(raw[:], d.StoredCRCAddress); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw[:]), nil
}

// VerifyImage checks the image d describes against its stored checksum. It
// checks regardless of FlagSkipImageChecksum; honouring the flag is the
// caller's decision.
func VerifyImage(mem descriptors.Memory, d descriptors.AppDescriptor) error {
	found, err := StoredImageChecksum(mem, d)
	if err != nil {
		return fmt.Errorf("reading image checksum: %w", err)
	}
	expected, err := ImageChecksum(mem, d)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	if found != expected {
		return &ImageChecksumError{Slot: d.AppSlotNumber, Found: found, Expected: expected}
	}
	return nil
}
