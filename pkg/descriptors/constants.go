package descriptors

// Core format constants that never change.

const (
	// Signature is the magic number that starts every region header.
	Signature uint32 = 0x2222_2222

	// Fixed sizes - part of the format
	HeaderSize        = 32 // 8x uint32
	AppDescriptorSize = 44 // 11x uint32
	ChecksumSize      = 4  // trailing uint32 checksum of both records

	// Current descriptor version, v0.1.0 packed as MM_mmmm_pp
	DescriptorVersion        Version = 0x00_0001_00
	DescriptorVersionString          = "0.1.0"
	DescriptorVersionMajor           = uint32(DescriptorVersion>>24) & 0xFF
	DescriptorVersionMinor           = uint32(DescriptorVersion>>8) & 0xFFFF
	DescriptorVersionPatch           = uint32(DescriptorVersion) & 0xFF
)

// App image flags
const (
	FlagNone = 0x0000_0000

	// Copy image_size_bytes from stored_address to execution_address before executing
	FlagCopyToExecutionAddress = 0x0000_0001

	// Skip the CRC over the image contents. The descriptor's own checksum is always checked.
	FlagSkipImageChecksum = 0x0000_0002

	knownFlags = FlagCopyToExecutionAddress | FlagSkipImageChecksum
)
