package descriptors

import (
	"io"

	"github.com/snksoft/crc"
)

// CRC32CKSUM is the CRC-32/CKSUM variant used for every checksum in the
// region: the one computed by POSIX cksum before the length is appended.
var CRC32CKSUM = &crc.Parameters{
	Width:      32,
	Polynomial: 0x04C11DB7,
	ReflectIn:  false,
	ReflectOut: false,
	Init:       0x00000000,
	FinalXor:   0xFFFFFFFF,
}

// CRC32CKSUMCheck is the checksum of the ASCII string "123456789".
const CRC32CKSUMCheck = 0x765E7680

var cksumTable = crc.NewTable(CRC32CKSUM)

// Checksum returns the CRC-32/CKSUM of data.
func Checksum(data []byte) uint32 {
	return uint32(cksumTable.CalculateCRC(data))
}

// ChecksumReader returns the CRC-32/CKSUM of everything read from r.
func ChecksumReader(r io.Reader) (uint32, error) {
	var buf [4096]byte
	sum := cksumTable.InitCrc()
	for {
		n, err := r.Read(buf[:])
		sum = cksumTable.UpdateCrc(sum, buf[:n])
		if err == io.EOF {
			return cksumTable.CRC32(sum), nil
		}
		if err != nil {
			return 0, err
		}
	}
}
