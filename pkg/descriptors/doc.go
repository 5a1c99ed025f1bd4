// Package descriptors implements the bootable region descriptor format read
// by the slim bootloader and written by update and provisioning tools.
//
// # Layout
//
// A region is a Header followed, at Header.AppDescriptorBaseAddress, by an
// array of Header.NumAppSlots AppDescriptor records:
//
//	Header:        [SIG][VER][HDR_SIZE][APP_SIZE][APP_BASE][SLOTS][ACTIVE][CRC]
//	AppDescriptor: [VER][SLOT][APP_VER][SEC_VER][FLAGS][STORED][SIZE][CRC_ADDR][COPY_SIZE][EXEC][CRC]
//
// Every field is a little-endian uint32. Each record ends with the
// CRC-32/CKSUM of the bytes before it.
//
// # Boot flow
//
//	m, err := descriptors.NewManager(mem, headerAddress)
//	if err != nil {
//	    // enter recovery, try another region, ...
//	}
//	app, err := m.ActiveSlot()
//
// The package never retries or falls back to another slot; that policy
// belongs to the caller.
package descriptors
