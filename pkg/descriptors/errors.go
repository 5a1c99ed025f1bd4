package descriptors

import (
	"errors"
	"fmt"
)

var (
	// Region header errors
	ErrInvalidSignature      = errors.New("invalid region header signature")
	ErrInvalidHeaderChecksum = errors.New("invalid region header checksum")
	ErrInvalidSlotCount      = errors.New("invalid app slot count")

	// App image descriptor errors
	ErrInvalidAppSlot     = errors.New("invalid app slot")
	ErrInvalidAppChecksum = errors.New("invalid app descriptor checksum")
	ErrSlotNumberMismatch = errors.New("app slot number does not match array position")

	// Memory errors
	ErrOutOfBounds = errors.New("address outside backing memory")
)

// HeaderChecksumError indicates the stored header checksum does not match
// the header contents.
type HeaderChecksumError struct {
	// Found is the value in the header_checksum field
	Found uint32
	// Expected is the checksum of the current header contents
	Expected uint32
}

func (e *HeaderChecksumError) Error() string {
	return fmt.Sprintf("%v: found 0x%08X, expected 0x%08X", ErrInvalidHeaderChecksum, e.Found, e.Expected)
}

func (e *HeaderChecksumError) Unwrap() error { return ErrInvalidHeaderChecksum }

// AppChecksumError indicates an app image descriptor is corrupted.
type AppChecksumError struct {
	// Address is where the descriptor was read from
	Address uint32
	// Found is the value in the descriptor_checksum field
	Found uint32
	// Expected is the checksum of the current descriptor contents
	Expected uint32
}

func (e *AppChecksumError) Error() string {
	return fmt.Sprintf("%v at 0x%08X: found 0x%08X, expected 0x%08X",
		ErrInvalidAppChecksum, e.Address, e.Found, e.Expected)
}

func (e *AppChecksumError) Unwrap() error { return ErrInvalidAppChecksum }

// SlotNumberMismatchError is only reported when slot number checking is
// enabled with WithSlotNumberCheck.
type SlotNumberMismatchError struct {
	Slot  uint32
	Found uint32
}

func (e *SlotNumberMismatchError) Error() string {
	return fmt.Sprintf("%v: slot %d holds app_slot_number %d", ErrSlotNumberMismatch, e.Slot, e.Found)
}

func (e *SlotNumberMismatchError) Unwrap() error { return ErrSlotNumberMismatch }

// AccessError indicates a read or write outside the backing memory.
type AccessError struct {
	Address uint32
	Length  int
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%v: %d bytes at 0x%08X", ErrOutOfBounds, e.Length, e.Address)
}

func (e *AccessError) Unwrap() error { return ErrOutOfBounds }

// RejectedError is returned by NewManager. It records how far validation got
// before the first failure, which it wraps.
type RejectedError struct {
	// From is StateUnvalidated when the header failed and StateValidating
	// when a slot failed.
	From State
	Slot uint32 // failing slot, set when From is StateValidating
	Err  error
}

func (e *RejectedError) Error() string {
	if e.From == StateValidating {
		return fmt.Sprintf("region rejected at slot %d: %v", e.Slot, e.Err)
	}
	return fmt.Sprintf("region rejected: %v", e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }
