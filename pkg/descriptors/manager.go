package descriptors

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// State is a step of Manager construction.
type State int

const (
	StateUnvalidated State = iota // Only an address is known
	StateValidating               // Header parsed, slots being walked
	StateReady                    // Header and every slot proven valid
	StateRejected                 // Terminal, carries the first error
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValidating:
		return "validating"
	case StateReady:
		return "ready"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Manager is a validated view of a bootable region. It keeps a copy of the
// header and re-reads descriptors from memory on every lookup; the memory
// stays owned by the caller.
//
// A Manager is immutable. To re-validate, construct a new one.
type Manager struct {
	mem             Memory
	address         uint32
	header          Header
	checkSlotNumber bool
	logger          hclog.Logger
}

// validation walks a region from StateUnvalidated to StateReady or
// StateRejected.
type validation struct {
	state  State
	logger hclog.Logger
}

func (v *validation) transition(to State) {
	v.logger.Trace("region validation", "from", v.state, "to", to)
	v.state = to
}

func (v *validation) reject(slot uint32, err error) error {
	rejected := &RejectedError{From: v.state, Slot: slot, Err: err}
	v.transition(StateRejected)
	return rejected
}

// NewManager validates the region header at address and every app descriptor
// it declares. Any failure rejects the whole region: no Manager is
// constructed and the first error found is returned wrapped in a
// *RejectedError.
func NewManager(mem Memory, address uint32, opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	v := &validation{state: StateUnvalidated, logger: cfg.logger}

	header, err := ParseHeader(mem, address)
	if err != nil {
		cfg.logger.Debug("region header rejected", "address", fmt.Sprintf("0x%08x", address), "error", err)
		return nil, v.reject(0, err)
	}
	v.transition(StateValidating)

	cfg.logger.Debug("region header parsed",
		"address", fmt.Sprintf("0x%08x", address),
		"version", header.DescriptorVersion,
		"slots", header.NumAppSlots,
		"active", header.ActiveAppSlot,
		"descriptors", fmt.Sprintf("0x%08x", header.AppDescriptorBaseAddress),
	)

	m := &Manager{
		mem:             mem,
		address:         address,
		header:          header,
		checkSlotNumber: cfg.checkSlotNumber,
		logger:          cfg.logger,
	}

	for slot := uint32(0); slot < header.NumAppSlots; slot++ {
		if _, err := m.load(slot); err != nil {
			cfg.logger.Debug("app descriptor rejected", "slot", slot, "error", err)
			return nil, v.reject(slot, err)
		}
	}

	v.transition(StateReady)
	return m, nil
}

// load reads and checks slot without comparing it to the slot count.
func (m *Manager) load(slot uint32) (AppDescriptor, error) {
	d, err := ParseAppAtSlot(m.mem, m.header.AppDescriptorBaseAddress, slot)
	if err != nil {
		return AppDescriptor{}, err
	}
	if m.checkSlotNumber && d.AppSlotNumber != slot {
		return AppDescriptor{}, &SlotNumberMismatchError{Slot: slot, Found: d.AppSlotNumber}
	}
	m.logger.Trace("app descriptor loaded",
		"slot", slot,
		"app_version", d.AppVersion,
		"security_version", d.SecurityVersion,
		"flags", fmt.Sprintf("0x%08x", d.Flags),
	)
	return d, nil
}

// ActiveSlot returns the descriptor the header marks as active. Construction
// proved it valid; an error can only come from memory corrupted or made
// unreadable after NewManager returned.
func (m *Manager) ActiveSlot() (AppDescriptor, error) {
	return m.load(m.header.ActiveAppSlot)
}

// AppAtSlot returns the descriptor for slot, or ErrInvalidAppSlot when the
// region has no such slot.
func (m *Manager) AppAtSlot(slot uint32) (AppDescriptor, error) {
	if slot >= m.header.NumAppSlots {
		return AppDescriptor{}, ErrInvalidAppSlot
	}
	return m.load(slot)
}

// Header returns a copy of the validated header.
func (m *Manager) Header() Header { return m.header }

// Address returns the address the header was read from.
func (m *Manager) Address() uint32 { return m.address }

// SlotCount returns the number of app descriptors in the region.
func (m *Manager) SlotCount() uint32 { return m.header.NumAppSlots }

// ActiveSlotIndex returns the slot the header marks as active.
func (m *Manager) ActiveSlotIndex() uint32 { return m.header.ActiveAppSlot }
