package provision

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

// VerifyOptions selects the checks VerifyRegion runs beyond the descriptor
// validation every bootloader performs.
type VerifyOptions struct {
	// SlotNumberCheck requires app_slot_number to equal the array position
	SlotNumberCheck bool

	// Images checks each image against its stored checksum unless the
	// descriptor sets FlagSkipImageChecksum
	Images bool

	// SecurityFloor, if set, marks slots whose security version is below it.
	// Whether such a slot may boot is left to the caller.
	SecurityFloor *uint32
}

// SlotReport is the outcome for one slot.
type SlotReport struct {
	Slot         uint32
	Active       bool
	Descriptor   descriptors.AppDescriptor
	ImageChecked bool
	BelowFloor   bool
	Err          error
}

// Report is the outcome of VerifyRegion. Err is the region-level failure that
// stopped the manager from being built; slot-level problems are in Slots.
type Report struct {
	Address uint32
	Header  descriptors.Header
	Slots   []SlotReport
	Err     error
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	if r.Err != nil {
		return false
	}
	for _, s := range r.Slots {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Errors returns every failure in the report.
func (r *Report) Errors() []error {
	var errs []error
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	for _, s := range r.Slots {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", s.Slot, s.Err))
		}
	}
	return errs
}

// VerifyRegion validates the region at address the way the bootloader does and
// then runs the optional checks in opts on every slot.
func VerifyRegion(mem descriptors.Memory, address uint32, opts VerifyOptions, logger hclog.Logger) *Report {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	report := &Report{Address: address}
	logger.Info("Verifying bootable region", "address", Word(address))

	mopts := []descriptors.Option{descriptors.WithLogger(logger.Named("descriptors"))}
	if opts.SlotNumberCheck {
		mopts = append(mopts, descriptors.WithSlotNumberCheck())
	}

	m, err := descriptors.NewManager(mem, address, mopts...)
	if err != nil {
		report.Err = err
		logger.Error("✗ Region rejected", "error", err)
		return report
	}
	report.Header = m.Header()
	logger.Info("✓ Region header valid",
		"version", report.Header.DescriptorVersion,
		"slots", m.SlotCount(),
		"active", m.ActiveSlotIndex(),
	)
	if !report.Header.DescriptorVersion.IsCompatible(descriptors.DescriptorVersion) {
		logger.Warn("Descriptor version differs in major number",
			"region", report.Header.DescriptorVersion,
			"tool", descriptors.DescriptorVersion,
		)
	}

	for slot := uint32(0); slot < m.SlotCount(); slot++ {
		sr := SlotReport{Slot: slot, Active: slot == m.ActiveSlotIndex()}

		d, err := m.AppAtSlot(slot)
		if err != nil {
			sr.Err = err
			report.Slots = append(report.Slots, sr)
			logger.Error("✗ Slot descriptor invalid", "slot", slot, "error", err)
			continue
		}
		sr.Descriptor = d
		logger.Info("✓ Slot descriptor valid", "slot", slot, "app_version", d.AppVersion)

		if opts.SecurityFloor != nil && d.SecurityVersion < *opts.SecurityFloor {
			sr.BelowFloor = true
			logger.Warn("Slot below security floor",
				"slot", slot,
				"security_version", d.SecurityVersion,
				"floor", *opts.SecurityFloor,
			)
		}

		if opts.Images {
			if d.SkipImageChecksum() {
				logger.Debug("Image checksum skipped by flag", "slot", slot)
			} else {
				sr.ImageChecked = true
				if err := VerifyImage(mem, d); err != nil {
					sr.Err = err
					logger.Error("✗ Image checksum failed", "slot", slot, "error", err)
				} else {
					logger.Info("✓ Image checksum valid", "slot", slot)
				}
			}
		}

		report.Slots = append(report.Slots, sr)
	}

	if report.OK() {
		logger.Info("✓ Region verification passed")
	} else {
		logger.Error("✗ Region verification failed", "error_count", len(report.Errors()))
	}
	return report
}

// IsRegionError reports whether err comes from the descriptor format rather
// than from I/O.
func IsRegionError(err error) bool {
	for _, target := range []error{
		descriptors.ErrInvalidSignature,
		descriptors.ErrInvalidHeaderChecksum,
		descriptors.ErrInvalidSlotCount,
		descriptors.ErrInvalidAppSlot,
		descriptors.ErrInvalidAppChecksum,
		descriptors.ErrSlotNumberMismatch,
		ErrImageChecksum,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
