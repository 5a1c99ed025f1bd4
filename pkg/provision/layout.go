package provision

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

// Slot kinds
const (
	KindExecuteInPlace = "xip"
	KindRAM            = "ram"
)

// Flag names accepted in a layout
const (
	FlagNameCopy         = "copy"
	FlagNameSkipImageCRC = "skip_image_crc"
)

// ErrNoImageChecksum is returned for a slot whose image would be checked
// but has nowhere to keep its checksum.
var ErrNoImageChecksum = errors.New("slot has no image checksum address")

var flagNames = map[string]uint32{
	FlagNameCopy:         descriptors.FlagCopyToExecutionAddress,
	FlagNameSkipImageCRC: descriptors.FlagSkipImageChecksum,
}

// Layout describes a bootable region to provision. It is read from a JSON or
// YAML file.
//
// Required fields:
// - BaseAddress: address of the first byte of the produced region image
// - Slots: at least one app image
//
// Optional fields:
// - HeaderAddress: defaults to BaseAddress
// - DescriptorAddress: defaults to directly after the header
// - Size: region image size, defaults to the smallest size holding everything
// - DescriptorVersion: must be compatible with descriptors.DescriptorVersion
type Layout struct {
	BaseAddress       Word         `json:"base_address" yaml:"base_address"`
	Size              Word         `json:"size,omitempty" yaml:"size,omitempty"`
	HeaderAddress     *Word        `json:"header_address,omitempty" yaml:"header_address,omitempty"`
	DescriptorAddress *Word        `json:"descriptor_address,omitempty" yaml:"descriptor_address,omitempty"`
	DescriptorVersion string       `json:"descriptor_version,omitempty" yaml:"descriptor_version,omitempty"`
	ActiveSlot        uint32       `json:"active_slot" yaml:"active_slot"`
	Slots             []SlotLayout `json:"slots" yaml:"slots"`

	// dir resolves relative image paths; set by LoadLayout
	dir string
}

// SlotLayout describes one app image. Its slot number is its position in
// Layout.Slots.
type SlotLayout struct {
	Kind             string   `json:"kind,omitempty" yaml:"kind,omitempty"` // xip (default) or ram
	AppVersion       uint32   `json:"app_version" yaml:"app_version"`
	SecurityVersion  uint32   `json:"security_version" yaml:"security_version"`
	Flags            []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	StoredAddress    Word     `json:"stored_address" yaml:"stored_address"`
	ImageSizeBytes   Word     `json:"image_size_bytes,omitempty" yaml:"image_size_bytes,omitempty"`
	StoredCRCAddress *Word    `json:"stored_crc_address,omitempty" yaml:"stored_crc_address,omitempty"`
	RAMAddress       *Word    `json:"ram_address,omitempty" yaml:"ram_address,omitempty"`
	Image            string   `json:"image,omitempty" yaml:"image,omitempty"` // Image file placed at StoredAddress
}

// LoadLayout reads a layout file. Files ending in .yaml or .yml are YAML,
// anything else is JSON.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}

	var l Layout
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &l)
	default:
		err = json.Unmarshal(data, &l)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}

	l.dir = filepath.Dir(path)
	return &l, nil
}

// Validate checks the layout without touching image files.
func (l *Layout) Validate() error {
	if len(l.Slots) == 0 {
		return fmt.Errorf("%w: layout has no slots", descriptors.ErrInvalidSlotCount)
	}
	if l.ActiveSlot >= uint32(len(l.Slots)) {
		return fmt.Errorf("%w: active slot %d, layout has %d slots", descriptors.ErrInvalidAppSlot, l.ActiveSlot, len(l.Slots))
	}
	if l.DescriptorVersion != "" {
		v, err := descriptors.ParseVersion(l.DescriptorVersion)
		if err != nil {
			return err
		}
		if !v.IsCompatible(descriptors.DescriptorVersion) {
			return fmt.Errorf("descriptor version %s is not compatible with %s", v, descriptors.DescriptorVersion)
		}
	}
	if l.headerAddress() < uint32(l.BaseAddress) {
		return fmt.Errorf("header address %s below base address %s", Word(l.headerAddress()), l.BaseAddress)
	}
	for i, s := range l.Slots {
		if err := s.validate(); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

func (l *Layout) headerAddress() uint32 {
	if l.HeaderAddress != nil {
		return uint32(*l.HeaderAddress)
	}
	return uint32(l.BaseAddress)
}

func (l *Layout) descriptorAddress() uint32 {
	if l.DescriptorAddress != nil {
		return uint32(*l.DescriptorAddress)
	}
	return l.headerAddress() + descriptors.HeaderSize
}

func (l *Layout) imagePath(s SlotLayout) string {
	if filepath.IsAbs(s.Image) || l.dir == "" {
		return s.Image
	}
	return filepath.Join(l.dir, s.Image)
}

func (s SlotLayout) kind() string {
	if s.Kind == "" {
		return KindExecuteInPlace
	}
	return strings.ToLower(s.Kind)
}

func (s SlotLayout) flags() (uint32, error) {
	var flags uint32
	for _, name := range s.Flags {
		bit, ok := flagNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
		flags |= bit
	}
	return flags, nil
}

func (s SlotLayout) validate() error {
	flags, err := s.flags()
	if err != nil {
		return err
	}
	switch s.kind() {
	case KindExecuteInPlace:
		if s.RAMAddress != nil {
			return fmt.Errorf("ram_address set on an %s slot", KindExecuteInPlace)
		}
	case KindRAM:
		if s.RAMAddress == nil {
			return fmt.Errorf("%s slot needs ram_address", KindRAM)
		}
	default:
		return fmt.Errorf("unknown slot kind %q", s.Kind)
	}
	if s.Image == "" && s.ImageSizeBytes == 0 {
		return fmt.Errorf("image_size_bytes or image is required")
	}
	if s.StoredCRCAddress == nil && flags&descriptors.FlagSkipImageChecksum == 0 {
		return fmt.Errorf("%w: set stored_crc_address or the %s flag", ErrNoImageChecksum, FlagNameSkipImageCRC)
	}
	return nil
}

// descriptor builds the app descriptor for slot given the final image size.
func (s SlotLayout) descriptor(slot, imageSize uint32) (descriptors.AppDescriptor, error) {
	flags, err := s.flags()
	if err != nil {
		return descriptors.AppDescriptor{}, err
	}
	var crcAddress uint32
	if s.StoredCRCAddress != nil {
		crcAddress = uint32(*s.StoredCRCAddress)
	}
	if s.kind() == KindRAM {
		return descriptors.NewRAMImage(slot, s.AppVersion, s.SecurityVersion, flags,
			uint32(s.StoredAddress), imageSize, uint32(*s.RAMAddress), crcAddress), nil
	}
	return descriptors.NewExecuteInPlace(slot, s.AppVersion, s.SecurityVersion, flags,
		uint32(s.StoredAddress), imageSize, crcAddress), nil
}
