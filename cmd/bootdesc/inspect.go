package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
	"github.com/provide-io/slimloader/go/bootdesc/pkg/provision"
)

var (
	inspectRegion regionFlags
	inspectJSON   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the region header and app descriptors",
	Long: `Print the region header and every app descriptor it points to. Slots whose
descriptors fail their checksum are listed with the error.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectRegion.register(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print JSON instead of text")
}

type headerView struct {
	Address           provision.Word `json:"address"`
	DescriptorVersion string         `json:"descriptor_version"`
	HeaderSize        uint32         `json:"descriptor_header_size_bytes"`
	AppDescriptorSize uint32         `json:"app_descriptor_size_bytes"`
	DescriptorBase    provision.Word `json:"app_descriptor_base_address"`
	NumAppSlots       uint32         `json:"num_app_slots"`
	ActiveAppSlot     uint32         `json:"active_app_slot"`
	Checksum          provision.Word `json:"header_checksum"`
}

type slotView struct {
	Slot                   uint32         `json:"slot"`
	Address                provision.Word `json:"address"`
	Active                 bool           `json:"active"`
	AppSlotNumber          uint32         `json:"app_slot_number"`
	AppVersion             uint32         `json:"app_version"`
	SecurityVersion        uint32         `json:"security_version"`
	Flags                  []string       `json:"flags"`
	StoredAddress          provision.Word `json:"stored_address"`
	ImageSizeBytes         uint32         `json:"image_size_bytes"`
	StoredCRCAddress       provision.Word `json:"stored_crc_address"`
	ExecutionCopySizeBytes uint32         `json:"execution_copy_size_bytes"`
	ExecutionAddress       provision.Word `json:"execution_address"`
	Checksum               provision.Word `json:"descriptor_checksum"`
	Error                  string         `json:"error,omitempty"`
}

type regionView struct {
	Header headerView `json:"header"`
	Slots  []slotView `json:"slots"`
}

func flagNames(d descriptors.AppDescriptor) []string {
	names := []string{}
	if d.CopyToExecution() {
		names = append(names, provision.FlagNameCopy)
	}
	if d.SkipImageChecksum() {
		names = append(names, provision.FlagNameSkipImageCRC)
	}
	if unknown := d.UnknownFlags(); unknown != 0 {
		names = append(names, provision.Word(unknown).String())
	}
	return names
}

// unchecked decodes the descriptor at address without verifying its checksum.
func unchecked(mem descriptors.Memory, address uint32) (descriptors.AppDescriptor, error) {
	var raw [descriptors.AppDescriptorSize]byte
	if err := mem.ReadAt(raw[:], address); err != nil {
		return descriptors.AppDescriptor{}, err
	}
	return descriptors.UnpackApp(raw[:])
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := newLogger("bootdesc.inspect")

	mem, done, err := inspectRegion.open()
	if err != nil {
		return err
	}
	defer done()

	address := inspectRegion.headerAddress(cmd)
	header, err := descriptors.ParseHeader(mem, address)
	if err != nil {
		return err
	}
	logger.Debug("Parsed region header", "address", provision.Word(address), "slots", header.NumAppSlots)

	view := regionView{
		Header: headerView{
			Address:           provision.Word(address),
			DescriptorVersion: header.DescriptorVersion.String(),
			HeaderSize:        header.DescriptorHeaderSizeBytes,
			AppDescriptorSize: header.AppDescriptorSizeBytes,
			DescriptorBase:    provision.Word(header.AppDescriptorBaseAddress),
			NumAppSlots:       header.NumAppSlots,
			ActiveAppSlot:     header.ActiveAppSlot,
			Checksum:          provision.Word(header.HeaderChecksum),
		},
	}

	failed := false
	for slot := uint32(0); slot < header.NumAppSlots; slot++ {
		sv := slotView{
			Slot:    slot,
			Address: provision.Word(header.SlotAddress(slot)),
			Active:  slot == header.ActiveAppSlot,
		}
		d, err := descriptors.ParseAppAtSlot(mem, header.AppDescriptorBaseAddress, slot)
		if err != nil {
			failed = true
			sv.Error = err.Error()
			logger.Debug("Slot descriptor invalid", "slot", slot, "error", err)
			// Show the fields of a descriptor that was readable but failed its checksum
			if !errors.Is(err, descriptors.ErrInvalidAppChecksum) {
				view.Slots = append(view.Slots, sv)
				continue
			}
			if d, err = unchecked(mem, header.SlotAddress(slot)); err != nil {
				view.Slots = append(view.Slots, sv)
				continue
			}
		}
		sv.AppSlotNumber = d.AppSlotNumber
		sv.AppVersion = d.AppVersion
		sv.SecurityVersion = d.SecurityVersion
		sv.Flags = flagNames(d)
		sv.StoredAddress = provision.Word(d.StoredAddress)
		sv.ImageSizeBytes = d.ImageSizeBytes
		sv.StoredCRCAddress = provision.Word(d.StoredCRCAddress)
		sv.ExecutionCopySizeBytes = d.ExecutionCopySizeBytes
		sv.ExecutionAddress = provision.Word(d.ExecutionAddress)
		sv.Checksum = provision.Word(d.DescriptorChecksum)
		view.Slots = append(view.Slots, sv)
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	} else {
		printRegion(out, view)
	}

	if failed {
		return fmt.Errorf("%w: one or more slot descriptors are invalid", errInvalid)
	}
	return nil
}

func printRegion(w io.Writer, v regionView) {
	h := v.Header
	fmt.Fprintf(w, "Region header at %s\n", h.Address)
	fmt.Fprintf(w, "  Descriptor version: %s\n", h.DescriptorVersion)
	fmt.Fprintf(w, "  Sizes:              header %d, descriptor %d\n", h.HeaderSize, h.AppDescriptorSize)
	fmt.Fprintf(w, "  Descriptor array:   %s\n", h.DescriptorBase)
	fmt.Fprintf(w, "  Slots:              %d (active %d)\n", h.NumAppSlots, h.ActiveAppSlot)
	fmt.Fprintf(w, "  Checksum:           %s\n", h.Checksum)

	for _, s := range v.Slots {
		marker := " "
		if s.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "\n%s Slot %d at %s\n", marker, s.Slot, s.Address)
		if s.Error != "" {
			fmt.Fprintf(w, "    Error:            %s\n", s.Error)
			if s.Flags == nil {
				continue
			}
		}
		fmt.Fprintf(w, "    Slot number:      %d\n", s.AppSlotNumber)
		fmt.Fprintf(w, "    App version:      %d\n", s.AppVersion)
		fmt.Fprintf(w, "    Security version: %d\n", s.SecurityVersion)
		fmt.Fprintf(w, "    Flags:            %s\n", strings.Join(s.Flags, ", "))
		fmt.Fprintf(w, "    Stored:           %s (%d bytes)\n", s.StoredAddress, s.ImageSizeBytes)
		fmt.Fprintf(w, "    Image CRC at:     %s\n", s.StoredCRCAddress)
		fmt.Fprintf(w, "    Execution:        %s (copy %d bytes)\n", s.ExecutionAddress, s.ExecutionCopySizeBytes)
		fmt.Fprintf(w, "    Checksum:         %s\n", s.Checksum)
	}
}
