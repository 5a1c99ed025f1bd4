package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/provision"
)

var (
	verifyRegion        regionFlags
	verifyImages        bool
	verifyStrictSlots   bool
	verifySecurityFloor uint32
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate a region the way the bootloader does",
	Long: `Validate the region header and every app descriptor, then check each
image against its stored CRC-32/CKSUM unless the descriptor skips it.
Exits 1 if any check fails.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyRegion.register(verifyCmd)
	verifyCmd.Flags().BoolVar(&verifyImages, "images", true, "Check image checksums")
	verifyCmd.Flags().BoolVar(&verifyStrictSlots, "strict-slots", false, "Require app_slot_number to match the slot position")
	verifyCmd.Flags().Uint32Var(&verifySecurityFloor, "security-floor", 0, "Report slots whose security version is below this value")
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := newLogger("bootdesc.verify")

	mem, done, err := verifyRegion.open()
	if err != nil {
		return err
	}
	defer done()

	opts := provision.VerifyOptions{
		SlotNumberCheck: verifyStrictSlots,
		Images:          verifyImages,
	}
	if cmd.Flags().Changed("security-floor") {
		floor := verifySecurityFloor
		opts.SecurityFloor = &floor
	}

	report := provision.VerifyRegion(mem, verifyRegion.headerAddress(cmd), opts, logger)
	printReport(cmd.OutOrStdout(), report)

	if !report.OK() {
		return fmt.Errorf("%w: %d error(s)", errInvalid, len(report.Errors()))
	}
	return nil
}

func printReport(w io.Writer, r *provision.Report) {
	if r.Err != nil {
		fmt.Fprintf(w, "✗ Region at %s: %v\n", provision.Word(r.Address), r.Err)
		return
	}
	fmt.Fprintf(w, "✓ Region at %s: version %s, %d slot(s), active %d\n",
		provision.Word(r.Address), r.Header.DescriptorVersion, r.Header.NumAppSlots, r.Header.ActiveAppSlot)

	for _, s := range r.Slots {
		mark := "✓"
		if s.Err != nil {
			mark = "✗"
		}
		line := fmt.Sprintf("%s Slot %d", mark, s.Slot)
		if s.Active {
			line += " (active)"
		}
		if s.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", line, s.Err)
			continue
		}
		line += fmt.Sprintf(": app %d, security %d", s.Descriptor.AppVersion, s.Descriptor.SecurityVersion)
		switch {
		case s.ImageChecked:
			line += ", image ok"
		case s.Descriptor.SkipImageChecksum():
			line += ", image check skipped"
		}
		if s.BelowFloor {
			line += ", below security floor"
		}
		fmt.Fprintln(w, line)
	}
}
