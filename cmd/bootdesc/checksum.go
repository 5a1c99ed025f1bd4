package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum FILE...",
	Short: "Print the CRC-32/CKSUM of files",
	Long:  `Print the CRC-32/CKSUM of each file, the checksum descriptors and images are protected with. Use - for standard input.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChecksum,
}

func runChecksum(cmd *cobra.Command, args []string) error {
	logger := newLogger("bootdesc.checksum")
	out := cmd.OutOrStdout()

	for _, name := range args {
		sum, err := checksumFile(cmd, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Debug("Checksummed file", "path", name, "checksum", fmt.Sprintf("0x%08x", sum))
		fmt.Fprintf(out, "0x%08x  %s\n", sum, name)
	}
	return nil
}

func checksumFile(cmd *cobra.Command, name string) (uint32, error) {
	if name == "-" {
		return descriptors.ChecksumReader(cmd.InOrStdin())
	}
	f, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return descriptors.ChecksumReader(f)
}
