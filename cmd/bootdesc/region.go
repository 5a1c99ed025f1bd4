package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
	"github.com/provide-io/slimloader/go/bootdesc/pkg/provision"
)

var _ pflag.Value = (*provision.Word)(nil)

// regionFlags locate a region inside an image file.
type regionFlags struct {
	input  string
	base   provision.Word
	header provision.Word
}

func (f *regionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Path to the region image or flash dump (required)")
	cmd.Flags().Var(&f.base, "base", "Address of the first byte of the file")
	cmd.Flags().Var(&f.header, "header", "Address of the region header (defaults to --base)")

	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}
}

// headerAddress returns --header if it was given, --base otherwise.
func (f *regionFlags) headerAddress(cmd *cobra.Command) uint32 {
	if cmd.Flags().Changed("header") {
		return uint32(f.header)
	}
	return uint32(f.base)
}

// open returns the input file as Memory placed at --base.
func (f *regionFlags) open() (descriptors.Memory, func(), error) {
	file, err := os.Open(f.input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open region image: %w", err)
	}
	return descriptors.NewReaderAtMemory(file, uint32(f.base)), func() { _ = file.Close() }, nil
}
