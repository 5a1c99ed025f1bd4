package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/provision"
)

var (
	layoutPath string
	outputPath string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a region image from a layout file",
	Long: `Build a region image from a JSON or YAML layout file. The image holds the
region header, the app descriptor array and, for slots that name an image
file, the image and its CRC-32/CKSUM word. Unwritten bytes read as 0xFF.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Path to the layout file (required)")
	buildCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path for the region image (required)")

	if err := buildCmd.MarkFlagRequired("layout"); err != nil {
		panic(err)
	}
	if err := buildCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := newLogger("bootdesc.build")

	region, err := provision.NewBuilder(logger).BuildFile(layoutPath, outputPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d bytes at %s\n", outputPath, len(region.Data), provision.Word(region.Base))
	return nil
}
