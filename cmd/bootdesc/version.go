package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tool and descriptor format versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bootdesc %s\n", version)
		fmt.Fprintf(out, "Descriptor format: %s (0x%08x)\n", descriptors.DescriptorVersion.Semver(), uint32(descriptors.DescriptorVersion))
		fmt.Fprintf(out, "Built: %s\n", buildTimestamp())
	},
}

func buildTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}
