package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/logging"
	"github.com/provide-io/slimloader/go/bootdesc/pkg/provision"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK      = 0
	exitInvalid = 1 // the region or an image failed validation
	exitFailure = 2 // I/O, usage or layout errors
)

var (
	logLevel string
	rootCmd  *cobra.Command

	// closeLog releases the log file opened by newLogger, if any
	closeLog = func() {}
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "bootdesc",
		Short:         "Build and check bootable region descriptors",
		Long:          `Build, inspect and verify the region header and app image descriptors a two-stage bootloader reads to pick an application image.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, json[:level])")

	rootCmd.AddCommand(buildCmd, inspectCmd, verifyCmd, checksumCmd, versionCmd)
}

// newLogger creates the command logger from --log-level and the environment.
func newLogger(name string) hclog.Logger {
	settings := logging.Resolve(logLevel)
	output, done := logging.Output()
	closeLog = done

	logger := settings.Logger(name, output)
	logger.Trace("Logger configured", "level", settings.Level, "source", settings.Source, "json", settings.JSON)
	return logger
}

// errInvalid marks a failure where the command ran but the region did not
// pass its checks.
var errInvalid = errors.New("validation failed")

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalid), provision.IsRegionError(err):
		return exitInvalid
	default:
		return exitFailure
	}
}

func main() {
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
