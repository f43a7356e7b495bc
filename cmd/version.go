package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		line := "timesgrid " + version
		if info, ok := debug.ReadBuildInfo(); ok {
			line += " (" + info.GoVersion + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	},
}
