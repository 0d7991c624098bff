package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the CLI version, overridable at build time via
// -ldflags "-X .../cli.Version=...".
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aifbin-recall %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
