package cli

import (
	"github.com/spf13/cobra"

	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.Run(cmd.Context(), a.service)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
