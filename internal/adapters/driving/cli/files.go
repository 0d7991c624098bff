package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List ingested source files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		collection, _ := cmd.Flags().GetString("collection")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.service.ListFiles(cmd.Context(), collection)
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No files.")
			return nil
		}
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\n", f.SourceFile, f.ChunkCount)
		}
		return nil
	},
}

func init() {
	filesCmd.Flags().StringP("collection", "c", "", "restrict to a collection")
	rootCmd.AddCommand(filesCmd)
}
