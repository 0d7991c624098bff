package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <directory>",
	Short: "Ingest a directory of .aif-bin memory files",
	Long: `Scan a directory for .aif-bin memory files and ingest them into a
collection, created on demand. Re-ingesting a file replaces its prior
chunks.

With --watch the command keeps running and re-ingests files as they
change on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringP("collection", "c", "default", "target collection name")
	indexCmd.Flags().BoolP("recursive", "r", false, "walk subdirectories")
	indexCmd.Flags().BoolP("watch", "w", false, "keep watching for file changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	recursive, _ := cmd.Flags().GetBool("recursive")
	watch, _ := cmd.Flags().GetBool("watch")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	a.indexer.Progress = func(path string, chunks int) {
		bar.Describe(fmt.Sprintf("indexing %s", path))
		bar.Add(1) //nolint:errcheck
	}

	files, chunks, err := a.indexer.IndexDirectory(cmd.Context(), args[0], collection, recursive)
	bar.Finish() //nolint:errcheck
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files, %d chunks into %q\n", files, chunks, collection)

	if watch {
		return a.indexer.WatchDirectory(cmd.Context(), args[0], collection, recursive)
	}
	return nil
}
