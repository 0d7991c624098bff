package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cols, err := a.service.ListCollections(cmd.Context())
		if err != nil {
			return err
		}

		if len(cols) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No collections.")
			return nil
		}
		for i := range cols {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d files\t%d chunks\n",
				cols[i].Name, cols[i].FileCount, cols[i].ChunkCount)
		}
		return nil
	},
}

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		col, err := a.service.CreateCollection(cmd.Context(), args[0], description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Collection %q (%s)\n", col.Name, col.ID)
		return nil
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.service.DeleteCollection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("collection %q not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
		return nil
	},
}

func init() {
	collectionsCreateCmd.Flags().StringP("description", "d", "", "collection description")
	collectionsCmd.AddCommand(collectionsListCmd, collectionsCreateCmd, collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
}
