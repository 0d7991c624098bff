package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored memory chunks",
	Long: `Run a hybrid (vector + keyword) search over stored chunks. The query
is embedded through the configured local encoder.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringP("collection", "c", "", "restrict to a collection")
	searchCmd.Flags().IntP("limit", "n", 0, "maximum results (default 10)")
	searchCmd.Flags().Float64P("threshold", "t", 0, "minimum score")
	searchCmd.Flags().Float64("hybrid-weight", -1, "vector weight in [0,1] (default 0.7)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	weight, _ := cmd.Flags().GetFloat64("hybrid-weight")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := domain.SearchOptions{
		Collection: collection,
		Threshold:  threshold,
	}
	if cmd.Flags().Changed("limit") {
		opts.Limit = limit
		opts.LimitSet = true
	}
	if cmd.Flags().Changed("hybrid-weight") {
		opts.HybridWeight = weight
		opts.WeightSet = true
	}

	results, err := a.service.Search(cmd.Context(), driving.SearchRequest{
		Query:   args[0],
		Options: opts,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results.")
		return nil
	}

	out := cmd.OutOrStdout()
	for i := range results {
		r := &results[i]
		fmt.Fprintf(out, "%2d. %.4f  (vector %.4f, keyword %.4f)  %s\n",
			i+1, r.Score, r.VectorScore, r.KeywordScore, r.Chunk.ID)
		fmt.Fprintf(out, "    %s#%d\n", r.Chunk.SourceFile, r.Chunk.ChunkIndex)
		fmt.Fprintf(out, "    %s\n", snippet(r.Chunk.Text, 160))
	}
	return nil
}

// snippet truncates text to max runes for single-line display.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
