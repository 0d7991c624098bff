package cli

import (
	"github.com/spf13/cobra"

	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/embedding/local"
	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driving/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/JSON API server",
	Long: `Start the HTTP/JSON API server for programmatic clients.

The server binds localhost:3847 by default; override with --listen or
the listen key in the config file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "bind address (default localhost:3847)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	if listen == "" {
		listen = a.cfg.Listen
	}

	dims := 0
	if info, ok := local.Models[a.cfg.Embedding.Model]; ok {
		dims = info.Dimensions
	}

	server := httpapi.NewServer(a.service, httpapi.Settings{
		DBPath:         a.store.Path(),
		EmbeddingModel: a.cfg.Embedding.Model,
		EmbeddingDims:  dims,
		HybridWeight:   a.cfg.Search.HybridWeight,
		Limit:          a.cfg.Search.Limit,
	})

	return server.Run(cmd.Context(), listen)
}
