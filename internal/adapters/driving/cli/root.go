// Package cli implements the aifbin-recall command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/config/file"
	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/embedding/local"
	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/storage/sqlite"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
	"github.com/Terronex-dev/aifbin-recall/internal/core/services"
	"github.com/Terronex-dev/aifbin-recall/internal/logger"
)

// Persistent flag values.
var (
	flagConfig  string
	flagDB      string
	flagVerbose bool
)

// app holds the wired core, built lazily by commands that need it.
type app struct {
	cfg     *configfile.Config
	store   *sqlite.Store
	indexer *services.Indexer
	service driving.RecallService
}

var rootCmd = &cobra.Command{
	Use:   "aifbin-recall",
	Short: "Local-first retrieval over .aif-bin semantic memory files",
	Long: `aifbin-recall ingests pre-embedded .aif-bin memory files into a local
SQLite index and answers queries with hybrid (vector + keyword) search,
via the command line, an HTTP/JSON API, or an MCP tool server.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.aifbin-recall/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "index database path (default ~/.aifbin-recall/index.db)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp loads config and wires the core. Callers own the returned
// app and must Close it.
func newApp() (*app, error) {
	cfg, err := configfile.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}

	store, err := sqlite.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	encoder, err := local.NewEncoder(local.Config{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	engine := services.NewSearchEngine(store)
	indexer := services.NewIndexer(store, nil)

	return &app{
		cfg:     cfg,
		store:   store,
		indexer: indexer,
		service: services.NewRecallService(store, engine, indexer, encoder),
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
