package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spangraph/spangraph/internal/config"
	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/importer"
	"github.com/spangraph/spangraph/internal/registry"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "spangraph",
		Short: "Biographical entity-relationship graph importer",
		Long:  "Spangraph ingests declarative records for people, organisations and bands and materializes them into a graph of temporally-scoped spans and connections.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		importCmd(),
		getCmd(),
		listCmd(),
		statsCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(logger *slog.Logger) (graph.Store, error) {
	return graph.NewNeo4jStore(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
		logger,
	)
}

func newRegistry(logger *slog.Logger) *registry.Client {
	return registry.NewClient(
		cfg.Registry.BaseURL,
		time.Duration(cfg.Registry.TimeoutSeconds)*time.Second,
		logger,
	)
}

func newImporter(st graph.Store, logger *slog.Logger) *importer.Importer {
	return importer.New(st, newRegistry(logger), cfg.Import.OwnerID, logger)
}
