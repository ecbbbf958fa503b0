package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spangraph/spangraph/internal/importer"
	"github.com/spangraph/spangraph/internal/record"
)

func importCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import one or more record documents into the graph",
		Long: `Import YAML or JSON record documents, one document per file.

Each file is one independent import call with its own transaction and its own
report. Use - as the only argument to read a single document from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("import: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			imp := newImporter(st, logger)

			if concurrency <= 0 {
				concurrency = cfg.Import.Concurrency
			}

			reports, failed := runImports(ctx, imp, args, concurrency)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, report := range reports {
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("import: encoding report: %w", err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("import: %d of %d records failed", failed, len(args))
			}
			fmt.Fprintf(os.Stderr, "Imported %d records\n", len(args))
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel imports (default from config)")
	return cmd
}

// runImports runs one independent import per file, at most concurrency at a
// time. A read or parse failure becomes that file's own failed report and
// never stops the other files. Reports come back in input order.
func runImports(ctx context.Context, imp *importer.Importer, paths []string, concurrency int) ([]*importer.Report, int) {
	reports := make([]*importer.Report, len(paths))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			report := importFile(gctx, imp, path)
			mu.Lock()
			reports[i] = report
			if !report.Success {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return reports, failed
}

// importFile reads, parses, and imports one record document.
func importFile(ctx context.Context, imp *importer.Importer, path string) *importer.Report {
	data, err := readRecordFile(path)
	if err != nil {
		report := importer.NewReport()
		report.AddGeneralError("reading %s: %v", path, err)
		return report
	}
	rec, err := record.Parse(data)
	if err != nil {
		report := importer.NewReport()
		report.AddGeneralError("parsing %s: %v", path, err)
		return report
	}
	return imp.Import(ctx, rec)
}

func readRecordFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
