package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spangraph/spangraph/internal/models"
)

func listCmd() *cobra.Command {
	var spanType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spans, optionally filtered by type",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			t := models.SpanType(spanType)
			if spanType != "" && !t.IsValid() {
				return fmt.Errorf("list: invalid span type %q", spanType)
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("list: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			spans, err := st.ListSpans(ctx, t)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tSTATE\tSTART\tEND")
			for i := range spans {
				s := &spans[i]
				start, end := "-", "-"
				if s.Start != nil {
					start = s.Start.String()
				}
				if s.End != nil {
					end = s.End.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Type, s.State, start, end)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&spanType, "type", "t", "", "filter by span type")
	return cmd
}
