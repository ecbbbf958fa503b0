package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spangraph/spangraph/internal/models"
)

func getCmd() *cobra.Command {
	var (
		spanType        string
		withConnections bool
	)

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch one span by name and type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			t := models.SpanType(spanType)
			if !t.IsValid() {
				return fmt.Errorf("get: invalid span type %q", spanType)
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("get: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			span, err := st.GetSpan(ctx, args[0], t)
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}

			out := struct {
				Span        *models.Span        `json:"span"`
				Connections []models.Connection `json:"connections,omitempty"`
			}{Span: span}

			if withConnections {
				conns, err := st.GetConnections(ctx, span.ID)
				if err != nil {
					return fmt.Errorf("get: loading connections: %w", err)
				}
				out.Connections = conns
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&spanType, "type", "t", "person", "span type: person, organisation, band, place")
	cmd.Flags().BoolVar(&withConnections, "connections", false, "include the span's connections")
	return cmd
}
