package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the graph store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				fmt.Printf("store: unreachable (%v)\n", err)
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			if _, err := st.Stats(ctx); err != nil {
				fmt.Printf("store: connected, query failed (%v)\n", err)
				return err
			}
			fmt.Println("store: ok")
			return nil
		},
	}
}
