package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRollupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "rollup <weekly|monthly|summary|daily>",
		Short:     "Print a view derived from the daily ledger",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"weekly", "monthly", "summary", "daily"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			table, err := app.Committer.Rollup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(table) < 2 {
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
				return nil
			}
			aligns := make([]columnAlignment, len(table[0]))
			for i := 1; i < len(aligns); i++ {
				aligns[i] = alignRight
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(table[0], table[1:], aligns))
			return nil
		},
	}
}
