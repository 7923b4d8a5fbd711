package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fan-ledger/internal/staging"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	var reviewPath string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Merge a reviewed file into today's ledger column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			review, err := staging.ReadReviewFile(reviewPath)
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := app.Committer.Commit(cmd.Context(), review.Entries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range res.Audit {
				fmt.Fprintln(out, a.String())
			}
			fmt.Fprintf(out, "Committed %d entries for %s: %d changes, %d members\n",
				len(review.Entries), res.Date, len(res.Audit), res.Members)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewPath, "review", "staging.json", "Reviewed file written by analyze")
	return cmd
}
