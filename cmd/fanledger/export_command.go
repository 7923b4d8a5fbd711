package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fan-ledger/internal/export"
	"github.com/joseph-ayodele/fan-ledger/internal/ledger"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath, fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger and its rollups to a standalone XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDateFlag("from", fromStr)
			if err != nil {
				return err
			}
			to, err := parseDateFlag("to", toStr)
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			svc := export.NewService(app.Committer, app.Config.Ledger, nil)
			data, err := svc.ExportLedgerXLSX(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "ledger-export.xlsx", "Output XLSX file path")
	cmd.Flags().StringVar(&fromStr, "from", "", "First daily column to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "Last daily column to include, YYYY-MM-DD")
	return cmd
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(ledger.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date format, use YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}
