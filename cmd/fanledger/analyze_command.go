package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/ingest"
	"github.com/joseph-ayodele/fan-ledger/internal/pipeline"
	"github.com/joseph-ayodele/fan-ledger/internal/staging"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var reviewPath string
	var previewDir string
	var includeHidden bool

	cmd := &cobra.Command{
		Use:   "analyze <images|dirs>...",
		Short: "Read leaderboard screenshots into a review file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			sources, _, stats, err := ingest.Collect(args, !includeHidden, nil)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return fmt.Errorf("no screenshots found in %s", strings.Join(args, ", "))
			}

			sess, err := app.Analyze(cmd.Context(), sources)
			out := cmd.OutOrStdout()
			if sess != nil {
				for _, f := range sess.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", f.Source, f.Reason)
				}
			}
			if errors.Is(err, pipeline.ErrNothingRecognized) {
				return fmt.Errorf("%w in %d screenshots", err, len(sources))
			}
			if err != nil {
				return err
			}

			if previewDir != "" {
				if err := writePreviews(previewDir, sess.Previews); err != nil {
					return err
				}
			}
			if err := staging.WriteReviewFile(reviewPath, sess); err != nil {
				return err
			}

			fmt.Fprintln(out, renderEntries(sess.Entries))
			fmt.Fprintf(out, "%d entries from %d screenshots (%d duplicates skipped)\n",
				len(sess.Entries), stats.Collected, stats.Deduplicated)
			fmt.Fprintf(out, "Review %s, then run: fanledger commit --review %s\n", reviewPath, reviewPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewPath, "review", "staging.json", "Review file to write")
	cmd.Flags().StringVar(&previewDir, "previews", "", "Directory to write cropped preview JPEGs into")
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "Include hidden files and directories")
	return cmd
}

func renderEntries(entries []extract.Entry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{strconv.Itoa(i + 1), e.Nickname, humanize.Comma(e.FanCount)})
	}
	return renderTable([]string{"#", "Nickname", "Fans"}, rows, []columnAlignment{alignRight, alignLeft, alignRight})
}

func writePreviews(dir string, previews []staging.Preview) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	for i, p := range previews {
		base := strings.TrimSuffix(filepath.Base(p.Source), filepath.Ext(p.Source))
		name := filepath.Join(dir, fmt.Sprintf("%02d-%s.jpg", i+1, base))
		if err := os.WriteFile(name, p.JPEG, 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
	}
	return nil
}
