package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/runlog"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit int
		batch string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent entries of the run log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rl := runlog.New(db, a.log)
			var records []models.RunRecord
			if batch != "" {
				records, err = rl.ForBatch(cmd.Context(), batch)
			} else {
				records, err = rl.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().StringVar(&batch, "batch", "", "Show every run of one batch")
	return cmd
}

func printRuns(out io.Writer, records []models.RunRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tBATCH\tTABLE\tSOURCE\tSTATUS\tLOADED\tREJECTED\tVALID\tSECONDS\tSTARTED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, str(r.BatchID), r.TableName, str(r.Source), r.Status,
			num(r.RowsLoaded), num(r.RowsRejected), flag(r.ValidationPassed),
			r.DurationSeconds.Decimal.StringFixed(2), r.RunTimestamp.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}

func str(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func num(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}

func flag(b *bool) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprint(*b)
}
