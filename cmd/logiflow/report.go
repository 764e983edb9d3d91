package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/loader"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/repositories"
)

type report struct {
	Counts  map[string]int                 `json:"counts"`
	Regions []repositories.RegionSummary   `json:"regions"`
	Daily   []repositories.DailyDeliveries `json:"daily"`
	Late    []*models.Delivery             `json:"late"`
}

func newReportCmd(a *app) *cobra.Command {
	var (
		days   int
		late   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print delivery summaries from the reporting views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rep, err := buildReport(cmd.Context(), db, days, late)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "Number of most recent days to show")
	cmd.Flags().IntVar(&late, "late", 10, "Number of late deliveries to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of tables")
	return cmd
}

func buildReport(ctx context.Context, db *bun.DB, days, late int) (*report, error) {
	counts, err := repositories.CountRows(ctx, db)
	if err != nil {
		return nil, err
	}
	regions, err := repositories.GetRegionSummaries(ctx, db)
	if err != nil {
		return nil, err
	}
	daily, err := repositories.GetDailyDeliveries(ctx, db, days)
	if err != nil {
		return nil, err
	}
	rep := &report{Counts: counts, Regions: regions, Daily: daily}
	if late > 0 {
		if rep.Late, err = repositories.GetLateDeliveries(ctx, db, late); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func printReport(out io.Writer, rep *report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")
	for _, t := range loader.Catalog() {
		fmt.Fprintf(w, "%s\t%d\n", t.Name, rep.Counts[t.Name])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "REGION\tORDERS\tDELIVERED\tCANCELED\tAVG HOURS")
	for _, r := range rep.Regions {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", str(r.Region), r.TotalOrders, r.DeliveredOrders, r.CanceledOrders, hours(r.AvgDeliveryHours.Valid, r.AvgDeliveryHours.Decimal.StringFixed(1)))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "DAY\tORDERS\tDELIVERED\tAVG HOURS")
	for _, d := range rep.Daily {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", d.Day, d.TotalOrders, d.DeliveredOrders, hours(d.AvgDeliveryHours.Valid, d.AvgDeliveryHours.Decimal.StringFixed(1)))
	}

	if len(rep.Late) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "LATE ORDER\tPURCHASED\tESTIMATED\tDELIVERED")
		for _, d := range rep.Late {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.OrderID, d.PurchaseTimestamp.Format(time.DateTime),
				d.EstimatedDeliveryDate.Format(time.DateTime), d.DeliveredCustomerDate.Format(time.DateTime))
		}
	}
	_ = w.Flush()
}

func hours(valid bool, s string) string {
	if !valid {
		return "-"
	}
	return s
}
