package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/repositories"
)

type deliveryView struct {
	*models.Delivery
	Delivered bool `json:"delivered"`
	Late      bool `json:"late"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <order_id>",
		Short: "Print one delivery with its client and line items as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			d, err := repositories.GetDeliveryByID(cmd.Context(), db, args[0])
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("order %q not found", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(deliveryView{Delivery: d, Delivered: d.IsDelivered(), Late: d.IsLate()})
		},
	}
}
