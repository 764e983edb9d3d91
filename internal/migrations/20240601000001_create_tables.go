package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{
			(*models.Client)(nil),
			(*models.Hub)(nil),
			(*models.CargoType)(nil),
		} {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := db.NewCreateTable().
			Model((*models.Delivery)(nil)).
			IfNotExists().
			ForeignKey(`("customer_id") REFERENCES "customers" ("customer_id") ON DELETE SET NULL`).
			Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewCreateTable().
			Model((*models.DeliveryLineItem)(nil)).
			IfNotExists().
			ForeignKey(`("order_id") REFERENCES "orders" ("order_id") ON DELETE CASCADE`).
			ForeignKey(`("product_id") REFERENCES "products" ("product_id") ON DELETE SET NULL`).
			ForeignKey(`("seller_id") REFERENCES "sellers" ("seller_id") ON DELETE SET NULL`).
			Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewCreateTable().Model((*models.RunRecord)(nil)).IfNotExists().Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{
			(*models.RunRecord)(nil),
			(*models.DeliveryLineItem)(nil),
			(*models.Delivery)(nil),
			(*models.CargoType)(nil),
			(*models.Hub)(nil),
			(*models.Client)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
