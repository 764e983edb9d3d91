package fakestore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/sources"
)

// Fetcher pulls products, users and carts and maps them to table datasets.
type Fetcher struct {
	client *Client
	log    *zap.Logger
	now    func() time.Time
	rawDir string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRawDir saves every extraction as CSV snapshots under dir.
func WithRawDir(dir string) FetcherOption {
	return func(f *Fetcher) { f.rawDir = dir }
}

// NewFetcher creates a new Fake Store fetcher.
func NewFetcher(client *Client, log *zap.Logger, opts ...FetcherOption) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fetcher{client: client, log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Name() models.DataSource { return models.SourceFakeStore }

// Extract fetches the three endpoints in sequence under the client's limiter.
func (f *Fetcher) Extract(ctx context.Context) (sources.Batch, error) {
	extractedAt := f.now()

	products, err := f.client.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	users, err := f.client.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	carts, err := f.client.Carts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch carts: %w", err)
	}

	orders, items, err := MapCarts(carts, products, extractedAt)
	if err != nil {
		return nil, err
	}

	batch := sources.Batch{
		models.TableProducts:   MapProducts(products, extractedAt),
		models.TableCustomers:  MapUsers(users, extractedAt),
		models.TableOrders:     orders,
		models.TableOrderItems: items,
	}
	if f.rawDir != "" {
		snapshots := []struct {
			name string
			ds   dataset.Dataset
		}{
			{"products", batch[models.TableProducts]},
			{"orders", orders},
			{"order_items", items},
			{"users", batch[models.TableCustomers]},
		}
		for _, snap := range snapshots {
			path, err := sources.WriteSnapshot(f.rawDir, snap.name, snap.ds)
			if err != nil {
				return nil, err
			}
			f.log.Info("saved raw data", zap.String("file", path), zap.Int("rows", len(snap.ds)))
		}
	}

	f.log.Info("fake store extraction complete",
		zap.Int("products", len(products)),
		zap.Int("users", len(users)),
		zap.Int("carts", len(carts)),
		zap.Int("line_items", len(items)),
	)
	return batch, nil
}
