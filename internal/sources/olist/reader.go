// Package olist reads the Olist Brazilian e-commerce CSV export.
package olist

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/sources"
)

type kind int

const (
	text kind = iota
	timestamp
	number
	integer
)

type column struct {
	target string
	kind   kind
}

type file struct {
	name    string
	columns map[string]column
}

// files maps tables to their CSV file and column coercions. Columns not
// listed are dropped.
var files = map[string]file{
	models.TableCustomers: {
		name: "olist_customers_dataset.csv",
		columns: map[string]column{
			"customer_id":              {"customer_id", text},
			"customer_unique_id":       {"customer_unique_id", text},
			"customer_zip_code_prefix": {"customer_zip_code", text},
			"customer_city":            {"customer_city", text},
			"customer_state":           {"customer_state", text},
		},
	},
	models.TableSellers: {
		name: "olist_sellers_dataset.csv",
		columns: map[string]column{
			"seller_id":              {"seller_id", text},
			"seller_zip_code_prefix": {"seller_zip_code", text},
			"seller_city":            {"seller_city", text},
			"seller_state":           {"seller_state", text},
		},
	},
	models.TableProducts: {
		name: "olist_products_dataset.csv",
		columns: map[string]column{
			"product_id":            {"product_id", text},
			"product_category_name": {"category", text},
		},
	},
	models.TableOrders: {
		name: "olist_orders_dataset.csv",
		columns: map[string]column{
			"order_id":                      {"order_id", text},
			"customer_id":                   {"customer_id", text},
			"order_status":                  {"order_status", text},
			"order_purchase_timestamp":      {"order_purchase_timestamp", timestamp},
			"order_approved_at":             {"order_approved_at", timestamp},
			"order_delivered_carrier_date":  {"order_delivered_carrier_date", timestamp},
			"order_delivered_customer_date": {"order_delivered_customer_date", timestamp},
			"order_estimated_delivery_date": {"order_estimated_delivery_date", timestamp},
		},
	},
	models.TableOrderItems: {
		name: "olist_order_items_dataset.csv",
		columns: map[string]column{
			"order_id":            {"order_id", text},
			"order_item_id":       {"order_item_id", integer},
			"product_id":          {"product_id", text},
			"seller_id":           {"seller_id", text},
			"shipping_limit_date": {"shipping_limit_date", timestamp},
			"price":               {"price", number},
			"freight_value":       {"freight_value", number},
		},
	},
}

// FileName returns the CSV file name read for table.
func FileName(table string) string {
	return files[table].name
}

// Reader loads the Olist files from one directory.
type Reader struct {
	dir string
	log *zap.Logger
	now func() time.Time
}

func NewReader(dir string, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{dir: dir, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Reader) Name() models.DataSource { return models.SourceOlist }

// Extract reads every file present. Missing files are skipped with a warning.
func (r *Reader) Extract(ctx context.Context) (sources.Batch, error) {
	batch := sources.Batch{}
	for _, t := range loaderOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, err := r.ReadTable(t)
		if errors.Is(err, os.ErrNotExist) {
			r.log.Warn("olist file not found", zap.String("file", files[t].name))
			continue
		}
		if err != nil {
			return nil, err
		}
		batch[t] = ds
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("no olist files in %s: %w", r.dir, os.ErrNotExist)
	}
	return batch, nil
}

var loaderOrder = []string{
	models.TableCustomers,
	models.TableSellers,
	models.TableProducts,
	models.TableOrders,
	models.TableOrderItems,
}

// ReadTable reads and coerces the CSV file for table.
func (r *Reader) ReadTable(table string) (dataset.Dataset, error) {
	def, ok := files[table]
	if !ok {
		return nil, fmt.Errorf("no olist file for table %s", table)
	}
	path := filepath.Join(r.dir, def.name)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	ds, bad, err := parse(f, def, r.now())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", def.name, err)
	}
	r.log.Info("CSV file loaded", zap.String("file", def.name), zap.Int("rows", len(ds)), zap.Int("coerced_to_null", bad))
	return ds, nil
}

func parse(src io.Reader, def file, extractedAt time.Time) (dataset.Dataset, int, error) {
	cr := csv.NewReader(src)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := make([]*column, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if c, ok := def.columns[h]; ok {
			cols[i] = &c
		}
	}

	var (
		out dataset.Dataset
		bad int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, bad, err
		}

		rec := dataset.Record{"source": string(models.SourceOlist), "extracted_at": extractedAt}
		for i, raw := range row {
			if i >= len(cols) || cols[i] == nil {
				continue
			}
			v, ok := coerce(strings.TrimSpace(raw), cols[i].kind)
			if !ok {
				bad++
			}
			rec[cols[i].target] = v
		}
		out = append(out, rec)
	}
	return out, bad, nil
}

// coerce converts raw to kind. Empty cells are null; unparsable cells are
// null with ok=false.
func coerce(raw string, k kind) (any, bool) {
	if raw == "" {
		return nil, true
	}
	switch k {
	case timestamp:
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
		return nil, false
	case number:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, false
		}
		return d, true
	case integer:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false
		}
		return n, true
	default:
		return raw, true
	}
}
