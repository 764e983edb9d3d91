package fakestore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

const source = string(models.SourceFakeStore)

// MapProducts flattens the catalog into products records.
func MapProducts(products []Product, extractedAt time.Time) dataset.Dataset {
	out := make(dataset.Dataset, 0, len(products))
	for _, p := range products {
		r := dataset.Record{
			"product_id":   strconv.Itoa(p.ID),
			"title":        p.Title,
			"description":  p.Description,
			"category":     p.Category,
			"price":        p.Price,
			"image":        p.Image,
			"rating_rate":  nil,
			"rating_count": nil,
			"source":       source,
			"extracted_at": extractedAt,
		}
		if p.Rating != nil {
			r["rating_rate"] = p.Rating.Rate
			r["rating_count"] = p.Rating.Count
		}
		out = append(out, r)
	}
	return out
}

// MapUsers flattens users into customers records.
func MapUsers(users []User, extractedAt time.Time) dataset.Dataset {
	out := make(dataset.Dataset, 0, len(users))
	for _, u := range users {
		street := u.Address.Street
		if u.Address.Number > 0 {
			street = fmt.Sprintf("%d %s", u.Address.Number, street)
		}
		out = append(out, dataset.Record{
			"customer_id":       strconv.Itoa(u.ID),
			"customer_city":     u.Address.City,
			"customer_zip_code": u.Address.Zipcode,
			"first_name":        u.Name.First,
			"last_name":         u.Name.Last,
			"email":             u.Email,
			"phone":             u.Phone,
			"street":            strings.TrimSpace(street),
			"lat":               u.Address.Geolocation.Lat,
			"lng":               u.Address.Geolocation.Long,
			"source":            source,
			"extracted_at":      extractedAt,
		})
	}
	return out
}

// MapCarts turns carts into pending orders and one line item per cart product.
// Unit prices come from the catalog when the product is known.
func MapCarts(carts []Cart, catalog []Product, extractedAt time.Time) (orders, items dataset.Dataset, err error) {
	prices := make(map[int]any, len(catalog))
	for _, p := range catalog {
		prices[p.ID] = p.Price
	}

	for _, c := range carts {
		purchased, err := ParseDate(c.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("cart %d: %w", c.ID, err)
		}
		orderID := strconv.Itoa(c.ID)
		orders = append(orders, dataset.Record{
			"order_id":                 orderID,
			"customer_id":              strconv.Itoa(c.UserID),
			"order_status":             string(models.StatusPending),
			"order_purchase_timestamp": purchased,
			"source":                   source,
			"extracted_at":             extractedAt,
		})

		for i, line := range c.Products {
			items = append(items, dataset.Record{
				"order_id":      orderID,
				"order_item_id": i + 1,
				"product_id":    strconv.Itoa(line.ProductID),
				"quantity":      line.Quantity,
				"price":         prices[line.ProductID],
				"source":        source,
				"extracted_at":  extractedAt,
			})
		}
	}
	return orders, items, nil
}

// ParseDate reads the API's ISO timestamps as naive UTC wall-clock values.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
