// Package sources defines what extractors hand to the transform stage.
package sources

import (
	"context"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

// Batch maps persisted table names to extracted datasets.
type Batch map[string]dataset.Dataset

// Extractor pulls one source's datasets.
type Extractor interface {
	Name() models.DataSource
	Extract(ctx context.Context) (Batch, error)
}

// Rows counts records across tables.
func (b Batch) Rows() int {
	n := 0
	for _, ds := range b {
		n += len(ds)
	}
	return n
}
