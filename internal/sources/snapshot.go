package sources

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
)

// SnapshotFile is the file WriteSnapshot produces for name.
func SnapshotFile(name string) string {
	return name + "_raw.csv"
}

// WriteSnapshot writes ds to dir as CSV, creating dir when needed. The header
// is the sorted union of every record's fields; nulls become empty cells.
func WriteSnapshot(dir, name string, ds dataset.Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw data dir: %w", err)
	}

	seen := make(map[string]struct{})
	var header []string
	for _, rec := range ds {
		for f := range rec {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				header = append(header, f)
			}
		}
	}
	sort.Strings(header)

	path := filepath.Join(dir, SnapshotFile(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	row := make([]string, len(header))
	for _, rec := range ds {
		for i, h := range header {
			row[i] = rec.String(h)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}
