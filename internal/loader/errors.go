package loader

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTable    = errors.New("unknown table")
	ErrMissingRequired = errors.New("missing required field")
	ErrCompositeKey    = errors.New("table has a composite key")
)

// TransactionError reports a batch that was rolled back as a whole.
type TransactionError struct {
	Table string
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("load %s: batch rolled back: %v", e.Table, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Rejection is a record excluded from a batch that otherwise proceeds.
type Rejection struct {
	Index  int    `json:"index"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// Result summarises one committed batch.
type Result struct {
	Table           string      `json:"table"`
	RowsInserted    int         `json:"rows_inserted"`
	RowsUpdated     int         `json:"rows_updated"`
	RowsRejected    int         `json:"rows_rejected"`
	RejectedReasons []Rejection `json:"rejected_reasons,omitempty"`
}

// Loaded is the number of rows written.
func (r *Result) Loaded() int {
	if r == nil {
		return 0
	}
	return r.RowsInserted + r.RowsUpdated
}

func (r *Result) reject(index int, key, reason string) {
	r.RowsRejected++
	r.RejectedReasons = append(r.RejectedReasons, Rejection{Index: index, Key: key, Reason: reason})
}
