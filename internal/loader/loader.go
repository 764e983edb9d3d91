// Package loader applies validated datasets to the store as idempotent
// per-table upserts.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
)

const defaultChunkSize = 1000

type Option func(*Loader)

// WithChunkSize bounds the number of keys per IN (...) lookup.
func WithChunkSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

// WithClock overrides the source of created_at/updated_at values.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

type Loader struct {
	db        *bun.DB
	log       *zap.Logger
	chunkSize int
	now       func() time.Time
}

func New(db *bun.DB, log *zap.Logger, opts ...Option) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{
		db:        db,
		log:       log,
		chunkSize: defaultChunkSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type pending struct {
	index int
	key   string
	row   map[string]interface{}
}

// Load upserts records into table inside a single transaction. Records with
// unknown columns or missing mandatory parents are rejected individually; a
// missing required field or any store error rolls the whole batch back and is
// returned as *TransactionError.
func (l *Loader) Load(ctx context.Context, table string, records dataset.Dataset) (*Result, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Table: t.Name}
	rows, err := l.prepare(t, records, res)
	if err != nil {
		return nil, &TransactionError{Table: t.Name, Err: err}
	}

	start := time.Now()
	// The transaction is never abandoned half way once started.
	err = l.db.RunInTx(context.WithoutCancel(ctx), nil, func(ctx context.Context, tx bun.Tx) error {
		rows, err := l.resolveReferences(ctx, tx, t, rows, res)
		if err != nil {
			return err
		}

		existing, err := l.existingKeys(ctx, tx, t, rows)
		if err != nil {
			return err
		}

		now := l.now()
		for _, p := range rows {
			if id, ok := existing[p.key]; ok {
				if err := l.update(ctx, tx, t, p, id, now); err != nil {
					return fmt.Errorf("update %s %s: %w", t.Name, p.key, err)
				}
				res.RowsUpdated++
				continue
			}
			if err := l.insert(ctx, tx, t, p, now); err != nil {
				return fmt.Errorf("insert %s %s: %w", t.Name, p.key, err)
			}
			res.RowsInserted++
		}
		return nil
	})
	if err != nil {
		l.log.Error("batch rolled back", zap.String("table", t.Name), zap.Int("records", len(records)), zap.Error(err))
		return nil, &TransactionError{Table: t.Name, Err: err}
	}

	l.log.Info("batch committed",
		zap.String("table", t.Name),
		zap.Int("inserted", res.RowsInserted),
		zap.Int("updated", res.RowsUpdated),
		zap.Int("rejected", res.RowsRejected),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// prepare checks every record against the table shape and builds the column
// maps that will be written.
func (l *Loader) prepare(t Table, records dataset.Dataset, res *Result) ([]pending, error) {
	rows := make([]pending, 0, len(records))

next:
	for i, rec := range records {
		for _, f := range t.Required {
			if rec.IsNull(f) {
				return nil, fmt.Errorf("record %d: %w: %s", i, ErrMissingRequired, f)
			}
		}

		key, _ := rec.Key(t.Key...)
		for _, f := range rec.Fields() {
			if !t.ignored(f) && !t.Writable(f) {
				res.reject(i, key, fmt.Sprintf("unknown field %q", f))
				l.log.Warn("record rejected", zap.String("table", t.Name), zap.String("key", key), zap.String("field", f))
				continue next
			}
		}
		for _, k := range t.Key {
			if err := models.ValidateKey(k, rec.String(k)); err != nil {
				res.reject(i, key, err.Error())
				continue next
			}
		}

		r := rec.Clone()
		if t.Derive != nil {
			t.Derive(r)
		}

		row := make(map[string]interface{}, len(t.Columns))
		for _, c := range t.Columns {
			if _, ok := r[c]; ok {
				row[c] = r.Value(c)
			}
		}
		rows = append(rows, pending{index: i, key: key, row: row})
	}
	return rows, nil
}

// resolveReferences nulls optional references to missing parents and rejects
// records whose mandatory parent does not exist.
func (l *Loader) resolveReferences(ctx context.Context, tx bun.Tx, t Table, rows []pending, res *Result) ([]pending, error) {
	for _, ref := range t.References {
		values := make([]string, 0, len(rows))
		seen := make(map[string]bool)
		for _, p := range rows {
			v, ok := p.row[ref.Field]
			if !ok || v == nil {
				continue
			}
			s := dataset.Format(v)
			if !seen[s] {
				seen[s] = true
				values = append(values, s)
			}
		}

		found, err := l.existingValues(ctx, tx, ref.Table, ref.Column, values)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref.Field, err)
		}

		kept := rows[:0]
		for _, p := range rows {
			v, ok := p.row[ref.Field]
			if !ok || v == nil || found[dataset.Format(v)] {
				kept = append(kept, p)
				continue
			}
			if ref.Mandatory {
				res.reject(p.index, p.key, fmt.Sprintf("%s %v not found in %s", ref.Field, v, ref.Table))
				l.log.Warn("record rejected", zap.String("table", t.Name), zap.String("key", p.key),
					zap.String("missing", ref.Table))
				continue
			}
			l.log.Debug("reference nulled", zap.String("table", t.Name), zap.String("key", p.key),
				zap.String("field", ref.Field))
			p.row[ref.Field] = nil
			kept = append(kept, p)
		}
		rows = kept
	}
	return rows, nil
}

func (l *Loader) existingValues(ctx context.Context, tx bun.Tx, table, column string, values []string) (map[string]bool, error) {
	found := make(map[string]bool, len(values))
	for _, chunk := range chunks(values, l.chunkSize) {
		var got []string
		if err := tx.NewSelect().
			Table(table).
			Column(column).
			Where("? IN (?)", bun.Ident(column), bun.In(chunk)).
			Scan(ctx, &got); err != nil {
			return nil, err
		}
		for _, v := range got {
			found[v] = true
		}
	}
	return found, nil
}

// existingKeys maps the natural key of stored rows to their identity value
// (nil for tables keyed on the natural key itself).
func (l *Loader) existingKeys(ctx context.Context, tx bun.Tx, t Table, rows []pending) (map[string]interface{}, error) {
	first := t.Key[0]
	values := make([]string, 0, len(rows))
	seen := make(map[string]bool)
	for _, p := range rows {
		s := dataset.Format(p.row[first])
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}

	columns := append([]string{}, t.Key...)
	if t.Identity != "" {
		columns = append(columns, t.Identity)
	}

	existing := make(map[string]interface{})
	for _, chunk := range chunks(values, l.chunkSize) {
		var stored []map[string]interface{}
		if err := tx.NewSelect().
			Table(t.Name).
			Column(columns...).
			Where("? IN (?)", bun.Ident(first), bun.In(chunk)).
			Scan(ctx, &stored); err != nil {
			return nil, fmt.Errorf("read existing %s keys: %w", t.Name, err)
		}
		for _, m := range stored {
			key, ok := dataset.Record(m).Key(t.Key...)
			if !ok {
				continue
			}
			if t.Identity != "" {
				existing[key] = m[t.Identity]
			} else {
				existing[key] = nil
			}
		}
	}
	return existing, nil
}

func (l *Loader) insert(ctx context.Context, tx bun.Tx, t Table, p pending, now time.Time) error {
	values := make(map[string]interface{}, len(p.row)+2)
	for c, v := range p.row {
		values[c] = v
	}
	values["created_at"] = now
	values["updated_at"] = now

	_, err := tx.NewInsert().Model(&values).TableExpr(t.Name).Exec(ctx)
	return err
}

func (l *Loader) update(ctx context.Context, tx bun.Tx, t Table, p pending, id interface{}, now time.Time) error {
	values := make(map[string]interface{}, len(p.row)+1)
	for c, v := range p.row {
		if !t.IsKey(c) {
			values[c] = v
		}
	}
	values["updated_at"] = now

	q := tx.NewUpdate().Model(&values).TableExpr(t.Name)
	if t.Identity != "" {
		q = q.Where("? = ?", bun.Ident(t.Identity), id)
	} else {
		for _, k := range t.Key {
			q = q.Where("? = ?", bun.Ident(k), p.row[k])
		}
	}
	_, err := q.Exec(ctx)
	return err
}

// Delete removes rows by key and applies the store's ON DELETE rules in
// application code: mandatory dependents are deleted, optional references are
// set to NULL. It returns the number of parent rows removed.
func (l *Loader) Delete(ctx context.Context, table string, keys []string) (int, error) {
	t, err := Lookup(table)
	if err != nil {
		return 0, err
	}
	if len(t.Key) != 1 {
		return 0, fmt.Errorf("delete from %s: %w", t.Name, ErrCompositeKey)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	err = l.db.RunInTx(context.WithoutCancel(ctx), nil, func(ctx context.Context, tx bun.Tx) error {
		now := l.now()
		for _, chunk := range chunks(keys, l.chunkSize) {
			for _, dep := range Dependents(t.Name) {
				var err error
				if dep.Ref.Mandatory {
					_, err = tx.ExecContext(ctx, "DELETE FROM ? WHERE ? IN (?)",
						bun.Ident(dep.Table.Name), bun.Ident(dep.Ref.Field), bun.In(chunk))
				} else {
					_, err = tx.ExecContext(ctx, "UPDATE ? SET ? = NULL, updated_at = ? WHERE ? IN (?)",
						bun.Ident(dep.Table.Name), bun.Ident(dep.Ref.Field), now, bun.Ident(dep.Ref.Field), bun.In(chunk))
				}
				if err != nil {
					return fmt.Errorf("detach %s.%s: %w", dep.Table.Name, dep.Ref.Field, err)
				}
			}

			res, err := tx.ExecContext(ctx, "DELETE FROM ? WHERE ? IN (?)",
				bun.Ident(t.Name), bun.Ident(t.Key[0]), bun.In(chunk))
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				deleted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, &TransactionError{Table: t.Name, Err: err}
	}

	l.log.Info("rows deleted", zap.String("table", t.Name), zap.Int("deleted", deleted))
	return deleted, nil
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = defaultChunkSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
