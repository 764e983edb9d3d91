// Package pipeline drives validate → load → run-log for every table of one
// batch, ordered by foreign-key rank.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/dataset"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/loader"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/logging"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/metrics"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/models"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/runlog"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/validation"
)

// Loader applies one table batch.
type Loader interface {
	Load(ctx context.Context, table string, records dataset.Dataset) (*loader.Result, error)
}

// RunLog opens and finalizes audit rows.
type RunLog interface {
	Begin(ctx context.Context, batchID, table string, source models.DataSource) (*runlog.Handle, error)
	Complete(ctx context.Context, h *runlog.Handle, c runlog.Completion) error
}

// TableInput is one transformed dataset headed for a table.
type TableInput struct {
	Table   string
	Source  models.DataSource
	Records dataset.Dataset
	// Extracted is the row count before transformation; zero means len(Records).
	Extracted int
	// Rules overrides the stock ruleset for the table.
	Rules validation.Ruleset
}

// TableResult is the outcome for one input.
type TableResult struct {
	Table      string
	Status     models.RunStatus
	RunID      int64
	Validation *validation.Report
	Load       *loader.Result
	Err        error
	Skipped    bool
	Elapsed    time.Duration
}

// Summary describes a whole invocation.
type Summary struct {
	BatchID  string
	Started  time.Time
	Finished time.Time
	Tables   []TableResult
}

// Failed lists tables whose run ended in failure.
func (s *Summary) Failed() []string {
	var out []string
	for _, t := range s.Tables {
		if t.Status == models.RunFailed {
			out = append(out, t.Table)
		}
	}
	return out
}

// Skipped lists tables never started because the run was cancelled.
func (s *Summary) Skipped() []string {
	var out []string
	for _, t := range s.Tables {
		if t.Skipped {
			out = append(out, t.Table)
		}
	}
	return out
}

// Loaded totals rows written across tables.
func (s *Summary) Loaded() int {
	n := 0
	for _, t := range s.Tables {
		n += t.Load.Loaded()
	}
	return n
}

// ValidationError gates a table whose dataset did not satisfy its ruleset.
type ValidationError struct {
	Table  string
	Report validation.Report
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Table, strings.Join(e.Report.FailingRules(), ", "))
}

type Option func(*Runner)

// WithoutValidation loads datasets without running their rulesets.
func WithoutValidation() Option {
	return func(r *Runner) { r.skipValidation = true }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithBatchID fixes the batch identifier instead of generating a UUID.
func WithBatchID(id string) Option {
	return func(r *Runner) { r.batchID = id }
}

type Runner struct {
	loader         Loader
	runs           RunLog
	metrics        *metrics.Recorder
	log            *zap.Logger
	skipValidation bool
	batchID        string
}

func NewRunner(l Loader, runs RunLog, log *zap.Logger, opts ...Option) *Runner {
	r := &Runner{loader: l, runs: runs, log: log}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes inputs rank by rank. Distinct tables within a rank have no
// references to each other and run concurrently. A table failure does not stop
// its siblings or later ranks. Cancellation stops new tables from starting.
func (r *Runner) Run(ctx context.Context, inputs []TableInput) (*Summary, error) {
	batchID := r.batchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	log := r.log.With(zap.String("batch_id", batchID))
	summary := &Summary{BatchID: batchID, Started: time.Now(), Tables: make([]TableResult, len(inputs))}

	byRank := make(map[int][]int)
	for i, in := range inputs {
		rank := loader.Rank(in.Table)
		byRank[rank] = append(byRank[rank], i)
	}
	ranks := make([]int, 0, len(byRank))
	for rank := range byRank {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	log.Info("pipeline started", zap.Int("tables", len(inputs)), zap.Bool("skip_validation", r.skipValidation))

	for _, rank := range ranks {
		var g errgroup.Group
		for _, group := range byTable(inputs, byRank[rank]) {
			// inputs for the same table run one after another
			g.Go(func() error {
				for _, i := range group {
					if ctx.Err() != nil {
						summary.Tables[i] = TableResult{Table: inputs[i].Table, Skipped: true}
						continue
					}
					summary.Tables[i] = r.runTable(ctx, batchID, inputs[i], log)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	summary.Finished = time.Now()

	var errs []error
	for _, t := range summary.Tables {
		if t.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Table, t.Err))
		}
	}
	if skipped := summary.Skipped(); len(skipped) > 0 {
		errs = append(errs, fmt.Errorf("skipped %s: %w", strings.Join(skipped, ", "), context.Cause(ctx)))
	}

	log.Info("pipeline finished",
		zap.Int("loaded", summary.Loaded()),
		zap.Strings("failed", summary.Failed()),
		zap.Strings("skipped", summary.Skipped()),
		zap.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)
	return summary, errors.Join(errs...)
}

// byTable splits indices into per-table groups, keeping input order.
func byTable(inputs []TableInput, indices []int) [][]int {
	var groups [][]int
	pos := make(map[string]int)
	for _, i := range indices {
		t := inputs[i].Table
		g, ok := pos[t]
		if !ok {
			g = len(groups)
			pos[t] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func (r *Runner) runTable(ctx context.Context, batchID string, in TableInput, log *zap.Logger) (res TableResult) {
	log = log.With(zap.String("table", in.Table))
	start := time.Now()
	res = TableResult{Table: in.Table, Status: models.RunFailed}

	h, err := r.runs.Begin(ctx, batchID, in.Table, in.Source)
	if err != nil {
		res.Err = err
		log.Error("could not open run record", zap.Error(err))
		return res
	}
	res.RunID = h.RunID

	extracted := in.Extracted
	if extracted == 0 {
		extracted = len(in.Records)
	}
	c := runlog.Completion{Extracted: extracted, Transformed: len(in.Records)}

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
			res.Status = models.RunFailed
		}
		c.Status = res.Status
		c.Err = res.Err
		if err := r.runs.Complete(ctx, h, c); err != nil {
			log.Error("could not finalize run record", zap.Error(err))
			res.Err = errors.Join(res.Err, err)
		}
		res.Elapsed = time.Since(start)
		r.metrics.Run(in.Table, string(res.Status), res.Elapsed)
	}()

	r.metrics.Rows(in.Table, "extracted", extracted)
	r.metrics.Rows(in.Table, "transformed", len(in.Records))

	if !r.skipValidation {
		vlog := logging.Stage(log, "validate")
		rules := in.Rules
		if rules == nil {
			rules = validation.ForTable(in.Table)
		}
		report := validation.Validate(in.Records, rules)
		res.Validation = &report
		c.Report = &report
		if !report.Passed {
			for _, name := range report.FailingRules() {
				r.metrics.RuleFailed(in.Table, name)
			}
			vlog.Warn("validation failed", zap.Strings("rules", report.FailingRules()))
			res.Err = &ValidationError{Table: in.Table, Report: report}
			return res
		}
		vlog.Debug("validation passed", zap.Int("records", report.TotalRecords))
	}

	loaded, err := r.loader.Load(ctx, in.Table, in.Records)
	if err != nil {
		res.Err = err
		return res
	}
	res.Load = loaded
	c.Loaded = loaded.Loaded()
	c.Rejected = loaded.RowsRejected
	res.Status = models.RunSuccess

	r.metrics.Rows(in.Table, "inserted", loaded.RowsInserted)
	r.metrics.Rows(in.Table, "updated", loaded.RowsUpdated)
	r.metrics.Rows(in.Table, "rejected", loaded.RowsRejected)
	return res
}
