package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/config"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/loader"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/logging"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/metrics"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/migrations"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/pipeline"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/runlog"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/sources"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/sources/fakestore"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/sources/olist"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/transform"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/validation"
)

const (
	sourceAPI  = "api"
	sourceCSV  = "csv"
	sourceBoth = "both"
)

type runFlags struct {
	source     string
	noValidate bool
	noMigrate  bool
	noSaveRaw  bool
	dataDir    string
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, transform, validate and load one batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), a, flags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flags.source, "source", sourceAPI, "Data source: api, csv or both")
	cmd.Flags().BoolVar(&flags.noValidate, "no-validate", false, "Skip validation and load everything")
	cmd.Flags().BoolVar(&flags.noSaveRaw, "no-save-raw", false, "Do not snapshot API payloads under paths.raw_data")
	cmd.Flags().BoolVar(&flags.noMigrate, "no-migrate", false, "Do not apply pending migrations first")
	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "", "Override paths.olist_data")
	return cmd
}

func runBatch(ctx context.Context, a *app, flags runFlags, out io.Writer) error {
	rec := metrics.NewRecorder()
	extractors, err := newExtractors(a, flags, rec)
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if !flags.noMigrate {
		if err := migrations.RunMigrations(ctx, db, logging.Stage(a.log, "migrate")); err != nil {
			return err
		}
	}

	inputs, err := buildInputs(ctx, extractors, transform.New(logging.Stage(a.log, "transform")), a.cfg.Transform, a.log)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithMetrics(rec)}
	if flags.noValidate {
		opts = append(opts, pipeline.WithoutValidation())
	}
	runner := pipeline.NewRunner(
		loader.New(db, logging.Stage(a.log, "load"), loader.WithChunkSize(a.cfg.Load.ChunkSize)),
		runlog.New(db, logging.Stage(a.log, "runlog")),
		a.log,
		opts...,
	)

	summary, runErr := runner.Run(ctx, inputs)
	printSummary(out, summary)

	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := rec.Push(pushCtx, url, a.cfg.Metrics.Job); err != nil {
			a.log.Warn("push metrics failed", zap.String("url", url), zap.Error(err))
		}
		cancel()
	}
	return runErr
}

func newExtractors(a *app, flags runFlags, rec *metrics.Recorder) ([]sources.Extractor, error) {
	dir := a.cfg.Paths.OlistData
	if flags.dataDir != "" {
		dir = flags.dataDir
	}
	api := func() sources.Extractor {
		log := logging.Stage(a.log, "extract")
		var opts []fakestore.FetcherOption
		if !flags.noSaveRaw && a.cfg.Paths.RawData != "" {
			opts = append(opts, fakestore.WithRawDir(a.cfg.Paths.RawData))
		}
		return fakestore.NewFetcher(fakestore.NewClient(a.cfg.API.FakeStore, nil, rec, log), log, opts...)
	}
	csv := func() sources.Extractor {
		return olist.NewReader(dir, logging.Stage(a.log, "extract"))
	}

	switch flags.source {
	case sourceAPI, "":
		return []sources.Extractor{api()}, nil
	case sourceCSV:
		return []sources.Extractor{csv()}, nil
	case sourceBoth:
		return []sources.Extractor{api(), csv()}, nil
	default:
		return nil, fmt.Errorf("unknown source %q: want %s, %s or %s", flags.source, sourceAPI, sourceCSV, sourceBoth)
	}
}

// buildInputs extracts every source and cleans each table. A failing source
// is logged and skipped unless every source fails.
func buildInputs(ctx context.Context, extractors []sources.Extractor, cleaner *transform.Cleaner, cfg config.Transform, log *zap.Logger) ([]pipeline.TableInput, error) {
	var (
		inputs []pipeline.TableInput
		errs   []error
	)
	for _, ex := range extractors {
		batch, err := ex.Extract(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Error("extract failed", zap.String("source", string(ex.Name())), zap.Error(err))
			errs = append(errs, fmt.Errorf("extract %s: %w", ex.Name(), err))
			continue
		}
		log.Info("source extracted", zap.String("source", string(ex.Name())), zap.Int("tables", len(batch)), zap.Int("rows", batch.Rows()))

		for _, t := range loader.Catalog() {
			raw, ok := batch[t.Name]
			if !ok {
				continue
			}
			cleaned, _ := cleaner.Clean(t.Name, raw)
			rules := append(validation.ForTable(t.Name), validation.Completeness(t.Name, cfg.NullThreshold)...)
			rules = append(rules, validation.Sequencing(t.Name, cfg.MaxOutOfOrder)...)
			inputs = append(inputs, pipeline.TableInput{
				Table:     t.Name,
				Source:    ex.Name(),
				Records:   cleaned,
				Extracted: len(raw),
				Rules:     rules,
			})
		}
	}
	if len(errs) == len(extractors) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return inputs, nil
}

func printSummary(out io.Writer, s *pipeline.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(out, "batch %s finished in %s\n", s.BatchID, s.Finished.Sub(s.Started).Round(time.Millisecond))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tSTATUS\tINSERTED\tUPDATED\tREJECTED\tVALIDATION\tERROR")
	for _, t := range s.Tables {
		var ins, upd, rej int
		if t.Load != nil {
			ins, upd, rej = t.Load.RowsInserted, t.Load.RowsUpdated, t.Load.RowsRejected
		}
		valid := "-"
		if t.Validation != nil {
			valid = fmt.Sprintf("%t", t.Validation.Passed)
		}
		status := string(t.Status)
		if t.Skipped {
			status = "skipped"
		}
		msg := ""
		if t.Err != nil {
			msg = t.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n", t.Table, status, ins, upd, rej, valid, msg)
	}
	_ = w.Flush()
}
