// Package validate orchestrates a full validation run: load the CSV,
// load and adapt the metadata snapshot, transform the column
// structure, validate batch by batch and aggregate the report.
package validate

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/comparator"
	"github.com/vstructure/vstructure/pkg/config"
	"github.com/vstructure/vstructure/pkg/csvio"
	"github.com/vstructure/vstructure/pkg/metadata"
	"github.com/vstructure/vstructure/pkg/report"
	"github.com/vstructure/vstructure/pkg/telemetry"
	"github.com/vstructure/vstructure/pkg/transform"
)

// Request describes one validation run.
type Request struct {
	InstanceID string
	Version    string
	CSVPath    string

	// Formats and OutputDir override the configured report settings
	// when set.
	Formats   []string
	OutputDir string
}

// Result is the outcome of a run. Fatal structural findings land in
// Errors; loader and transform advisories land in Warnings; rule
// findings live in the Report.
type Result struct {
	ExecutionID string
	StartTime   time.Time
	EndTime     time.Time

	InstanceID       string
	Version          string
	GoldenRecordPath string

	Success  bool
	Errors   []model.ValidationError
	Warnings []model.ValidationError

	Report      *report.Report
	ReportFiles map[string]string
	Summary     string
}

// Progress is reported after each validated batch.
type Progress struct {
	Rows    int
	Batches int
	Errors  int
}

// Runner executes validation runs against a snapshot store.
type Runner struct {
	cfg   *config.Config
	store metadata.Store

	// OnProgress, when set, is called after every batch.
	OnProgress func(Progress)
}

// NewRunner creates a runner. cfg may be nil, in which case defaults
// apply.
func NewRunner(cfg *config.Config, store metadata.Store) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Runner{cfg: cfg, store: store}
}

// Execute runs a full validation. The returned error covers only
// setup failures that prevent producing a Result at all; everything
// else is reported inside the Result.
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	ctx, span := telemetry.StartSpanFromContext(ctx, "validate.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("instance_id", req.InstanceID),
		attribute.String("version", req.Version),
		attribute.String("golden_record", req.CSVPath),
	)

	result := &Result{
		ExecutionID:      uuid.New().String(),
		StartTime:        time.Now(),
		InstanceID:       req.InstanceID,
		Version:          req.Version,
		GoldenRecordPath: req.CSVPath,
	}
	defer func() { result.EndTime = time.Now() }()

	// Load the file structure.
	loader := csvio.NewLoader()
	if r.cfg.Validation.BatchSize > 0 {
		loader.BatchSize = r.cfg.Validation.BatchSize
	}

	fc, err := loader.Load(req.CSVPath)
	if err != nil {
		result.Errors = append(result.Errors, loadFailure(err))
		return result, nil
	}
	result.absorb(fc.Errors)
	if model.HasFatal(fc.Errors) {
		return result, nil
	}

	// Load and adapt metadata.
	snap, err := r.store.Load(ctx, req.InstanceID, req.Version)
	if err != nil {
		result.Errors = append(result.Errors, comparator.MetadataAdaptationFailed(err.Error()))
		return result, nil
	}
	mc := comparator.Adapt(snap)
	if req.Version == "" {
		result.Version = snap.Version
	}

	// Transform the column structure.
	tc := transform.Build(fc, r.parser())
	result.absorb(tc.Errors)

	// Validate batches.
	engine := r.engine()
	vctx := &comparator.ValidationContext{Transform: tc, Metadata: mc}

	batches, err := loader.Batches(fc)
	if err != nil {
		result.Errors = append(result.Errors, loadFailure(err))
		return result, nil
	}
	defer batches.Close()

	batchResults, runErr := r.validateBatches(ctx, batches, tc, engine, vctx)
	if runErr != nil {
		result.Errors = append(result.Errors, loadFailure(runErr))
	}

	// Aggregate and export.
	sourceMetadata := req.InstanceID + "_" + result.Version
	rep := report.Aggregate(batchResults, req.CSVPath, sourceMetadata)
	result.Report = rep
	result.Summary = rep.Summary

	formats := req.Formats
	if len(formats) == 0 {
		formats = r.cfg.Report.Formats
	}
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = r.cfg.Report.OutputDir
	}
	exporter := report.NewExporter(outputDir, r.cfg.Report.BaseFilename)
	result.ReportFiles = exporter.Export(rep, formats)

	// A run that reaches report generation succeeded; fatal findings
	// recorded inside the report do not flip the flag.
	result.Success = len(result.Errors) == 0
	return result, nil
}

// parser builds the column parser, extended by configuration.
func (r *Runner) parser() *transform.Parser {
	pc := r.cfg.Parser
	if len(pc.CompoundEntities) == 0 && len(pc.CountryCodes) == 0 {
		return transform.NewParser()
	}
	compounds := append(transform.DefaultCompoundEntities(), pc.CompoundEntities...)
	countries := append(transform.DefaultCountryCodes(), pc.CountryCodes...)
	return transform.NewParserWith(compounds, countries)
}

// engine builds the rule engine from configuration.
func (r *Runner) engine() *comparator.Engine {
	registry := comparator.NewRegistry()
	if len(r.cfg.Validation.Rules) > 0 {
		// Unknown rule names were already rejected at config load; an
		// error here still falls back to the defaults.
		_ = registry.EnableOnly(r.cfg.Validation.Rules)
	}

	engine := comparator.NewEngine(registry)
	if r.cfg.Validation.IdentifierColumn != "" {
		engine.IdentifierColumn = r.cfg.Validation.IdentifierColumn
	}
	return engine
}

// validateBatches reads, transforms and validates every batch. With
// Workers > 1 batches are validated concurrently; the results come
// back in batch order either way.
func (r *Runner) validateBatches(
	ctx context.Context,
	reader *csvio.BatchReader,
	tc *transform.Context,
	engine *comparator.Engine,
	vctx *comparator.ValidationContext,
) ([]comparator.BatchResult, error) {
	workers := r.cfg.Validation.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		results  []comparator.BatchResult
		progress Progress
	)

	record := func(res comparator.BatchResult) {
		mu.Lock()
		results = append(results, res)
		progress.Rows += res.ProcessedRows
		progress.Batches++
		progress.Errors += len(res.Errors)
		snapshot := progress
		mu.Unlock()
		if r.OnProgress != nil {
			r.OnProgress(snapshot)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan *csvio.Batch, workers)

	g.Go(func() error {
		defer close(batches)
		for {
			batch, err := reader.Next(gctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				rows := tc.TransformBatch(batch)
				res := engine.ValidateBatch(rows, batch.Index, vctx)
				res.Errors = append(collectRowFindings(batch, rows), res.Errors...)
				record(res)
			}
			return nil
		})
	}

	err := g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].BatchIndex < results[j].BatchIndex })
	return results, err
}

// collectRowFindings gathers the reader's exclusion findings and the
// per-row transformation findings so they reach the report alongside
// the rule findings.
func collectRowFindings(batch *csvio.Batch, rows []transform.TransformedRow) []model.ValidationError {
	findings := append([]model.ValidationError(nil), batch.Errors...)
	for _, row := range rows {
		findings = append(findings, row.Errors...)
	}
	return findings
}

// absorb routes structural findings into the result: fatals to
// Errors, the rest to Warnings.
func (r *Result) absorb(findings []model.ValidationError) {
	for _, f := range findings {
		if f.IsFatal() {
			r.Errors = append(r.Errors, f)
		} else {
			r.Warnings = append(r.Warnings, f)
		}
	}
}

func loadFailure(err error) model.ValidationError {
	return model.ValidationError{
		Code:     "VALIDATION_RUN_FAILED",
		Severity: model.SeverityFatal,
		Message:  err.Error(),
		Scope:    model.ScopeGlobal,
	}
}
