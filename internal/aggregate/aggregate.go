// Package aggregate merges election records that share a group key into a
// single TOTAL row per candidate and county.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"eradata/internal/csvio"
	"eradata/internal/formatter"
	"eradata/internal/models"
	"eradata/internal/pipeline"
)

// JobName is the name the aggregator is registered under
const JobName = "aggregate"

// Options selects the files and checks of an aggregation run
type Options struct {
	Input       string
	Output      string
	PreviewRows int
	// Strict turns divergent totalvotes/version values inside a group into an error
	Strict bool
}

// Publisher receives the aggregated records after they are saved
type Publisher interface {
	ReplaceResults(ctx context.Context, records []models.AggregatedRecord) error
}

// Result describes a completed run
type Result struct {
	*Grouping
	// Saved is false when the save stage failed; that failure is reported, not returned
	Saved     bool
	Published bool
}

// Aggregator implements pipeline.Job
type Aggregator struct {
	opts      Options
	out       io.Writer
	logger    *zap.Logger
	publisher Publisher
}

// New creates an aggregator printing progress to out. publisher may be nil.
func New(opts Options, out io.Writer, logger *zap.Logger, publisher Publisher) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Aggregator{opts: opts, out: out, logger: logger, publisher: publisher}
}

// Name returns the job name
func (a *Aggregator) Name() string {
	return JobName
}

// Run implements pipeline.Job
func (a *Aggregator) Run(ctx context.Context) error {
	_, err := a.Aggregate(ctx)
	return err
}

// Aggregate runs load, group, save and the optional publish stage. A load
// or group failure stops the run before anything is written.
func (a *Aggregator) Aggregate(ctx context.Context) (*Result, error) {
	table, err := csvio.ReadFile(a.opts.Input)
	if err != nil {
		return nil, a.report(pipeline.StageLoad, err)
	}
	fmt.Fprintln(a.out, "CSV loaded successfully!")
	formatter.Preview(a.out, table, a.opts.PreviewRows)
	a.logger.Debug("loaded input", zap.String("path", a.opts.Input), zap.Int("rows", len(table.Rows)))

	grouping, err := Group(ctx, table)
	if err != nil {
		return nil, a.report(pipeline.StageGroup, err)
	}
	if err := a.checkConsistency(grouping); err != nil {
		return nil, a.report(pipeline.StageGroup, err)
	}
	fmt.Fprintln(a.out, "Grouping successful!")
	a.logger.Debug("grouped records",
		zap.Int("input_rows", grouping.InputRows),
		zap.Int("groups", len(grouping.Records)),
		zap.Int("dropped", grouping.Dropped))

	res := &Result{Grouping: grouping}
	if err := Save(a.opts.Output, grouping.Records); err != nil {
		a.report(pipeline.StageSave, err)
		return res, nil
	}
	res.Saved = true

	if a.publisher == nil {
		return res, nil
	}
	if err := a.publisher.ReplaceResults(ctx, grouping.Records); err != nil {
		return res, a.report(pipeline.StagePublish, err)
	}
	res.Published = true
	fmt.Fprintf(a.out, "Published %d results\n", len(grouping.Records))
	return res, nil
}

func (a *Aggregator) checkConsistency(g *Grouping) error {
	if g.Dropped > 0 {
		a.logger.Warn("dropped rows with an empty key field", zap.Int("rows", g.Dropped))
	}
	if len(g.Inconsistencies) == 0 {
		return nil
	}
	for _, inc := range g.Inconsistencies {
		a.logger.Warn("inconsistent value within group",
			zap.Stringer("key", inc.Key),
			zap.String("column", inc.Column),
			zap.Int("kept", inc.First),
			zap.Int("seen", inc.Other))
	}
	first := g.Inconsistencies[0]
	if a.opts.Strict {
		return fmt.Errorf("%d inconsistent values, first in group %s: %s %d != %d",
			len(g.Inconsistencies), first.Key, first.Column, first.First, first.Other)
	}
	fmt.Fprintf(a.out, "Warning: %d inconsistent totalvotes/version values, kept the first value of each group\n",
		len(g.Inconsistencies))
	return nil
}

func (a *Aggregator) report(stage pipeline.Stage, err error) error {
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		se = pipeline.NewStageError(stage, err)
	}
	fmt.Fprintln(a.out, se.Error())
	a.logger.Error("aggregation failed", zap.String("stage", string(se.Stage)), zap.Error(se.Err))
	return se
}

// Save writes the records with a header, quoting every field.
func Save(path string, records []models.AggregatedRecord) error {
	return csvio.WriteFileAtomic(path, func(w io.Writer) error {
		return Write(w, records)
	})
}

// Write is Save to an io.Writer.
func Write(w io.Writer, records []models.AggregatedRecord) error {
	writer := csvio.NewWriter(w, csvio.QuoteAll)
	header := append(append([]string{}, models.KeyColumns...), models.MeasureColumns...)
	if err := writer.WriteCells(csvio.Text(header...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := writer.WriteCells(csvio.Text(rec.Strings()...)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
