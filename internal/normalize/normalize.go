// Package normalize coerces the numeric columns of an election results
// file and rewrites it with every non-numeric field quoted.
package normalize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"eradata/internal/csvio"
	"eradata/internal/models"
)

// JobName is the name the normalizer is registered under
const JobName = "normalize"

// coerced lists the columns converted to typed values, in no particular order
var coerced = []string{
	models.ColumnYear,
	models.ColumnCountyFIPS,
	models.ColumnCandidateVotes,
	models.ColumnTotalVotes,
	models.ColumnVersion,
}

// Options selects the files the normalizer reads and writes
type Options struct {
	// BaseDir anchors relative paths; empty means the executable's directory
	BaseDir string
	Input   string
	Output  string
}

// Result describes a completed run
type Result struct {
	InputPath  string
	OutputPath string
	Rows       int
}

// CoercionError reports a field that could not be converted to its type
type CoercionError struct {
	Record int // 1-based data record, header excluded
	Column string
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("record %d: column %q: %v", e.Record, e.Column, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// Normalizer implements pipeline.Job
type Normalizer struct {
	opts   Options
	out    io.Writer
	logger *zap.Logger
}

// New creates a normalizer that prints its progress lines to out
func New(opts Options, out io.Writer, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Normalizer{opts: opts, out: out, logger: logger}
}

// Name returns the job name
func (n *Normalizer) Name() string {
	return JobName
}

// Run implements pipeline.Job
func (n *Normalizer) Run(ctx context.Context) error {
	_, err := n.Normalize(ctx)
	return err
}

// Normalize reads the input file, coerces every row and writes the output file.
// Nothing is written unless every row converts.
func (n *Normalizer) Normalize(ctx context.Context) (*Result, error) {
	base, err := ResolveBaseDir(n.opts.BaseDir)
	if err != nil {
		return nil, err
	}
	inputPath := resolve(base, n.opts.Input)
	outputPath := resolve(base, n.opts.Output)

	fmt.Fprintln(n.out, "Looking for file at:", inputPath)

	table, err := csvio.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	n.logger.Debug("loaded input",
		zap.String("path", inputPath),
		zap.Int("rows", len(table.Rows)),
		zap.Strings("columns", table.Header))

	rows, err := Rows(ctx, table)
	if err != nil {
		return nil, err
	}

	err = csvio.WriteFileAtomic(outputPath, func(w io.Writer) error {
		return Write(w, table.Header, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	n.logger.Debug("wrote output", zap.String("path", outputPath), zap.Int("rows", len(rows)))

	fmt.Fprintf(n.out, "Cleaned file saved to: %s\n", outputPath)
	return &Result{InputPath: inputPath, OutputPath: outputPath, Rows: len(rows)}, nil
}

// ResolveBaseDir returns dir as an absolute path, or the directory of the
// running executable when dir is empty.
func ResolveBaseDir(dir string) (string, error) {
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to locate executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe), nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base dir: %w", err)
	}
	return abs, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// Rows converts every data row of the table, stopping at the first failure.
func Rows(ctx context.Context, table *csvio.Table) ([]models.NormalizedRow, error) {
	idx, err := table.Require(coerced...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve columns: %w", err)
	}

	rows := make([]models.NormalizedRow, 0, len(table.Rows))
	for i, fields := range table.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := coerceRow(i+1, idx, fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func coerceRow(record int, idx map[string]int, fields []string) (models.NormalizedRow, error) {
	row := models.NormalizedRow{Fields: fields}

	ints := []struct {
		column string
		dst    *int
	}{
		{models.ColumnYear, &row.Year},
		{models.ColumnCandidateVotes, &row.CandidateVotes},
		{models.ColumnTotalVotes, &row.TotalVotes},
		{models.ColumnVersion, &row.Version},
	}
	for _, c := range ints {
		value := fields[idx[c.column]]
		v, err := models.ParseInt(value)
		if err != nil {
			return row, &CoercionError{Record: record, Column: c.column, Value: value, Err: err}
		}
		*c.dst = v
	}

	value := fields[idx[models.ColumnCountyFIPS]]
	fips, err := models.CanonicalFIPS(value)
	if err != nil {
		return row, &CoercionError{Record: record, Column: models.ColumnCountyFIPS, Value: value, Err: err}
	}
	row.CountyFIPS = fips
	return row, nil
}

// Write emits the header and rows with the four integer columns bare and
// every other field quoted, terminating records with CRLF.
func Write(w io.Writer, header []string, rows []models.NormalizedRow) error {
	writer := csvio.NewWriter(w, csvio.QuoteNonNumeric)
	writer.UseCRLF = true

	if err := writer.WriteCells(csvio.Text(header...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.WriteCells(cells(header, row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func cells(header []string, row models.NormalizedRow) []csvio.Cell {
	out := make([]csvio.Cell, len(header))
	for i, col := range header {
		switch col {
		case models.ColumnYear:
			out[i] = csvio.Cell{Value: strconv.Itoa(row.Year), Numeric: true}
		case models.ColumnCandidateVotes:
			out[i] = csvio.Cell{Value: strconv.Itoa(row.CandidateVotes), Numeric: true}
		case models.ColumnTotalVotes:
			out[i] = csvio.Cell{Value: strconv.Itoa(row.TotalVotes), Numeric: true}
		case models.ColumnVersion:
			out[i] = csvio.Cell{Value: strconv.Itoa(row.Version), Numeric: true}
		case models.ColumnCountyFIPS:
			out[i] = csvio.Cell{Value: row.CountyFIPS}
		default:
			out[i] = csvio.Cell{Value: row.Fields[i]}
		}
	}
	return out
}
