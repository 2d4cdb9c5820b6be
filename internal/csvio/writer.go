package csvio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// QuotePolicy selects which fields the Writer wraps in quotes
type QuotePolicy string

const (
	// QuoteAll quotes every field
	QuoteAll QuotePolicy = "all"
	// QuoteNonNumeric quotes every field except cells marked numeric
	QuoteNonNumeric QuotePolicy = "nonnumeric"
)

// ValidateQuotePolicy checks if the policy is known
func ValidateQuotePolicy(policy QuotePolicy) error {
	switch policy {
	case QuoteAll, QuoteNonNumeric:
		return nil
	default:
		return fmt.Errorf("invalid quote policy: %s", policy)
	}
}

// Cell is one output field. Numeric cells hold the decimal form of a number.
type Cell struct {
	Value   string
	Numeric bool
}

// Text builds non-numeric cells from plain values
func Text(values ...string) []Cell {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Value: v}
	}
	return cells
}

// Writer writes CSV records under a QuotePolicy. encoding/csv only quotes
// when a field requires it, so quoting is done here.
type Writer struct {
	// UseCRLF terminates records with \r\n instead of \n
	UseCRLF bool

	policy QuotePolicy
	w      *bufio.Writer
	err    error
}

// NewWriter returns a Writer that writes to w. An unknown policy makes
// every write fail.
func NewWriter(w io.Writer, policy QuotePolicy) *Writer {
	return &Writer{policy: policy, w: bufio.NewWriter(w), err: ValidateQuotePolicy(policy)}
}

// WriteCells writes a single record.
func (w *Writer) WriteCells(cells []Cell) error {
	if w.err != nil {
		return w.err
	}
	for i, c := range cells {
		if i > 0 {
			w.w.WriteByte(',')
		}
		if w.policy == QuoteNonNumeric && c.Numeric {
			w.w.WriteString(c.Value)
			continue
		}
		w.w.WriteByte('"')
		w.w.WriteString(strings.ReplaceAll(c.Value, `"`, `""`))
		w.w.WriteByte('"')
	}
	var err error
	if w.UseCRLF {
		_, err = w.w.WriteString("\r\n")
	} else {
		err = w.w.WriteByte('\n')
	}
	if err != nil {
		w.err = err
	}
	return err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() {
	if w.err != nil {
		return
	}
	w.err = w.w.Flush()
}

// Error reports any error from a previous write or flush.
func (w *Writer) Error() error {
	return w.err
}

// WriteFileAtomic writes path through a temporary file in the same
// directory. On any error the temporary file is removed and path is untouched.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
