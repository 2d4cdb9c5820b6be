// Package csvio loads whole CSV files into memory and writes them back
// under an explicit quoting policy.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a CSV file held in memory
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	for i, col := range t.Header {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Require resolves the named columns to their positions. The error lists
// every missing column, not only the first.
func (t *Table) Require(names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	var missing []string
	for _, name := range names {
		i, ok := t.Index(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// Head returns at most n data rows.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.Rows[:n]
}

// ReadFile loads a comma-delimited file, or the first CSV inside a .zip archive.
// A byte order mark selects the encoding (UTF-8 or UTF-16) and is dropped;
// without one the content must be UTF-8.
func ReadFile(path string) (*Table, error) {
	var (
		raw []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		raw, err = readZIP(path)
	} else {
		raw, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("open %s: %w", filepath.Base(path), err)
		}
	}
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse is ReadFile for content already in memory.
func Parse(raw []byte) (*Table, error) {
	data, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, errors.New("content is not valid UTF-8")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}
