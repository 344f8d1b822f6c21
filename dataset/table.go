// Package dataset loads the body-performance CSV and computes the summary
// statistics shown on the exploration page.
package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
)

// DefaultPath is the file name looked up in the working directory.
const DefaultPath = "Body_Performance.csv"

// Table is the raw CSV as read from disk: the original header and the cells
// as strings.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string

	// Hash is the hex SHA-256 of the bytes Load parsed; empty for Read.
	Hash string
}

// Load reads the CSV at path. A missing file yields *errors.MissingDatasetError,
// which callers treat as fatal.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingDatasetError(path)
		}
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	h := sha256.New()
	t, err := Read(io.TeeReader(f, h))
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}
	// csv.Reader stops at EOF, but drain anything it left buffered upstream.
	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.Wrapf(err, "hash dataset %s", path)
	}
	t.Path = path
	t.Hash = hex.EncodeToString(h.Sum(nil))
	return t, nil
}

// Read parses CSV from r. The first record is the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("dataset.Read", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	// Excel exports start with a BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cr.FieldsPerRecord = len(header)
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", len(rows)+1)
		}
		rows = append(rows, rec)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// Shape returns (rows, columns) like DataFrame.shape.
func (t *Table) Shape() (int, int) {
	return len(t.Rows), len(t.Header)
}

// Head returns at most n rows. n <= 0 returns every row.
func (t *Table) Head(n int) [][]string {
	if n <= 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// NumericColumn is one column whose non-empty cells all parse as numbers.
// Empty cells are NaN.
type NumericColumn struct {
	Name   string
	Values []float64
}

// NumericColumns returns the numeric columns in header order.
func (t *Table) NumericColumns() []NumericColumn {
	var out []NumericColumn
	for j, name := range t.Header {
		values := make([]float64, len(t.Rows))
		numeric := len(t.Rows) > 0
		for i, row := range t.Rows {
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				numeric = false
				break
			}
			values[i] = v
		}
		if numeric {
			out = append(out, NumericColumn{Name: name, Values: values})
		}
	}
	return out
}
