package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header row plus data rows read from a CSV or XLSX file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header column, matched
// case-insensitively and ignoring surrounding whitespace and a UTF-8 BOM.
func (t *Table) Column(name string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, true
		}
	}
	return -1, false
}

// Cell returns row[i], or "" when the row is shorter than i+1.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ReadTable reads a headed table from path. Files ending in .xlsx are read
// from their first sheet, .tsv files are tab-separated, and anything else is
// parsed as CSV.
func ReadTable(ctx context.Context, path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, eris.Errorf("table: %s has no header row", path)
		}
		return &Table{Header: rows[0], Rows: rows[1:]}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	opts := CSVOptions{HasHeader: true, TrimSpace: true}
	if ext == ".tsv" {
		opts.Delimiter = '\t'
	}
	headerCh := make(chan []string, 1)
	opts.HeaderCh = headerCh
	rowCh, errCh := StreamCSV(ctx, f, opts)

	t := &Table{}
	for row := range rowCh {
		t.Rows = append(t.Rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}
	select {
	case t.Header = <-headerCh:
	default:
		return nil, eris.Errorf("table: %s has no header row", path)
	}
	return t, nil
}
