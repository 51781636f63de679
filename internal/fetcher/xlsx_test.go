package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Listings": {
			{"listing-location", "price"},
			{"1 Raffles Place", "1200000"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1 Raffles Place", "1200000"}, rows[1])
}

func TestReadXLSX_SkipRowsAndSheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Listings": {{"title"}, {"listing-location"}, {"10 Anson Road"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Listings", SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"listing-location"}, {"10 Anson Road"}}, rows)
}

func TestReadXLSX_MissingSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Listings": {{"a"}}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_NoFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open file")
}
