package listing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hdb_listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeCSV(t, `listing-title,listing-location,price
"3 room flat","1 raffles place",400000
"4 room flat",,500000
"5 room flat","1 RAFFLES PLACE ",600000
"exec","10 Anson Road",700000
`)

	addrs, err := Load(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1 RAFFLES PLACE", "10 ANSON ROAD"}, addrs)
}

func TestLoad_CustomColumn(t *testing.T) {
	path := writeCSV(t, "Address\nblk 123 bishan st 12\n")

	addrs, err := Load(context.Background(), path, "address")
	require.NoError(t, err)
	assert.Equal(t, []string{"BLK 123 BISHAN ST 12"}, addrs)
}

func TestLoad_ShortRows(t *testing.T) {
	path := writeCSV(t, "id,listing-location\n1\n2,10 anson road\n")

	addrs, err := Load(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"10 ANSON ROAD"}, addrs)
}

func TestLoad_MissingColumn(t *testing.T) {
	path := writeCSV(t, "title,price\nflat,1\n")

	_, err := Load(context.Background(), path, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

func TestLoad_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, v := range []string{"listing-location", "1 raffles place", "1 Raffles Place"} {
		sheet.AddRow().AddCell().SetString(v)
	}
	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, f.Save(path))

	addrs, err := Load(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1 RAFFLES PLACE"}, addrs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.csv"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing: read input")
}
