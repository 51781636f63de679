// Package listing loads the input address list for an enrichment job.
package listing

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/weijianneo/find-house/internal/fetcher"
	"github.com/weijianneo/find-house/internal/model"
)

// DefaultColumn is the address column of a listings export.
const DefaultColumn = "listing-location"

// ErrColumnNotFound is returned when the input has no address column.
var ErrColumnNotFound = eris.New("listing: address column not found")

// Load reads the address column from a CSV or XLSX file, drops blank cells,
// and returns the normalized addresses with duplicates removed in
// first-seen order.
func Load(ctx context.Context, path, column string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}

	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "listing: read input")
	}

	idx, ok := tbl.Column(column)
	if !ok {
		return nil, eris.Wrapf(ErrColumnNotFound, "column %q in %s", column, path)
	}

	raw := make([]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		raw = append(raw, fetcher.Cell(row, idx))
	}
	addrs := model.DedupAddresses(raw)

	zap.L().Info("listing: loaded addresses",
		zap.String("path", path),
		zap.Int("rows", len(tbl.Rows)),
		zap.Int("unique", len(addrs)),
	)
	return addrs, nil
}
