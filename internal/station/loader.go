package station

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/weijianneo/find-house/internal/fetcher"
	"github.com/weijianneo/find-house/internal/model"
)

// Column names of the station reference table.
const (
	ColumnName      = "location"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

// Load reads a station table with location, latitude and longitude columns.
// Rows with a blank name are skipped; an unparseable coordinate fails the
// whole load.
func Load(ctx context.Context, path string) ([]model.Station, error) {
	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "station: read table")
	}

	cols := make(map[string]int, 3)
	for _, name := range []string{ColumnName, ColumnLatitude, ColumnLongitude} {
		i, ok := tbl.Column(name)
		if !ok {
			return nil, eris.Errorf("station: %s: missing column %q", path, name)
		}
		cols[name] = i
	}

	stations := make([]model.Station, 0, len(tbl.Rows))
	for n, row := range tbl.Rows {
		name := strings.TrimSpace(fetcher.Cell(row, cols[ColumnName]))
		if name == "" {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fetcher.Cell(row, cols[ColumnLatitude])), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "station: row %d (%s): latitude", n+2, name)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fetcher.Cell(row, cols[ColumnLongitude])), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "station: row %d (%s): longitude", n+2, name)
		}
		stations = append(stations, model.Station{
			Name:     name,
			Location: model.GeoPoint{Lat: lat, Lon: lon},
		})
	}
	return stations, nil
}

// LoadIndex loads the station table at path and builds an Index from it.
func LoadIndex(ctx context.Context, path string) (*Index, error) {
	stations, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndex(stations)
	if err != nil {
		return nil, eris.Wrapf(err, "station: %s", path)
	}
	zap.L().Info("station: loaded reference table",
		zap.String("path", path),
		zap.Int("stations", idx.Len()),
	)
	return idx, nil
}
