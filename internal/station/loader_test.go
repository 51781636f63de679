package station

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weijianneo/find-house/internal/model"
)

func writeStations(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mrt_stations.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeStations(t, `code,location,latitude,longitude
EW14,RAFFLES PLACE,1.2840,103.8514
,,,
EW16,TANJONG PAGAR,1.2765,103.8456
`)

	stations, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []model.Station{
		{Name: "RAFFLES PLACE", Location: model.GeoPoint{Lat: 1.2840, Lon: 103.8514}},
		{Name: "TANJONG PAGAR", Location: model.GeoPoint{Lat: 1.2765, Lon: 103.8456}},
	}, stations)
}

func TestLoad_BadCoordinate(t *testing.T) {
	path := writeStations(t, "location,latitude,longitude\nRAFFLES PLACE,north,103.85\n")

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2 (RAFFLES PLACE): latitude")
}

func TestLoad_MissingColumn(t *testing.T) {
	path := writeStations(t, "location,latitude\nRAFFLES PLACE,1.28\n")

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "longitude"`)
}

func TestLoadIndex(t *testing.T) {
	path := writeStations(t, "location,latitude,longitude\nRAFFLES PLACE,1.2840,103.8514\n")

	idx, err := LoadIndex(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestLoadIndex_NoRows(t *testing.T) {
	path := writeStations(t, "location,latitude,longitude\n")

	_, err := LoadIndex(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoStations))
}
