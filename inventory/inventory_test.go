package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/tilecov/coverage"
)

const scenarioJSON = `[
	{"name": "planet", "min_lon": -180, "max_lon": 180, "min_lat": -85.0511, "max_lat": 85.0511, "max_zoom": 12},
	{"name": "alps", "min_lon": 11.25, "max_lon": 16.875, "min_lat": 45.09, "max_lat": 48.92, "max_zoom": 17}
]`

func TestParse(t *testing.T) {
	inv, err := Parse([]byte(scenarioJSON))
	require.NoError(t, err)
	require.Len(t, inv, 2)
	assert.Equal(t, "planet", inv[0].Name)
	assert.Equal(t, 12, inv[0].MaxZoom)
	assert.Equal(t, -180.0, *inv[0].MinLon)
	assert.Equal(t, "alps", inv[1].Name)
	assert.Equal(t, 17, inv[1].MaxZoom)
	assert.Nil(t, inv[1].Metadata)
}

func TestParse_KeepsUnknownKeysAsMetadata(t *testing.T) {
	inv, err := Parse([]byte(`[
		{"name": "a", "min_lon": 0, "max_lon": 1, "min_lat": 0, "max_lat": 1, "max_zoom": 5, "attribution": "x"}
	]`))
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, map[string]interface{}{"attribution": "x"}, inv[0].Metadata)
	assert.Equal(t, coverage.DatasetEntry{Name: "a", Metadata: inv[0].Metadata}, inv[0].Entry())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		rawJSON string
	}{
		{name: "not an array", rawJSON: `{"name": "a"}`},
		{name: "missing name", rawJSON: `[{"min_lon": 0, "max_lon": 1, "min_lat": 0, "max_lat": 1, "max_zoom": 5}]`},
		{name: "missing bound", rawJSON: `[{"name": "a", "min_lon": 0, "max_lon": 1, "min_lat": 0, "max_zoom": 5}]`},
		{name: "missing max zoom", rawJSON: `[{"name": "a", "min_lon": 0, "max_lon": 1, "min_lat": 0, "max_lat": 1}]`},
		{name: "max zoom too deep", rawJSON: `[{"name": "a", "min_lon": 0, "max_lon": 1, "min_lat": 0, "max_lat": 1, "max_zoom": 31}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.rawJSON))
			assert.ErrorIs(t, err, coverage.ErrMalformedInput)
		})
	}
}

func TestBaseZoom(t *testing.T) {
	inv, err := Parse([]byte(scenarioJSON))
	require.NoError(t, err)

	zbase, baseName, err := inv.BaseZoom(nil)
	require.NoError(t, err)
	assert.Equal(t, 12, zbase)
	assert.Equal(t, "planet", baseName)

	override := 10
	zbase, baseName, err = inv.BaseZoom(&override)
	require.NoError(t, err)
	assert.Equal(t, 10, zbase)
	assert.Equal(t, "", baseName, "the full-coverage item is above the override, it must stamp explicitly")

	override = 13
	zbase, baseName, err = inv.BaseZoom(&override)
	require.NoError(t, err)
	assert.Equal(t, 13, zbase)
	assert.Equal(t, "planet", baseName)
}

func TestBaseZoom_FallbackWithoutFullCoverage(t *testing.T) {
	inv, err := Parse([]byte(`[
		{"name": "a", "min_lon": 0, "max_lon": 10, "min_lat": 0, "max_lat": 10, "max_zoom": 8},
		{"name": "b", "min_lon": 20, "max_lon": 30, "min_lat": 0, "max_lat": 10, "max_zoom": 6}
	]`))
	require.NoError(t, err)

	zbase, baseName, err := inv.BaseZoom(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, zbase, "one below the smallest max zoom, so every item keeps explicit rows")
	assert.Equal(t, "", baseName)
}

func TestBaseZoom_EmptyInventory(t *testing.T) {
	_, _, err := Inventory{}.BaseZoom(nil)
	assert.ErrorIs(t, err, coverage.ErrMalformedInput)
}

func TestEncode_Scenario(t *testing.T) {
	inv, err := Parse([]byte(scenarioJSON))
	require.NoError(t, err)

	tam, err := inv.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, 12, tam.ZBase)
	assert.Equal(t, 17, tam.ZMax)
	require.NotNil(t, tam.Base)
	assert.Equal(t, 0, *tam.Base)

	index, err := coverage.NewIndex(tam)
	require.NoError(t, err)

	zoom, datasetID := index.DatasetHere(14, 47)
	dataset, ok := index.Dataset(datasetID)
	require.True(t, ok)
	assert.Equal(t, 17, zoom)
	assert.Equal(t, "alps", dataset.Name)

	zoom, datasetID = index.DatasetHere(0, 0)
	dataset, ok = index.Dataset(datasetID)
	require.True(t, ok)
	assert.Equal(t, 12, zoom)
	assert.Equal(t, "planet", dataset.Name)
}
