package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minewatch/internal/reconcile"
	"minewatch/internal/spectral"
	"minewatch/internal/vectorize"
	"minewatch/internal/volume"
	"minewatch/pkg/geometry"
)

func sampleAreas() []reconcile.Area {
	ring := geometry.Ring{
		{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 200, Y: 200}, {X: 100, Y: 200}, {X: 100, Y: 100},
	}
	return []reconcile.Area{
		{
			Polygon: vectorize.Polygon{
				ID:           "mining_001",
				Ring:         ring,
				AreaHectares: 1.0,
				PerimeterM:   400,
				Compactness:  0.785,
				MeanIndex:    map[spectral.Index]float64{spectral.NDVI: 0.05, spectral.BSI: 0.4},
			},
			Classification:  reconcile.Illegal,
			OverlapFraction: 0,
			Confidence:      0.87,
			Severity:        reconcile.SeverityWarning,
			OutsideAreaHa:   1.0,
			Volume: &volume.Estimate{
				DepthMeanM:    4.2,
				DepthMaxM:     9.1,
				VolumeM3:      41000,
				NaiveVolumeM3: 42000,
				SampledCells:  100,
			},
		},
		{
			Polygon: vectorize.Polygon{
				ID:           "mining_002",
				Ring:         ring,
				AreaHectares: 0.5,
			},
			Classification:  reconcile.Legal,
			OverlapFraction: 1,
			Confidence:      0.95,
			InsideAreaHa:    0.5,
			Leases:          []reconcile.LeaseOverlap{{LeaseID: "ML-1", AreaHectares: 0.5}},
		},
	}
}

// TestMarshalStructure checks the FeatureCollection layout and per-feature
// properties.
func TestMarshalStructure(t *testing.T) {
	t.Parallel()

	areas := sampleAreas()
	summary := reconcile.Summarize(areas)
	data, err := Marshal(areas, &summary)
	require.NoError(t, err)

	var fc map[string]any
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc["type"])

	features := fc["features"].([]any)
	require.Len(t, features, 2)

	first := features[0].(map[string]any)
	assert.Equal(t, "mining_001", first["id"])
	geom := first["geometry"].(map[string]any)
	assert.Equal(t, "Polygon", geom["type"])

	props := first["properties"].(map[string]any)
	assert.Equal(t, "illegal", props["classification"])
	assert.Equal(t, "warning", props["severity"])
	assert.InDelta(t, 0.87, props["confidence"].(float64), 1e-9)
	assert.InDelta(t, 1.0, props["area_hectares"].(float64), 1e-9)
	assert.InDelta(t, 0.05, props["mean_ndvi"].(float64), 1e-9)
	assert.InDelta(t, 4.2, props["depth_m"].(float64), 1e-9)
	assert.InDelta(t, 41000.0, props["volume_m3"].(float64), 1e-9)

	second := features[1].(map[string]any)
	sprops := second["properties"].(map[string]any)
	assert.Equal(t, "legal", sprops["classification"])
	assert.NotContains(t, sprops, "severity")
	assert.NotContains(t, sprops, "depth_m")
	assert.NotContains(t, sprops, "volume_m3")
	overlaps := sprops["lease_overlaps"].([]any)
	require.Len(t, overlaps, 1)
	assert.Equal(t, "ML-1", overlaps[0].(map[string]any)["lease_id"])

	assert.Contains(t, fc, "summary")
}

// TestMarshalVolumeError checks that a failed estimate surfaces as a
// property instead of volume figures.
func TestMarshalVolumeError(t *testing.T) {
	t.Parallel()

	areas := sampleAreas()
	areas[0].Volume = nil
	areas[0].VolumeError = "footprint elevation is no-data"

	data, err := Marshal(areas, nil)
	require.NoError(t, err)

	var fc map[string]any
	require.NoError(t, json.Unmarshal(data, &fc))
	props := fc["features"].([]any)[0].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "footprint elevation is no-data", props["volume_error"])
	assert.NotContains(t, props, "volume_m3")
}

// TestMarshalDeterministic checks byte-identical output across runs.
func TestMarshalDeterministic(t *testing.T) {
	t.Parallel()

	areas := sampleAreas()
	summary := reconcile.Summarize(areas)

	first, err := Marshal(areas, &summary)
	require.NoError(t, err)
	second, err := Marshal(areas, &summary)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestWriteFile checks the file output path.
func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.geojson")
	require.NoError(t, WriteFile(path, sampleAreas(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
