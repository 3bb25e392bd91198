package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minewatch/internal/classify"
	"minewatch/internal/normalize"
	"minewatch/internal/spectral"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalGrid = `
[grid]
resolution_m = 10.0
min_x = 0.0
min_y = 0.0
max_x = 400.0
max_y = 400.0
`

// TestLoadMinimal checks that a file naming only the grid keeps every
// stage at its defaults.
func TestLoadMinimal(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimalGrid))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Classify, cfg.Classify)
	assert.Equal(t, def.Vectorize, cfg.Vectorize)
	assert.Equal(t, def.Volume, cfg.Volume)
	assert.Equal(t, def.Spectral, cfg.Spectral)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 10.0, cfg.Grid.ResolutionM, 1e-9)
	assert.Equal(t, cfg.Classify.Conditions, cfg.Reconcile.Conditions)
}

// TestLoadOverlay checks that defined keys override defaults and undefined
// keys survive, including zero-valued overrides.
func TestLoadOverlay(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
log_level = "debug"
`+minimalGrid+`
[normalize]
method = "nearest"
max_fill_radius = 0

[classify]
quorum = 5
signature_enabled = false

[reconcile]
critical_area_ha = 2.5

[volume]
reference_buffer_px = 5
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, normalize.Nearest, cfg.Normalize.Method)
	assert.Zero(t, cfg.Normalize.MaxFillRadius, "explicit zero must not revert to the default")
	assert.Equal(t, 5, cfg.Classify.Quorum)
	assert.False(t, cfg.Classify.SignatureEnabled)
	assert.InDelta(t, 2.5, cfg.Reconcile.CriticalAreaHa, 1e-9)
	assert.Equal(t, 5, cfg.Volume.ReferenceBufferPx)

	// Untouched sections keep defaults.
	assert.Equal(t, Default().Vectorize, cfg.Vectorize)
	assert.Len(t, cfg.Classify.Conditions, 7)
}

// TestLoadConditions checks replacing the condition set from file.
func TestLoadConditions(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimalGrid+`
[classify]
quorum = 2

[[classify.conditions]]
index = "ndvi"
direction = "below"
threshold = 0.25

[[classify.conditions]]
index = "bsi"
direction = "above"
threshold = 0.2
`))
	require.NoError(t, err)

	require.Len(t, cfg.Classify.Conditions, 2)
	assert.Equal(t, classify.Condition{
		Index: spectral.NDVI, Direction: classify.Below, Threshold: 0.25,
	}, cfg.Classify.Conditions[0])
	assert.Equal(t, 2, cfg.Classify.Quorum)
	assert.Equal(t, cfg.Classify.Conditions, cfg.Reconcile.Conditions)
}

// TestLoadRejectsInvalid checks validation and parse failures.
func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"missing grid", `log_level = "info"`},
		{"unknown resampling method", minimalGrid + "\n[normalize]\nmethod = \"cubic\"\n"},
		{"quorum above condition count", minimalGrid + "\n[classify]\nquorum = 99\n"},
		{"inverted breakpoints", minimalGrid + "\n[reconcile]\nlegal_overlap = 0.1\nillegal_overlap = 0.9\n"},
		{"broken toml", `[grid`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

// TestDefaultValid checks that defaults plus any grid pass validation.
func TestDefaultValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Grid = normalize.GridSpec{ResolutionM: 30, MinX: 0, MinY: 0, MaxX: 300, MaxY: 300}
	assert.NoError(t, cfg.Validate())
}
