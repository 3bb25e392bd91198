// Package config loads pipeline settings from TOML. Every stage has a
// section; omitted keys keep their defaults, so a minimal file only names
// the analysis grid.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"minewatch/internal/classify"
	"minewatch/internal/normalize"
	"minewatch/internal/reconcile"
	"minewatch/internal/spectral"
	"minewatch/internal/vectorize"
	"minewatch/internal/volume"
)

// Config aggregates the options of every pipeline stage.
type Config struct {
	LogLevel  string
	Grid      normalize.GridSpec
	Normalize normalize.Options
	Spectral  spectral.Options
	Classify  classify.Options
	Vectorize vectorize.Options
	Reconcile reconcile.Options
	Volume    volume.Options
}

// Default returns the configuration with every stage at its defaults. The
// grid spec is left empty; callers must set it or load it from file.
func Default() Config {
	return Config{
		LogLevel:  "info",
		Normalize: normalize.DefaultOptions(),
		Spectral:  spectral.DefaultOptions(),
		Classify:  classify.DefaultOptions(),
		Vectorize: vectorize.DefaultOptions(),
		Reconcile: reconcile.DefaultOptions(),
		Volume:    volume.DefaultOptions(),
	}
}

// Validate checks cross-stage consistency.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if err := c.Classify.Validate(); err != nil {
		return err
	}
	if err := c.Reconcile.Validate(); err != nil {
		return err
	}
	if c.Vectorize.MinAreaHa < 0 || c.Vectorize.MaxAreaHa < c.Vectorize.MinAreaHa {
		return fmt.Errorf("config: vectorize area window [%g,%g] is invalid",
			c.Vectorize.MinAreaHa, c.Vectorize.MaxAreaHa)
	}
	if c.Volume.MaxNoDataFraction < 0 || c.Volume.MaxNoDataFraction > 1 {
		return fmt.Errorf("config: volume max_no_data_fraction %g out of [0,1]",
			c.Volume.MaxNoDataFraction)
	}
	return nil
}

// config.toml key mapping to pipeline settings.
type fileConfig struct {
	LogLevel string `toml:"log_level"`

	Grid struct {
		SRS         string  `toml:"srs"`
		ResolutionM float64 `toml:"resolution_m"`
		MinX        float64 `toml:"min_x"`
		MinY        float64 `toml:"min_y"`
		MaxX        float64 `toml:"max_x"`
		MaxY        float64 `toml:"max_y"`
	} `toml:"grid"`

	Normalize struct {
		Method           string  `toml:"method"`
		MinValidFraction float64 `toml:"min_valid_fraction"`
		MaxFillRadius    int     `toml:"max_fill_radius"`
	} `toml:"normalize"`

	Spectral struct {
		Workers        int     `toml:"workers"`
		SAVISoilFactor float64 `toml:"savi_soil_factor"`
		EVIGain        float64 `toml:"evi_gain"`
		EVIC1          float64 `toml:"evi_c1"`
		EVIC2          float64 `toml:"evi_c2"`
		EVISoilLine    float64 `toml:"evi_soil_line"`
	} `toml:"spectral"`

	Classify struct {
		Quorum           int                  `toml:"quorum"`
		SignatureEnabled bool                 `toml:"signature_enabled"`
		KernelSize       int                  `toml:"kernel_size"`
		Conditions       []classify.Condition `toml:"conditions"`
		Signature        []classify.Condition `toml:"signature"`
	} `toml:"classify"`

	Vectorize struct {
		MinAreaHa float64 `toml:"min_area_ha"`
		MaxAreaHa float64 `toml:"max_area_ha"`
	} `toml:"vectorize"`

	Reconcile struct {
		LegalOverlap   float64 `toml:"legal_overlap"`
		IllegalOverlap float64 `toml:"illegal_overlap"`
		OverlapWeight  float64 `toml:"overlap_weight"`
		StrengthWeight float64 `toml:"strength_weight"`
		StrengthScale  float64 `toml:"strength_scale"`
		CriticalAreaHa float64 `toml:"critical_area_ha"`
	} `toml:"reconcile"`

	Volume struct {
		ReferenceBufferPx int     `toml:"reference_buffer_px"`
		MaxNoDataFraction float64 `toml:"max_no_data_fraction"`
	} `toml:"volume"`
}

// Load reads a TOML file and overlays it on the defaults. Keys absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("grid", "srs") {
		cfg.Grid.SRS = strings.TrimSpace(raw.Grid.SRS)
	}
	if meta.IsDefined("grid", "resolution_m") {
		cfg.Grid.ResolutionM = raw.Grid.ResolutionM
	}
	if meta.IsDefined("grid", "min_x") {
		cfg.Grid.MinX = raw.Grid.MinX
	}
	if meta.IsDefined("grid", "min_y") {
		cfg.Grid.MinY = raw.Grid.MinY
	}
	if meta.IsDefined("grid", "max_x") {
		cfg.Grid.MaxX = raw.Grid.MaxX
	}
	if meta.IsDefined("grid", "max_y") {
		cfg.Grid.MaxY = raw.Grid.MaxY
	}

	if meta.IsDefined("normalize", "method") {
		switch strings.ToLower(strings.TrimSpace(raw.Normalize.Method)) {
		case "bilinear":
			cfg.Normalize.Method = normalize.Bilinear
		case "nearest":
			cfg.Normalize.Method = normalize.Nearest
		default:
			return Config{}, fmt.Errorf("load config %s: unknown resampling method %q", path, raw.Normalize.Method)
		}
	}
	if meta.IsDefined("normalize", "min_valid_fraction") {
		cfg.Normalize.MinValidFraction = raw.Normalize.MinValidFraction
	}
	if meta.IsDefined("normalize", "max_fill_radius") {
		cfg.Normalize.MaxFillRadius = raw.Normalize.MaxFillRadius
	}

	if meta.IsDefined("spectral", "workers") {
		cfg.Spectral.Workers = raw.Spectral.Workers
	}
	if meta.IsDefined("spectral", "savi_soil_factor") {
		cfg.Spectral.Constants.SAVISoilFactor = raw.Spectral.SAVISoilFactor
	}
	if meta.IsDefined("spectral", "evi_gain") {
		cfg.Spectral.Constants.EVIGain = raw.Spectral.EVIGain
	}
	if meta.IsDefined("spectral", "evi_c1") {
		cfg.Spectral.Constants.EVIC1 = raw.Spectral.EVIC1
	}
	if meta.IsDefined("spectral", "evi_c2") {
		cfg.Spectral.Constants.EVIC2 = raw.Spectral.EVIC2
	}
	if meta.IsDefined("spectral", "evi_soil_line") {
		cfg.Spectral.Constants.EVISoilLine = raw.Spectral.EVISoilLine
	}

	if meta.IsDefined("classify", "quorum") {
		cfg.Classify.Quorum = raw.Classify.Quorum
	}
	if meta.IsDefined("classify", "signature_enabled") {
		cfg.Classify.SignatureEnabled = raw.Classify.SignatureEnabled
	}
	if meta.IsDefined("classify", "kernel_size") {
		cfg.Classify.KernelSize = raw.Classify.KernelSize
	}
	if meta.IsDefined("classify", "conditions") {
		cfg.Classify.Conditions = raw.Classify.Conditions
	}
	if meta.IsDefined("classify", "signature") {
		cfg.Classify.Signature = raw.Classify.Signature
	}

	if meta.IsDefined("vectorize", "min_area_ha") {
		cfg.Vectorize.MinAreaHa = raw.Vectorize.MinAreaHa
	}
	if meta.IsDefined("vectorize", "max_area_ha") {
		cfg.Vectorize.MaxAreaHa = raw.Vectorize.MaxAreaHa
	}

	if meta.IsDefined("reconcile", "legal_overlap") {
		cfg.Reconcile.LegalOverlap = raw.Reconcile.LegalOverlap
	}
	if meta.IsDefined("reconcile", "illegal_overlap") {
		cfg.Reconcile.IllegalOverlap = raw.Reconcile.IllegalOverlap
	}
	if meta.IsDefined("reconcile", "overlap_weight") {
		cfg.Reconcile.OverlapWeight = raw.Reconcile.OverlapWeight
	}
	if meta.IsDefined("reconcile", "strength_weight") {
		cfg.Reconcile.StrengthWeight = raw.Reconcile.StrengthWeight
	}
	if meta.IsDefined("reconcile", "strength_scale") {
		cfg.Reconcile.StrengthScale = raw.Reconcile.StrengthScale
	}
	if meta.IsDefined("reconcile", "critical_area_ha") {
		cfg.Reconcile.CriticalAreaHa = raw.Reconcile.CriticalAreaHa
	}

	if meta.IsDefined("volume", "reference_buffer_px") {
		cfg.Volume.ReferenceBufferPx = raw.Volume.ReferenceBufferPx
	}
	if meta.IsDefined("volume", "max_no_data_fraction") {
		cfg.Volume.MaxNoDataFraction = raw.Volume.MaxNoDataFraction
	}

	// The reconciler scores detection strength against the same conditions
	// the classifier voted with.
	cfg.Reconcile.Conditions = cfg.Classify.Conditions

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
