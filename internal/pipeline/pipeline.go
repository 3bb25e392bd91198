// Package pipeline chains the detection stages: normalize, spectral
// indices, classification, vectorization, lease reconciliation and volume
// estimation. Each stage completes before the next begins; per-polygon work
// in the later stages runs on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"minewatch/internal/classify"
	"minewatch/internal/config"
	"minewatch/internal/lease"
	"minewatch/internal/normalize"
	"minewatch/internal/raster"
	"minewatch/internal/reconcile"
	"minewatch/internal/spectral"
	"minewatch/internal/vectorize"
	"minewatch/internal/volume"
)

// Inputs carries the raw acquisition for one scene.
type Inputs struct {
	Bands *raster.BandSet
	// ReferenceDEM is an optional pre-mining surface. When nil, each
	// polygon's reference elevation comes from the terrain just outside
	// its footprint.
	ReferenceDEM *raster.Grid
	Leases       []lease.Boundary
}

// Result is everything the pipeline produced for one scene.
type Result struct {
	Areas   []reconcile.Area
	Summary reconcile.Summary
	// Mask and Indices are the intermediate products, kept for inspection
	// and reporting.
	Mask    *raster.Mask
	Indices *spectral.Set
}

// Run executes the full pipeline. Volume estimation failures are isolated
// per polygon; everything else aborts the run.
func Run(ctx context.Context, log zerolog.Logger, cfg config.Config, in Inputs) (*Result, error) {
	if in.Bands == nil {
		return nil, fmt.Errorf("pipeline: no input bands")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	norm, err := stageNormalize(ctx, log, cfg, in)
	if err != nil {
		return nil, err
	}

	indices, err := stageSpectral(ctx, log, cfg, norm.Bands)
	if err != nil {
		return nil, err
	}

	mask, err := stageClassify(ctx, log, cfg, indices)
	if err != nil {
		return nil, err
	}

	polys, err := stageVectorize(ctx, log, cfg, mask, indices)
	if err != nil {
		return nil, err
	}

	areas, err := stageReconcile(ctx, log, cfg, polys, in.Leases)
	if err != nil {
		return nil, err
	}

	if norm.Bands.DEM != nil {
		stageVolume(ctx, log, cfg, areas, norm.Bands.DEM, norm.Reference)
	} else {
		log.Info().Msg("no DEM supplied, skipping volume estimation")
	}

	summary := reconcile.Summarize(areas)
	log.Info().
		Int("areas", len(areas)).
		Int("illegal", summary.IllegalAreas).
		Dur("elapsed", time.Since(start)).
		Msg("pipeline complete")

	return &Result{Areas: areas, Summary: summary, Mask: mask, Indices: indices}, nil
}

type normalized struct {
	Bands     *raster.BandSet
	Reference *raster.Grid
}

func stageNormalize(ctx context.Context, log zerolog.Logger, cfg config.Config, in Inputs) (*normalized, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := time.Now()
	bands, err := normalize.Normalize(in.Bands, cfg.Grid, cfg.Normalize)
	if err != nil {
		return nil, err
	}
	out := &normalized{Bands: bands}
	if in.ReferenceDEM != nil {
		ref, err := normalize.Resample(in.ReferenceDEM, cfg.Grid, cfg.Normalize.Method)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resampling reference DEM: %w", err)
		}
		out.Reference = ref
	}
	w, h := cfg.Grid.Shape()
	log.Info().Int("width", w).Int("height", h).Dur("elapsed", time.Since(t)).Msg("normalized input rasters")
	return out, nil
}

func stageSpectral(ctx context.Context, log zerolog.Logger, cfg config.Config, bands *raster.BandSet) (*spectral.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := time.Now()
	indices, err := spectral.Compute(bands, cfg.Spectral)
	if err != nil {
		return nil, err
	}
	log.Info().Int("indices", len(spectral.All)).Dur("elapsed", time.Since(t)).Msg("computed spectral indices")
	return indices, nil
}

func stageClassify(ctx context.Context, log zerolog.Logger, cfg config.Config, indices *spectral.Set) (*raster.Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := time.Now()
	mask, err := classify.Detect(indices, cfg.Classify)
	if err != nil {
		return nil, err
	}
	log.Info().Int("candidate_cells", mask.Count()).Dur("elapsed", time.Since(t)).Msg("classified candidate pixels")
	return mask, nil
}

func stageVectorize(ctx context.Context, log zerolog.Logger, cfg config.Config, mask *raster.Mask, indices *spectral.Set) ([]vectorize.Polygon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := time.Now()
	polys, err := vectorize.Extract(mask, indices, cfg.Vectorize)
	if err != nil {
		return nil, err
	}
	log.Info().Int("polygons", len(polys)).Dur("elapsed", time.Since(t)).Msg("vectorized mining areas")
	return polys, nil
}

func stageReconcile(ctx context.Context, log zerolog.Logger, cfg config.Config, polys []vectorize.Polygon, leases []lease.Boundary) ([]reconcile.Area, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := time.Now()
	areas, err := reconcile.Reconcile(polys, leases, cfg.Reconcile)
	if err != nil {
		return nil, err
	}
	log.Info().Int("leases", len(leases)).Dur("elapsed", time.Since(t)).Msg("reconciled against lease boundaries")
	return areas, nil
}

// stageVolume estimates excavation volume for every area with activity
// outside a lease. Estimates run concurrently; a failed estimate marks only
// its own area.
func stageVolume(ctx context.Context, log zerolog.Logger, cfg config.Config, areas []reconcile.Area, dem, reference *raster.Grid) {
	t := time.Now()
	workers := runtime.NumCPU()
	if workers > len(areas) {
		workers = len(areas)
	}
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range areas {
		if areas[i].Classification == reconcile.Legal {
			continue
		}
		if err := ctx.Err(); err != nil {
			areas[i].VolumeError = err.Error()
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(a *reconcile.Area) {
			defer wg.Done()
			defer func() { <-sem }()
			est, err := volume.ForPolygon(a.Polygon, dem, reference, cfg.Volume)
			if err != nil {
				a.VolumeError = err.Error()
				log.Warn().Str("polygon", a.Polygon.ID).Err(err).Msg("volume estimation failed")
				return
			}
			a.Volume = est
		}(&areas[i])
	}
	wg.Wait()
	log.Info().Dur("elapsed", time.Since(t)).Msg("estimated excavation volumes")
}
