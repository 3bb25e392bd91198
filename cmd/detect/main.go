// Command detect runs the full mining detection pipeline over a directory
// of per-band rasters and a lease boundary file, writing reconciled
// detections as GeoJSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"minewatch/internal/config"
	"minewatch/internal/export"
	"minewatch/internal/lease"
	"minewatch/internal/pipeline"
	"minewatch/internal/raster"
	"minewatch/internal/version"
)

func main() {
	bandsDir := flag.String("bands", "", "Directory of per-band rasters (blue/green/red/nir/swir1/swir2.tif)")
	demPath := flag.String("dem", "", "Current-surface DEM raster (optional, enables volume estimation)")
	refDEMPath := flag.String("ref-dem", "", "Pre-mining DEM raster (optional)")
	leasesPath := flag.String("leases", "", "Lease boundaries GeoJSON")
	configPath := flag.String("config", "", "Pipeline configuration TOML")
	outPath := flag.String("out", "detections.geojson", "Output GeoJSON path")
	scale := flag.Float64("scale", 10000, "Optical DN divisor to reflectance")
	demScale := flag.Float64("dem-scale", 0.1, "DEM meters per DN")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("detect %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	if *bandsDir == "" || *leasesPath == "" || *configPath == "" {
		fmt.Println("Usage: detect -bands <dir> -leases <geojson> -config <toml> [-dem <path>] [-out <path>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bands, err := loadBands(*bandsDir, cfg.Grid, *scale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load bands: %v\n", err)
		os.Exit(1)
	}

	var refDEM *raster.Grid
	if *demPath != "" {
		bands.DEM, err = loadDEM(*demPath, cfg.Grid, *demScale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load DEM: %v\n", err)
			os.Exit(1)
		}
	}
	if *refDEMPath != "" {
		refDEM, err = loadDEM(*refDEMPath, cfg.Grid, *demScale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load reference DEM: %v\n", err)
			os.Exit(1)
		}
	}

	leases, err := lease.LoadFile(*leasesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load leases: %v\n", err)
		os.Exit(1)
	}
	log.Info().Int("leases", len(leases)).Str("file", *leasesPath).Msg("loaded lease boundaries")

	result, err := pipeline.Run(ctx, log, cfg, pipeline.Inputs{
		Bands:        bands,
		ReferenceDEM: refDEM,
		Leases:       leases,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline failed: %v\n", err)
		os.Exit(1)
	}

	if err := export.WriteFile(*outPath, result.Areas, &result.Summary); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}

	s := result.Summary
	fmt.Printf("Detected %d mining areas (%.2f ha total)\n", s.TotalAreas, s.TotalAreaHa)
	fmt.Printf("  legal:   %d\n", s.LegalAreas)
	fmt.Printf("  illegal: %d\n", s.IllegalAreas)
	fmt.Printf("  mixed:   %d\n", s.MixedAreas)
	fmt.Printf("Violation rate: %.1f%%\n", s.ViolationRatePct)
	fmt.Printf("Results written to %s\n", *outPath)
}
