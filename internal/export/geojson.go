// Package export writes reconciled detection results as GeoJSON. Feature
// order and property ordering are deterministic so successive runs over the
// same inputs produce byte-identical files.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"minewatch/internal/reconcile"
	"minewatch/pkg/geometry"
)

type featureCollection struct {
	Type     string             `json:"type"`
	Features []feature          `json:"features"`
	Summary  *reconcile.Summary `json:"summary,omitempty"`
}

type feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   polygonGeom    `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type polygonGeom struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// WriteFile writes the reconciled areas and their batch summary to path.
func WriteFile(path string, areas []reconcile.Area, summary *reconcile.Summary) error {
	data, err := Marshal(areas, summary)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

// Marshal renders the areas as an indented GeoJSON FeatureCollection.
// Map-valued properties serialize with sorted keys, which keeps the output
// stable.
func Marshal(areas []reconcile.Area, summary *reconcile.Summary) ([]byte, error) {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]feature, 0, len(areas)),
		Summary:  summary,
	}
	for _, a := range areas {
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			ID:         a.Polygon.ID,
			Geometry:   ringGeometry(a.Polygon.Ring),
			Properties: properties(a),
		})
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

func ringGeometry(r geometry.Ring) polygonGeom {
	coords := make([][2]float64, len(r))
	for i, p := range r {
		coords[i] = [2]float64{p.X, p.Y}
	}
	return polygonGeom{Type: "Polygon", Coordinates: [][][2]float64{coords}}
}

func properties(a reconcile.Area) map[string]any {
	props := map[string]any{
		"classification":   string(a.Classification),
		"overlap_fraction": a.OverlapFraction,
		"confidence":       a.Confidence,
		"area_hectares":    a.Polygon.AreaHectares,
		"perimeter_m":      a.Polygon.PerimeterM,
		"compactness":      a.Polygon.Compactness,
		"inside_area_ha":   a.InsideAreaHa,
		"outside_area_ha":  a.OutsideAreaHa,
	}
	if a.Severity != "" {
		props["severity"] = string(a.Severity)
	}
	for ix, mean := range a.Polygon.MeanIndex {
		props["mean_"+string(ix)] = mean
	}
	if len(a.Leases) > 0 {
		overlaps := make([]map[string]any, len(a.Leases))
		for i, l := range a.Leases {
			overlaps[i] = map[string]any{
				"lease_id":      l.LeaseID,
				"area_hectares": l.AreaHectares,
			}
		}
		props["lease_overlaps"] = overlaps
	}
	if a.Volume != nil {
		props["depth_m"] = a.Volume.DepthMeanM
		props["max_depth_m"] = a.Volume.DepthMaxM
		props["volume_m3"] = a.Volume.VolumeM3
		props["naive_volume_m3"] = a.Volume.NaiveVolumeM3
	}
	if a.VolumeError != "" {
		props["volume_error"] = a.VolumeError
	}
	return props
}
