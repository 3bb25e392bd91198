package lease

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"minewatch/pkg/geometry"
)

// GeoJSON feature-collection decoding. Only Polygon and MultiPolygon
// geometries are meaningful for lease boundaries; anything else is a
// geometry error tied to the offending feature.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string                 `json:"type"`
	Geometry   rawGeometry            `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Field name aliases seen across government lease exports. First present
// alias wins.
var propertyAliases = map[string][]string{
	"id":       {"lease_id", "id", "lease_no", "lease_number", "ML_NO"},
	"name":     {"lease_name", "name", "mine_name", "lease_title", "ML_NAME"},
	"state":    {"state", "state_name", "STATE", "STATE_NAME"},
	"district": {"district", "district_name", "DISTRICT", "DISTRICT_NAME"},
	"mineral":  {"mineral", "mineral_type", "MINERAL", "MINERAL_TYPE"},
	"area":     {"area_hectares", "area_ha", "area", "AREA_HA", "AREA"},
	"from":     {"valid_from", "from_date", "start_date", "VALID_FROM"},
	"to":       {"valid_to", "to_date", "end_date", "VALID_TO"},
}

const dateLayout = "2006-01-02"

// Defaults applied when a record omits metadata, matching what upstream
// registry exports leave blank most often.
var (
	defaultValidFrom, _ = time.Parse(dateLayout, "2020-01-01")
	defaultValidTo, _   = time.Parse(dateLayout, "2030-12-31")
)

// LoadFile reads lease boundaries from a GeoJSON file.
func LoadFile(path string) ([]Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lease file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a GeoJSON feature collection into validated boundaries.
// A feature with invalid geometry fails the whole load with a
// GeometryError naming the feature; partial lease sets would silently
// shrink the legal area and bias detections toward illegal.
func Parse(data []byte) ([]Boundary, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse lease feature collection: %w", err)
	}

	var boundaries []Boundary
	for i, f := range fc.Features {
		rings, err := decodeRings(f.Geometry)
		if err != nil {
			return nil, &GeometryError{FeatureID: featureID(f, i), Reason: err.Error()}
		}

		for j, ring := range rings {
			b := boundaryFromProperties(f.Properties, i)
			if len(rings) > 1 {
				b.ID = fmt.Sprintf("%s#%d", b.ID, j+1)
			}
			b.Ring = ring
			if b.AreaHectares == 0 {
				b.AreaHectares = math.Abs(ring.Area()) / 10000.0
			}
			if err := validate(b); err != nil {
				return nil, err
			}
			boundaries = append(boundaries, b)
		}
	}

	return boundaries, nil
}

// decodeRings returns the outer ring of a Polygon, or the outer ring of
// each member of a MultiPolygon. Interior rings (holes) in lease records
// are cartographic artifacts and are dropped.
func decodeRings(g rawGeometry) ([]geometry.Ring, error) {
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %v", err)
		}
		if len(coords) == 0 {
			return nil, fmt.Errorf("polygon has no rings")
		}
		return []geometry.Ring{toRing(coords[0])}, nil

	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %v", err)
		}
		var rings []geometry.Ring
		for _, poly := range coords {
			if len(poly) == 0 {
				return nil, fmt.Errorf("multipolygon member has no rings")
			}
			rings = append(rings, toRing(poly[0]))
		}
		return rings, nil

	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func toRing(coords [][]float64) geometry.Ring {
	ring := make(geometry.Ring, 0, len(coords))
	for _, c := range coords {
		if len(c) >= 2 {
			ring = append(ring, geometry.Point2D{X: c[0], Y: c[1]})
		}
	}
	return ring
}

func featureID(f feature, index int) string {
	for _, alias := range propertyAliases["id"] {
		if v, ok := f.Properties[alias]; ok {
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("lease_%d", index+1)
}

// boundaryFromProperties maps aliased property names onto the boundary
// metadata, filling defaults for anything missing.
func boundaryFromProperties(props map[string]interface{}, index int) Boundary {
	get := func(key string) (string, bool) {
		for _, alias := range propertyAliases[key] {
			if v, ok := props[alias]; ok {
				return fmt.Sprint(v), true
			}
		}
		return "", false
	}

	b := Boundary{
		Mineral:   "Unknown",
		State:     "Unknown",
		District:  "Unknown",
		ValidFrom: defaultValidFrom,
		ValidTo:   defaultValidTo,
	}

	if v, ok := get("id"); ok {
		b.ID = v
	} else {
		b.ID = fmt.Sprintf("lease_%d", index+1)
	}
	if v, ok := get("name"); ok {
		b.Name = v
	} else {
		b.Name = b.ID
	}
	if v, ok := get("state"); ok {
		b.State = v
	}
	if v, ok := get("district"); ok {
		b.District = v
	}
	if v, ok := get("mineral"); ok {
		b.Mineral = v
	}
	if v, ok := get("area"); ok {
		fmt.Sscanf(v, "%f", &b.AreaHectares)
	}
	if v, ok := get("from"); ok {
		if t, err := time.Parse(dateLayout, v); err == nil {
			b.ValidFrom = t
		}
	}
	if v, ok := get("to"); ok {
		if t, err := time.Parse(dateLayout, v); err == nil {
			b.ValidTo = t
		}
	}

	return b
}
