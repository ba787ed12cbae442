package trail

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
)

// Feature categories. Only trails participate in proximity matching;
// lifts are consulted to suppress false descents, the rest are ignored.
const (
	CategoryTrail    = "trail"
	CategoryLift     = "lift"
	CategoryBoundary = "boundary"
	CategoryArea     = "area"
	CategoryRoad     = "road"
)

type Feature struct {
	ID         string             `json:"id"`
	AreaID     string             `json:"area_id"`
	Name       string             `json:"name"`
	Category   string             `json:"category"`
	Difficulty string             `json:"difficulty,omitempty"`
	Geometry   json.RawMessage    `json:"geometry"`
	Lines      [][]geo.Coordinate `json:"-"`
	CreatedAt  time.Time          `json:"created_at"`
}

var errUnsupportedGeometry = errors.New("unsupported geometry type")

type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeometry parses a GeoJSON LineString or MultiLineString into
// polyline parts. Positions are [lng, lat] or [lng, lat, elevation].
// Anything else is an error; callers exclude such features from matching.
func DecodeGeometry(raw json.RawMessage) ([][]geo.Coordinate, error) {
	if len(raw) == 0 {
		return nil, errUnsupportedGeometry
	}
	var g geoJSON
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}

	switch g.Type {
	case "LineString":
		var positions [][]float64
		if err := json.Unmarshal(g.Coordinates, &positions); err != nil {
			return nil, err
		}
		line, err := decodeLine(positions)
		if err != nil {
			return nil, err
		}
		return [][]geo.Coordinate{line}, nil
	case "MultiLineString":
		var parts [][][]float64
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return nil, err
		}
		lines := make([][]geo.Coordinate, 0, len(parts))
		for _, positions := range parts {
			line, err := decodeLine(positions)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
		}
		return lines, nil
	default:
		return nil, errUnsupportedGeometry
	}
}

func decodeLine(positions [][]float64) ([]geo.Coordinate, error) {
	line := make([]geo.Coordinate, 0, len(positions))
	for _, pos := range positions {
		if len(pos) < 2 {
			return nil, errors.New("position needs at least lng and lat")
		}
		c := geo.Coordinate{Lng: pos[0], Lat: pos[1]}
		if len(pos) > 2 {
			c.Elevation = pos[2]
		}
		line = append(line, c)
	}
	return line, nil
}

// EncodeLineString renders a GPS track as a GeoJSON LineString with
// [lng, lat, elevation] positions.
func EncodeLineString(track []geo.Coordinate) json.RawMessage {
	positions := make([][]float64, 0, len(track))
	for _, c := range track {
		positions = append(positions, []float64{c.Lng, c.Lat, c.Elevation})
	}
	out, _ := json.Marshal(geoJSONLine{Type: "LineString", Coordinates: positions})
	return out
}

// DecodeLineString parses a GeoJSON LineString into a flat track.
func DecodeLineString(raw json.RawMessage) ([]geo.Coordinate, error) {
	lines, err := DecodeGeometry(raw)
	if err != nil {
		return nil, err
	}
	if len(lines) != 1 {
		return nil, errUnsupportedGeometry
	}
	return lines[0], nil
}

type geoJSONLine struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}
