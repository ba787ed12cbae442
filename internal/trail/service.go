package trail

import (
	"context"
	"encoding/json"
	"log"

	"github.com/braincandydan/The-Hunt-sub000/internal/db"
	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// ListFeatures loads every feature of an area, decoding geometry as it
// goes. Features with degenerate or unsupported geometry keep their raw
// GeoJSON but have no Lines; the tracker skips them.
func (s *Service) ListFeatures(ctx context.Context, areaID string) ([]Feature, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, area_id, name, category, COALESCE(difficulty,''), ST_AsGeoJSON(geometry::geometry), created_at
		FROM ski_features WHERE area_id=$1
		ORDER BY name
	`, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var features []Feature
	for rows.Next() {
		var f Feature
		var rawGeom string
		if err := rows.Scan(&f.ID, &f.AreaID, &f.Name, &f.Category, &f.Difficulty, &rawGeom, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Geometry = json.RawMessage(rawGeom)
		lines, err := DecodeGeometry(f.Geometry)
		if err != nil {
			log.Printf("feature %s: geometry excluded: %v", f.ID, err)
		} else {
			f.Lines = lines
		}
		features = append(features, f)
	}
	return features, nil
}

// FeatureGeometry loads one feature's polyline parts by id.
func (s *Service) FeatureGeometry(ctx context.Context, id string) ([][]geo.Coordinate, error) {
	var rawGeom string
	err := s.db.QueryRow(ctx, `
		SELECT ST_AsGeoJSON(geometry::geometry) FROM ski_features WHERE id=$1
	`, id).Scan(&rawGeom)
	if err != nil {
		return nil, err
	}
	return DecodeGeometry(json.RawMessage(rawGeom))
}
