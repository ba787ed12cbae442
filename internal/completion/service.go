package completion

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/braincandydan/The-Hunt-sub000/internal/db"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"
)

type Service struct {
	db     db.Querier
	trails *trail.Service
}

func NewService(db db.Querier, trails *trail.Service) *Service {
	return &Service{db: db, trails: trails}
}

// Insert appends one completion record. The append is idempotent: a
// retry or a second device persisting the same segment (same feature or
// off-trail marker, same start time) is a no-op.
func (s *Service) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO run_completions
			(id, session_id, user_id, ski_feature_id, started_at, completed_at, duration_seconds,
			 top_speed_kmh, avg_speed_kmh, gps_track, detection_method, descent_session_id,
			 segment_type, sequence_order, associated_run_id, completion_percentage)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,ST_GeomFromGeoJSON(NULLIF($10,'')),$11,NULLIF($12,''),$13,$14,NULLIF($15,''),$16)
		ON CONFLICT DO NOTHING
	`, rec.ID, rec.SessionID, rec.UserID, rec.SkiFeatureID, rec.StartedAt, rec.CompletedAt,
		rec.DurationSeconds, rec.TopSpeedKmh, rec.AvgSpeedKmh, string(rec.GPSTrack),
		rec.DetectionMethod, rec.DescentSessionID, rec.SegmentType, rec.SequenceOrder,
		rec.AssociatedRunID, rec.CompletionPercentage)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// BySession lists a session's completion records in descent order.
func (s *Service) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, user_id, COALESCE(ski_feature_id,''), started_at, completed_at,
		       duration_seconds, top_speed_kmh, avg_speed_kmh, COALESCE(ST_AsGeoJSON(gps_track::geometry),''),
		       detection_method, COALESCE(descent_session_id,''), segment_type, sequence_order,
		       COALESCE(associated_run_id,''), completion_percentage
		FROM run_completions WHERE session_id=$1
		ORDER BY started_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var rawTrack string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.SkiFeatureID, &rec.StartedAt,
			&rec.CompletedAt, &rec.DurationSeconds, &rec.TopSpeedKmh, &rec.AvgSpeedKmh, &rawTrack,
			&rec.DetectionMethod, &rec.DescentSessionID, &rec.SegmentType, &rec.SequenceOrder,
			&rec.AssociatedRunID, &rec.CompletionPercentage); err != nil {
			return nil, err
		}
		if rawTrack != "" {
			rec.GPSTrack = json.RawMessage(rawTrack)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Recompute re-derives one record's completion percentage from its
// persisted GPS track and trail geometry, independently of whatever the
// live tracker wrote. A record without a feature or with an unusable
// track ends up with no percentage, not zero.
func (s *Service) Recompute(ctx context.Context, recordID string) (*float64, error) {
	var featureID string
	var rawTrack string
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(ski_feature_id,''), COALESCE(ST_AsGeoJSON(gps_track::geometry),'')
		FROM run_completions WHERE id=$1
	`, recordID).Scan(&featureID, &rawTrack)
	if err != nil {
		return nil, err
	}

	var pct *float64
	if featureID != "" && rawTrack != "" {
		track, err := trail.DecodeLineString(json.RawMessage(rawTrack))
		if err == nil {
			if lines, err := s.trails.FeatureGeometry(ctx, featureID); err == nil {
				if v, ok := Estimate(track, lines); ok {
					pct = &v
				}
			} else {
				return nil, err
			}
		}
	}

	_, err = s.db.Exec(ctx, `
		UPDATE run_completions SET completion_percentage=$2 WHERE id=$1
	`, recordID, pct)
	if err != nil {
		return nil, err
	}
	return pct, nil
}
