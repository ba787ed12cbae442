package completion

import (
	"encoding/json"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
	"github.com/braincandydan/The-Hunt-sub000/internal/tracker"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"
)

const (
	DetectionGPS    = "gps_proximity"
	DetectionManual = "manual"
	DetectionQRScan = "qr_scan"

	SegmentOnTrail  = "on_trail"
	SegmentOffTrail = "off_trail"
)

// Record is the durable projection of a finalized RunProgress or
// OffTrailSegment. SkiFeatureID is empty for off-trail segments;
// CompletionPercentage is nil when no percentage is computable, which is
// distinct from a computed 0. SequenceOrder is nil for records that hold
// no position within a descent, such as off-trail segments after a
// retroactive rebuild.
type Record struct {
	ID                   string          `json:"id"`
	SessionID            string          `json:"session_id"`
	UserID               string          `json:"user_id"`
	SkiFeatureID         string          `json:"ski_feature_id,omitempty"`
	StartedAt            time.Time       `json:"started_at"`
	CompletedAt          time.Time       `json:"completed_at"`
	DurationSeconds      int64           `json:"duration_seconds"`
	TopSpeedKmh          float64         `json:"top_speed_kmh"`
	AvgSpeedKmh          float64         `json:"avg_speed_kmh"`
	GPSTrack             json.RawMessage `json:"gps_track,omitempty"`
	DetectionMethod      string          `json:"detection_method"`
	DescentSessionID     string          `json:"descent_session_id,omitempty"`
	SegmentType          string          `json:"segment_type"`
	SequenceOrder        *int            `json:"sequence_order,omitempty"`
	AssociatedRunID      string          `json:"associated_run_id,omitempty"`
	CompletionPercentage *float64        `json:"completion_percentage,omitempty"`
}

// FromRun projects a finalized run into its persisted record.
func FromRun(run tracker.RunProgress, sessionID, userID, method string) Record {
	pct := clampPct(run.Covered() * 100)
	rec := Record{
		SessionID:            sessionID,
		UserID:               userID,
		SkiFeatureID:         run.TrailID,
		StartedAt:            run.StartedAt,
		CompletedAt:          run.EndedAt,
		DurationSeconds:      int64(run.EndedAt.Sub(run.StartedAt).Seconds()),
		TopSpeedKmh:          run.TopSpeedKmh,
		AvgSpeedKmh:          meanSpeed(run.History),
		DetectionMethod:      method,
		SegmentType:          SegmentOnTrail,
		CompletionPercentage: &pct,
	}
	if len(run.History) > 0 {
		rec.GPSTrack = trackLineString(run.History)
	}
	return rec
}

// FromOffTrail projects a finalized off-trail segment. Off-trail records
// have no feature and no completion percentage.
func FromOffTrail(seg tracker.OffTrailSegment, sessionID, userID string) Record {
	return Record{
		SessionID:       sessionID,
		UserID:          userID,
		StartedAt:       seg.StartedAt,
		CompletedAt:     seg.EndedAt,
		DurationSeconds: int64(seg.EndedAt.Sub(seg.StartedAt).Seconds()),
		TopSpeedKmh:     seg.TopSpeedKmh,
		AvgSpeedKmh:     meanSpeed(seg.History),
		GPSTrack:        trackLineString(seg.History),
		DetectionMethod: DetectionGPS,
		SegmentType:     SegmentOffTrail,
		AssociatedRunID: seg.AssociatedTrailID,
	}
}

func trackLineString(history []tracker.Fix) json.RawMessage {
	coords := make([]geo.Coordinate, 0, len(history))
	for _, fix := range history {
		coords = append(coords, fix.Coordinate())
	}
	return trail.EncodeLineString(coords)
}

// meanSpeed averages the speeds that are present; fixes without a speed
// contribute nothing.
func meanSpeed(history []tracker.Fix) float64 {
	var speeds []float64
	for _, fix := range history {
		if fix.SpeedKmh != nil {
			speeds = append(speeds, *fix.SpeedKmh)
		}
	}
	if len(speeds) == 0 {
		return 0
	}
	return stat.Mean(speeds, nil)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
