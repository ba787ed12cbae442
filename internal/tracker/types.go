package tracker

import (
	"time"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
)

// Fix is one GPS sample from the device location provider. Altitude and
// speed are optional; aggregates skip fixes that lack them. Speeds are
// already km/h and are passed through unconverted.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lon"`
	Altitude  *float64  `json:"altitude,omitempty"`
	SpeedKmh  *float64  `json:"speed_kmh,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (f Fix) Coordinate() geo.Coordinate {
	c := geo.Coordinate{Lat: f.Lat, Lng: f.Lng}
	if f.Altitude != nil {
		c.Elevation = *f.Altitude
	}
	return c
}

// RunProgress tracks one user's traversal of one trail. Progress values
// are always clamped to [0,1]; MaxProgress is monotone.
type RunProgress struct {
	TrailID         string    `json:"trail_id"`
	TrailName       string    `json:"trail_name"`
	Category        string    `json:"category"`
	Difficulty      string    `json:"difficulty,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	StartProgress   float64   `json:"start_progress"`
	CurrentProgress float64   `json:"current_progress"`
	MaxProgress     float64   `json:"max_progress"`
	History         []Fix     `json:"history"`
	TopSpeedKmh     float64   `json:"top_speed_kmh"`
	Completed       bool      `json:"completed"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
	EndedAt         time.Time `json:"ended_at,omitempty"`
}

// Covered is the traversed fraction of the trail so far.
func (r *RunProgress) Covered() float64 {
	return r.MaxProgress - r.StartProgress
}

func (r *RunProgress) snapshot() RunProgress {
	out := *r
	out.History = append([]Fix(nil), r.History...)
	return out
}

// OffTrailSegment is a finalized off-piste interval: the user left a
// trail and did not re-enter any trail before the grace period elapsed.
type OffTrailSegment struct {
	Name              string    `json:"name"`
	AssociatedTrailID string    `json:"associated_run_id"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	History           []Fix     `json:"history"`
	TopSpeedKmh       float64   `json:"top_speed_kmh"`
}

// Update is everything one fix caused the tracker to emit. Runs holds
// finalized runs (completed or partial); a run appears here exactly once.
type Update struct {
	Runs     []RunProgress
	OffTrail *OffTrailSegment
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
