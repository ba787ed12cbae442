package descent

import "time"

// Session is one continuous skiing interval between lift rides: an
// ordered group of on-trail and off-trail segments.
type Session struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at,omitempty"`
	TotalSegments int       `json:"total_segments"`
	TopSpeedKmh   float64   `json:"top_speed_kmh"`
	AvgSpeedKmh   float64   `json:"avg_speed_kmh"`
	IsActive      bool      `json:"is_active"`
}

// descentGap is the retroactive boundary: a pause longer than this
// between two on-trail segments starts a new descent.
const descentGap = 5 * time.Minute
