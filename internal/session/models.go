package session

import (
	"time"

	"github.com/braincandydan/The-Hunt-sub000/internal/tracker"
)

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AreaID    string    `json:"area_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Status    string    `json:"status"`
}

// Runs is the live view of one session's tracking state.
type Runs struct {
	SessionID   string                `json:"session_id"`
	Active      []tracker.RunProgress `json:"active"`
	Completed   []tracker.RunProgress `json:"completed"`
	TopSpeedKmh float64               `json:"top_speed_kmh"`
}

type ManualCompletionRequest struct {
	TrailID string    `json:"trail_id"`
	Method  string    `json:"method,omitempty"`
	At      time.Time `json:"at,omitempty"`
}
