package tracker

import (
	"fmt"
	"time"
)

// graceState is the off-trail sub-state machine. A nil *graceState means
// Inactive. It buffers off-piste fixes from the moment a trail is exited
// until either any trail is re-entered (the buffer is discarded) or the
// grace period elapses (the buffer becomes an OffTrailSegment).
//
// Expiry is only ever evaluated when the next fix arrives. There is no
// wall-clock timer: if fixes stop, the grace period stays open until
// another fix shows up, however late.
type graceState struct {
	since         time.Time
	leftTrailID   string
	leftTrailName string
	history       []Fix
	topSpeedKmh   float64
}

func newGraceState(at time.Time, trailID, trailName string) *graceState {
	return &graceState{since: at, leftTrailID: trailID, leftTrailName: trailName}
}

// observe buffers one off-piste fix.
func (g *graceState) observe(fix Fix) {
	g.history = append(g.history, fix)
	if fix.SpeedKmh != nil && *fix.SpeedKmh > g.topSpeedKmh {
		g.topSpeedKmh = *fix.SpeedKmh
	}
}

func (g *graceState) expired(now time.Time, period time.Duration) bool {
	return now.Sub(g.since) >= period
}

func (g *graceState) finalize(now time.Time) OffTrailSegment {
	return OffTrailSegment{
		Name:              fmt.Sprintf("Off-trail (from %s)", g.leftTrailName),
		AssociatedTrailID: g.leftTrailID,
		StartedAt:         g.since,
		EndedAt:           now,
		History:           g.history,
		TopSpeedKmh:       g.topSpeedKmh,
	}
}
