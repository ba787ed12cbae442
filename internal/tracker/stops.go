package tracker

import (
	"time"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"
)

// DescentState classifies whether the user is still descending.
type DescentState int

const (
	StateSkiing DescentState = iota
	StateNearLift
	StateStopped
)

func (s DescentState) String() string {
	switch s {
	case StateNearLift:
		return "near_lift"
	case StateStopped:
		return "stopped"
	default:
		return "skiing"
	}
}

const (
	liftProximityFactor = 2
	slowSpeedKmh        = 5
	slowStopAfter       = 10 * time.Second
)

// StopDetector decides when a descent has ended: the user is near a lift,
// gaining altitude, or has been slow for long enough. Like the tracker it
// is lazy — every check runs on fix arrival, never on a timer, so a long
// gap with no fixes keeps the last state until the next fix.
type StopDetector struct {
	proximityM   float64
	lifts        [][][]geo.Coordinate
	state        DescentState
	lastAltitude *float64
	slowSince    *time.Time
}

// NewStopDetector keeps the lift geometries out of a session feature set.
// Lifts never participate in proximity matching; they only gate descents.
func NewStopDetector(proximityM float64, features []trail.Feature) *StopDetector {
	d := &StopDetector{proximityM: proximityM}
	for _, f := range features {
		if f.Category == trail.CategoryLift && len(f.Lines) > 0 {
			d.lifts = append(d.lifts, f.Lines)
		}
	}
	return d
}

// Advance folds one fix into the detector and returns the new state.
func (d *StopDetector) Advance(fix Fix) DescentState {
	if d.nearLift(fix) {
		d.state = StateNearLift
		d.slowSince = nil
		d.track(fix)
		return d.state
	}

	if fix.Altitude != nil && d.lastAltitude != nil && *fix.Altitude > *d.lastAltitude {
		d.state = StateStopped
		d.track(fix)
		return d.state
	}

	if fix.SpeedKmh != nil {
		if *fix.SpeedKmh < slowSpeedKmh {
			if d.slowSince == nil {
				since := fix.Timestamp
				d.slowSince = &since
			} else if fix.Timestamp.Sub(*d.slowSince) >= slowStopAfter {
				d.state = StateStopped
				d.track(fix)
				return d.state
			}
		} else {
			d.slowSince = nil
		}
	}

	d.state = StateSkiing
	d.track(fix)
	return d.state
}

// ShouldClose reports whether the current descent session should end.
func (d *StopDetector) ShouldClose() bool {
	return d.state != StateSkiing
}

// Reset clears accumulated state when a new descent opens.
func (d *StopDetector) Reset() {
	d.state = StateSkiing
	d.lastAltitude = nil
	d.slowSince = nil
}

func (d *StopDetector) nearLift(fix Fix) bool {
	for _, lines := range d.lifts {
		m, ok := geo.ClosestOnPolyline(fix.Lat, fix.Lng, lines)
		if ok && m.DistanceM <= liftProximityFactor*d.proximityM {
			return true
		}
	}
	return false
}

func (d *StopDetector) track(fix Fix) {
	if fix.Altitude != nil {
		alt := *fix.Altitude
		d.lastAltitude = &alt
	}
}
