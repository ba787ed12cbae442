package completion

import (
	"math"
	"testing"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
)

// One-segment trail running due north for one degree of latitude.
var trailLines = [][]geo.Coordinate{{
	{Lat: 49.0, Lng: -119.0},
	{Lat: 50.0, Lng: -119.0},
}}

func northTrack(fromLat, toLat float64, points int) []geo.Coordinate {
	track := make([]geo.Coordinate, 0, points)
	for i := 0; i < points; i++ {
		lat := fromLat + (toLat-fromLat)*float64(i)/float64(points-1)
		track = append(track, geo.Coordinate{Lat: lat, Lng: -119.0})
	}
	return track
}

func TestEstimateFullTraversal(t *testing.T) {
	pct, ok := Estimate(northTrack(49.0, 50.0, 20), trailLines)
	if !ok {
		t.Fatalf("expected a value")
	}
	if math.Abs(pct-100) > 0.5 {
		t.Fatalf("expected ~100%%, got %v", pct)
	}
}

func TestEstimatePartialTraversal(t *testing.T) {
	pct, ok := Estimate(northTrack(49.2, 49.6, 20), trailLines)
	if !ok {
		t.Fatalf("expected a value")
	}
	if math.Abs(pct-40) > 1 {
		t.Fatalf("expected ~40%%, got %v", pct)
	}
}

func TestEstimateBackAndForthDoesNotOvercount(t *testing.T) {
	// Retrace the same bottom 10% of the trail six times over, with far
	// more raw points than the sampler keeps.
	var track []geo.Coordinate
	for lap := 0; lap < 6; lap++ {
		from, to := 49.0, 49.1
		if lap%2 == 1 {
			from, to = to, from
		}
		track = append(track, northTrack(from, to, 30)...)
	}
	pct, ok := Estimate(track, trailLines)
	if !ok {
		t.Fatalf("expected a value")
	}
	if math.Abs(pct-10) > 1 {
		t.Fatalf("retracing 10%% of the trail must estimate ~10%%, got %v", pct)
	}
}

func TestEstimateRange(t *testing.T) {
	pct, ok := Estimate(northTrack(48.0, 51.0, 40), trailLines)
	if !ok {
		t.Fatalf("expected a value")
	}
	if pct < 0 || pct > 100 {
		t.Fatalf("percentage out of range: %v", pct)
	}
}

func TestEstimateNotComputable(t *testing.T) {
	if _, ok := Estimate(nil, trailLines); ok {
		t.Fatalf("missing track must yield no value")
	}
	if _, ok := Estimate(northTrack(49, 50, 2)[:1], trailLines); ok {
		t.Fatalf("single-point track must yield no value")
	}
	if _, ok := Estimate(northTrack(49, 50, 10), nil); ok {
		t.Fatalf("missing geometry must yield no value")
	}
	degenerate := [][]geo.Coordinate{{{Lat: 49, Lng: -119}}}
	if _, ok := Estimate(northTrack(49, 50, 10), degenerate); ok {
		t.Fatalf("degenerate geometry must yield no value")
	}
}

func TestSampleTrackKeepsEndpoints(t *testing.T) {
	track := northTrack(49.0, 49.9, 200)
	samples := sampleTrack(track)
	if len(samples) != maxSamplePoints {
		t.Fatalf("expected %d samples, got %d", maxSamplePoints, len(samples))
	}
	if samples[0] != track[0] || samples[len(samples)-1] != track[len(track)-1] {
		t.Fatalf("first and last raw points must always be sampled")
	}
}
