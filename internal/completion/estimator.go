package completion

import (
	"math"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
)

// maxSamplePoints bounds the per-track projection work; long tracks are
// downsampled evenly with the raw endpoints always kept.
const maxSamplePoints = 50

// Estimate recomputes a 0-100 completion percentage for a finished GPS
// track against a trail geometry: the span between the lowest and highest
// matched progress. Retracing the same stretch back and forth therefore
// never overcounts. ok=false means "not computable" — a missing or
// too-short track, or geometry nothing could match — and is distinct from
// a computed 0.
func Estimate(track []geo.Coordinate, lines [][]geo.Coordinate) (float64, bool) {
	if len(track) < 2 {
		return 0, false
	}

	minProgress := math.Inf(1)
	maxProgress := math.Inf(-1)
	matched := false
	for _, point := range sampleTrack(track) {
		m, ok := geo.ClosestOnPolyline(point.Lat, point.Lng, lines)
		if !ok {
			continue
		}
		matched = true
		minProgress = math.Min(minProgress, m.Progress)
		maxProgress = math.Max(maxProgress, m.Progress)
	}
	if !matched {
		return 0, false
	}
	return clampPct((maxProgress - minProgress) * 100), true
}

// sampleTrack picks up to maxSamplePoints evenly spaced points. The first
// and last raw points are always among them.
func sampleTrack(track []geo.Coordinate) []geo.Coordinate {
	if len(track) <= maxSamplePoints {
		return track
	}
	samples := make([]geo.Coordinate, 0, maxSamplePoints)
	for i := 0; i < maxSamplePoints; i++ {
		idx := i * (len(track) - 1) / (maxSamplePoints - 1)
		samples = append(samples, track[idx])
	}
	return samples
}
