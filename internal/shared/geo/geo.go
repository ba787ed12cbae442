package geo

import "math"

// earthRadiusM treats the Earth as a sphere; good enough at piste scale.
const earthRadiusM = 6371000.0

const degToRad = math.Pi / 180

// Coordinate is one vertex of a polyline or GPS track, in degrees.
// Elevation is meters above sea level when known, otherwise zero.
type Coordinate struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Elevation float64 `json:"elevation,omitempty"`
}

// Match is the result of projecting a point onto a polyline.
type Match struct {
	// DistanceM is the great-circle distance from the point to the
	// nearest point on the polyline, in meters.
	DistanceM float64
	// Progress is the fractional position of that nearest point along
	// the full polyline, 0 at the first vertex and 1 at the last.
	Progress float64
}

// HaversineM returns the great-circle distance between two points in meters.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + sinLng*sinLng*math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ClosestOnPolyline projects a point onto a trail geometry made of one or
// more polylines. Segments are numbered contiguously across parts, so
// Progress spans the whole geometry. The projection uses a planar local
// frame per segment (fine for short segments) while the reported distance
// is a true haversine distance to the projected point.
//
// Ties between segments keep the first-found minimum; this is
// implementation-defined and not stable under vertex reordering.
//
// Geometries with fewer than two usable vertices yield ok=false and the
// caller must treat the trail as not matchable.
func ClosestOnPolyline(lat, lng float64, lines [][]Coordinate) (Match, bool) {
	totalSegments := 0
	for _, line := range lines {
		if len(line) >= 2 {
			totalSegments += len(line) - 1
		}
	}
	if totalSegments == 0 {
		return Match{}, false
	}

	best := Match{DistanceM: math.Inf(1)}
	segIndex := 0
	for _, line := range lines {
		if len(line) < 2 {
			continue
		}
		for i := 0; i < len(line)-1; i++ {
			a, b := line[i], line[i+1]
			projLat, projLng, t, ok := projectOnSegment(lat, lng, a, b)
			if !ok {
				// zero-length segment, skipped but still counted
				segIndex++
				continue
			}
			d := HaversineM(lat, lng, projLat, projLng)
			if d < best.DistanceM {
				best.DistanceM = d
				best.Progress = (float64(segIndex) + t) / float64(totalSegments)
			}
			segIndex++
		}
	}
	if math.IsInf(best.DistanceM, 1) {
		return Match{}, false
	}
	return best, true
}

// projectOnSegment returns the point on segment a-b closest to (lat,lng)
// along with the clamped projection parameter t in [0,1]. The segment is
// flattened into a local equirectangular frame around its mean latitude.
func projectOnSegment(lat, lng float64, a, b Coordinate) (float64, float64, float64, bool) {
	latRef := (a.Lat + b.Lat) / 2 * degToRad
	cosRef := math.Cos(latRef)

	ax, ay := a.Lng*cosRef, a.Lat
	bx, by := b.Lng*cosRef, b.Lat
	px, py := lng*cosRef, lat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0, 0, 0, false
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	projLat := a.Lat + t*(b.Lat-a.Lat)
	projLng := a.Lng + t*(b.Lng-a.Lng)
	return projLat, projLng, t, true
}
