package tracker

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"
)

var t0 = time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func fixAt(lat, lng float64, at time.Time, speedKmh float64) Fix {
	return Fix{Lat: lat, Lng: lng, Timestamp: at, SpeedKmh: fptr(speedKmh)}
}

// One-segment trail running due north for one degree of latitude, so a
// fix at 49.0+x sits at progress x.
func longTrail(id, name string) trail.Feature {
	return trail.Feature{
		ID: id, Name: name, Category: trail.CategoryTrail, Difficulty: "blue",
		Lines: [][]geo.Coordinate{{
			{Lat: 49.0, Lng: -119.0},
			{Lat: 50.0, Lng: -119.0},
		}},
	}
}

func TestFullTraversalCompletes(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})

	up := tr.Advance(fixAt(49.0, -119.0, t0, 20))
	if len(up.Runs) != 0 {
		t.Fatalf("nothing should be emitted on entry")
	}
	if len(tr.ActiveRuns()) != 1 {
		t.Fatalf("expected one active run")
	}

	up = tr.Advance(fixAt(49.5, -119.0, t0.Add(time.Minute), 45))
	if len(up.Runs) != 0 {
		t.Fatalf("half a trail should not complete")
	}

	up = tr.Advance(fixAt(50.0, -119.0, t0.Add(2*time.Minute), 30))
	if len(up.Runs) != 1 {
		t.Fatalf("expected inline completion, got %d runs", len(up.Runs))
	}
	run := up.Runs[0]
	if !run.Completed {
		t.Fatalf("full traversal must be completed, never partial")
	}
	if run.TopSpeedKmh != 45 {
		t.Fatalf("unexpected top speed %v", run.TopSpeedKmh)
	}
	if run.CompletedAt != t0.Add(2*time.Minute) {
		t.Fatalf("unexpected completion time")
	}
	if tr.TopSpeedKmh() != 45 {
		t.Fatalf("tracker top speed: %v", tr.TopSpeedKmh())
	}
}

func TestCompletionThresholdBoundary(t *testing.T) {
	// 0.85 of the trail completes; 0.84 and leaving emits a partial.
	cases := []struct {
		name      string
		maxLat    float64
		completed bool
	}{
		{"at threshold", 49.85, true},
		{"just below", 49.84, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
			tr.Advance(fixAt(49.0, -119.0, t0, 20))
			up := tr.Advance(fixAt(tc.maxLat, -119.0, t0.Add(time.Minute), 30))

			if tc.completed {
				if len(up.Runs) != 1 || !up.Runs[0].Completed {
					t.Fatalf("expected inline completion at threshold")
				}
				return
			}
			if len(up.Runs) != 0 {
				t.Fatalf("below threshold must not complete inline")
			}
			// leave the trail
			up = tr.Advance(fixAt(49.84, -118.9, t0.Add(2*time.Minute), 10))
			if len(up.Runs) != 1 {
				t.Fatalf("expected a partial on exit")
			}
			run := up.Runs[0]
			if run.Completed {
				t.Fatalf("0.84 coverage must be partial, not completed")
			}
			if run.Covered() <= 0 || len(run.History) < 2 {
				t.Fatalf("partial must carry real movement")
			}
		})
	}
}

func TestSinglePointBrushIsDiscarded(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
	tr.Advance(fixAt(49.5, -119.0, t0, 10))
	up := tr.Advance(fixAt(49.5, -118.9, t0.Add(5*time.Second), 10))
	if len(up.Runs) != 0 {
		t.Fatalf("one-fix brush must not emit a run")
	}
	if got := len(tr.CompletedRuns()); got != 0 {
		t.Fatalf("expected no finalized runs, got %d", got)
	}
}

func TestGracePeriodFinalizesOnlyOnNextFix(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
	tr.Advance(fixAt(49.0, -119.0, t0, 20))
	tr.Advance(fixAt(49.2, -119.0, t0.Add(time.Minute), 30))

	// leave the trail; partial emitted, grace opens
	up := tr.Advance(fixAt(49.2, -118.9, t0.Add(time.Minute+10*time.Second), 25))
	if len(up.Runs) != 1 || up.Runs[0].Completed {
		t.Fatalf("expected partial on exit")
	}
	if up.OffTrail != nil {
		t.Fatalf("off-trail must not finalize at exit time")
	}

	// 60 seconds pass with no fix at all: nothing may be emitted, there
	// is no timer to fire. The next fix both observes the gap and
	// finalizes the segment.
	next := fixAt(49.21, -118.9, t0.Add(time.Minute+70*time.Second), 15)
	up = tr.Advance(next)
	if up.OffTrail == nil {
		t.Fatalf("expected off-trail segment once the next fix crossed the grace period")
	}
	seg := up.OffTrail
	if seg.AssociatedTrailID != "t1" {
		t.Fatalf("off-trail must reference the trail just left, got %q", seg.AssociatedTrailID)
	}
	if seg.Name != "Off-trail (from Ridge)" {
		t.Fatalf("unexpected name %q", seg.Name)
	}
	if len(seg.History) != 2 {
		t.Fatalf("expected exit fix and late fix in history, got %d", len(seg.History))
	}
	if seg.TopSpeedKmh != 25 {
		t.Fatalf("unexpected off-trail top speed %v", seg.TopSpeedKmh)
	}
}

func TestGracePeriodCancelledByReentry(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
	tr.Advance(fixAt(49.0, -119.0, t0, 20))
	tr.Advance(fixAt(49.2, -119.0, t0.Add(time.Minute), 30))
	tr.Advance(fixAt(49.2, -118.9, t0.Add(time.Minute+10*time.Second), 25))

	// off-piste fixes are buffered...
	up := tr.Advance(fixAt(49.21, -118.9, t0.Add(time.Minute+20*time.Second), 25))
	if up.OffTrail != nil {
		t.Fatalf("grace period still open")
	}

	// ...but re-entering any trail discards them, even after the window.
	up = tr.Advance(fixAt(49.3, -119.0, t0.Add(3*time.Minute), 35))
	if up.OffTrail != nil {
		t.Fatalf("re-entry must cancel the off-trail segment")
	}
	if len(tr.ActiveRuns()) != 1 {
		t.Fatalf("re-entry should start a fresh run")
	}
}

func TestParallelTrailsTrackIndependently(t *testing.T) {
	// Two parallel fall lines ~29 m apart; a fix on one corridor is
	// inside both proximity corridors.
	left := longTrail("left", "Left Chute")
	right := trail.Feature{
		ID: "right", Name: "Right Chute", Category: trail.CategoryTrail,
		Lines: [][]geo.Coordinate{{
			{Lat: 49.0, Lng: -119.0004},
			{Lat: 50.0, Lng: -119.0004},
		}},
	}
	tr := New(DefaultConfig(), []trail.Feature{left, right})

	tr.Advance(fixAt(49.0, -119.0002, t0, 20))
	active := tr.ActiveRuns()
	if len(active) != 2 {
		t.Fatalf("expected both parallel trails active, got %d", len(active))
	}

	up := tr.Advance(fixAt(50.0, -119.0002, t0.Add(2*time.Minute), 40))
	if len(up.Runs) != 2 {
		t.Fatalf("expected both runs to complete, got %d", len(up.Runs))
	}
}

func TestNonTrailAndDegenerateFeaturesExcluded(t *testing.T) {
	lift := trail.Feature{
		ID: "l1", Name: "Summit Express", Category: trail.CategoryLift,
		Lines: [][]geo.Coordinate{{{Lat: 49.0, Lng: -119.0}, {Lat: 50.0, Lng: -119.0}}},
	}
	broken := trail.Feature{ID: "b1", Name: "Broken", Category: trail.CategoryTrail}
	tr := New(DefaultConfig(), []trail.Feature{lift, broken})

	tr.Advance(fixAt(49.5, -119.0, t0, 20))
	if len(tr.ActiveRuns()) != 0 {
		t.Fatalf("lifts and degenerate features must never match")
	}
}

func TestCompleteManuallyDedup(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
	tr.Advance(fixAt(49.0, -119.0, t0, 20))
	tr.Advance(fixAt(50.0, -119.0, t0.Add(2*time.Minute), 30))

	if _, ok := tr.CompleteManually("t1", t0.Add(3*time.Minute)); ok {
		t.Fatalf("manual completion inside the de-dup window must be rejected")
	}

	run, ok := tr.CompleteManually("t1", t0.Add(10*time.Minute))
	if !ok {
		t.Fatalf("manual completion outside the window must succeed")
	}
	want := RunProgress{
		TrailID: "t1", TrailName: "Ridge", Category: trail.CategoryTrail, Difficulty: "blue",
		StartedAt: t0.Add(10 * time.Minute), StartProgress: 0, CurrentProgress: 1, MaxProgress: 1,
		Completed: true, CompletedAt: t0.Add(10 * time.Minute), EndedAt: t0.Add(10 * time.Minute),
	}
	if diff := cmp.Diff(want, run); diff != "" {
		t.Fatalf("synthetic run mismatch (-want +got):\n%s", diff)
	}

	if _, ok := tr.CompleteManually("nope", t0); ok {
		t.Fatalf("unknown trail must be rejected")
	}
}

func TestFinalizeClosesActives(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
	tr.Advance(fixAt(49.0, -119.0, t0, 20))
	tr.Advance(fixAt(49.3, -119.0, t0.Add(time.Minute), 30))

	up := tr.Finalize(t0.Add(2 * time.Minute))
	if len(up.Runs) != 1 || up.Runs[0].Completed {
		t.Fatalf("session end should finalize the active run as partial")
	}
	if len(tr.ActiveRuns()) != 0 {
		t.Fatalf("no runs may stay active after finalize")
	}
}

func TestProgressClamped(t *testing.T) {
	tr := New(DefaultConfig(), []trail.Feature{longTrail("t1", "Ridge")})
	tr.Advance(fixAt(49.0, -119.0, t0, 20))
	tr.Advance(fixAt(50.0, -119.0, t0.Add(time.Minute), 20))
	for _, run := range tr.CompletedRuns() {
		for _, p := range []float64{run.StartProgress, run.CurrentProgress, run.MaxProgress} {
			if p < 0 || p > 1 {
				t.Fatalf("progress out of range: %v", p)
			}
		}
	}
}
