package tracker

import (
	"time"

	"github.com/braincandydan/The-Hunt-sub000/internal/shared/geo"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"
)

type Config struct {
	// ProximityM is the max distance from a trail's line to count as on it.
	ProximityM float64
	// CompletionFraction is the traversed fraction that upgrades a run
	// from partial to completed.
	CompletionFraction float64
	// GracePeriod is the window after leaving a trail during which
	// re-entering any trail cancels the off-trail classification.
	GracePeriod time.Duration
	// ManualDedupWindow suppresses manual completions for a trail that
	// was already completed this recently.
	ManualDedupWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		ProximityM:         30,
		CompletionFraction: 0.85,
		GracePeriod:        30 * time.Second,
		ManualDedupWindow:  5 * time.Minute,
	}
}

// Tracker consumes one ordered fix stream for one user session and turns
// it into run and off-trail transitions. It is purely reactive: all
// elapsed-time checks happen on fix arrival, never on a timer. One
// tracker serves one session; trackers share nothing, so sessions of
// different users run in parallel without locks.
type Tracker struct {
	cfg         Config
	trails      []trail.Feature
	active      map[string]*RunProgress
	completed   []RunProgress
	grace       *graceState
	topSpeedKmh float64
}

// New builds a tracker over a session's feature set. Only features of
// category trail with usable geometry participate; everything else is
// excluded for the rest of the session.
func New(cfg Config, features []trail.Feature) *Tracker {
	t := &Tracker{cfg: cfg, active: map[string]*RunProgress{}}
	for _, f := range features {
		if f.Category != trail.CategoryTrail || len(f.Lines) == 0 {
			continue
		}
		t.trails = append(t.trails, f)
	}
	return t
}

// Advance feeds one fix through every per-trail state machine and the
// grace-period machine, returning whatever was finalized by it.
func (t *Tracker) Advance(fix Fix) Update {
	now := fix.Timestamp
	var up Update

	// Every trail is matched independently; parallel runs whose
	// corridors overlap may all be active at once.
	matches := make(map[string]geo.Match, len(t.trails))
	onAnyTrail := false
	for _, tr := range t.trails {
		m, ok := geo.ClosestOnPolyline(fix.Lat, fix.Lng, tr.Lines)
		if !ok {
			continue
		}
		if m.DistanceM <= t.cfg.ProximityM {
			matches[tr.ID] = m
			onAnyTrail = true
		}
	}

	if t.grace != nil {
		if onAnyTrail {
			// Re-entering skiing cancels the off-trail interpretation
			// retroactively; the buffered interval is discarded.
			t.grace = nil
		} else {
			t.grace.observe(fix)
			if t.grace.expired(now, t.cfg.GracePeriod) {
				seg := t.grace.finalize(now)
				up.OffTrail = &seg
				t.grace = nil
			}
		}
	}

	for _, tr := range t.trails {
		m, within := matches[tr.ID]
		run, tracked := t.active[tr.ID]
		switch {
		case within && !tracked:
			p := clamp01(m.Progress)
			run = &RunProgress{
				TrailID:         tr.ID,
				TrailName:       tr.Name,
				Category:        tr.Category,
				Difficulty:      tr.Difficulty,
				StartedAt:       now,
				StartProgress:   p,
				CurrentProgress: p,
				MaxProgress:     p,
			}
			run.observe(fix, p)
			t.active[tr.ID] = run

		case within && tracked:
			run.observe(fix, clamp01(m.Progress))
			if !run.Completed && run.Covered() >= t.cfg.CompletionFraction {
				// Completion can fire while still skiing; the run stays
				// active so leaving it later still opens a grace period.
				run.Completed = true
				run.CompletedAt = now
				run.EndedAt = now
				snap := run.snapshot()
				t.completed = append(t.completed, snap)
				up.Runs = append(up.Runs, snap)
			}

		case !within && tracked:
			delete(t.active, tr.ID)
			if finalized, emit := t.finalizeRun(run, now); emit {
				up.Runs = append(up.Runs, finalized)
			}
			if run.Completed || run.Covered() > 0 && len(run.History) >= 2 {
				t.grace = newGraceState(now, tr.ID, tr.Name)
				if !onAnyTrail {
					t.grace.observe(fix)
				}
			}
		}
	}

	if fix.SpeedKmh != nil && *fix.SpeedKmh > t.topSpeedKmh {
		t.topSpeedKmh = *fix.SpeedKmh
	}
	return up
}

func (r *RunProgress) observe(fix Fix, progress float64) {
	r.History = append(r.History, fix)
	r.CurrentProgress = progress
	if progress > r.MaxProgress {
		r.MaxProgress = progress
	}
	if fix.SpeedKmh != nil && *fix.SpeedKmh > r.TopSpeedKmh {
		r.TopSpeedKmh = *fix.SpeedKmh
	}
}

// finalizeRun closes a run whose trail was just exited. Runs completed
// inline were already emitted; below-threshold runs with real movement
// become partials; single-point brushes are dropped.
func (t *Tracker) finalizeRun(run *RunProgress, now time.Time) (RunProgress, bool) {
	if run.Completed {
		return RunProgress{}, false
	}
	run.EndedAt = now
	if run.Covered() >= t.cfg.CompletionFraction {
		run.Completed = true
		run.CompletedAt = now
		snap := run.snapshot()
		t.completed = append(t.completed, snap)
		return snap, true
	}
	if run.Covered() > 0 && len(run.History) >= 2 {
		snap := run.snapshot()
		t.completed = append(t.completed, snap)
		return snap, true
	}
	return RunProgress{}, false
}

// CompleteManually records an out-of-band completion (QR scan or similar)
// for a trail, unless one was already recorded inside the de-dup window.
// The synthetic run spans the whole trail and has no location history.
func (t *Tracker) CompleteManually(trailID string, at time.Time) (RunProgress, bool) {
	var feature *trail.Feature
	for i := range t.trails {
		if t.trails[i].ID == trailID {
			feature = &t.trails[i]
			break
		}
	}
	if feature == nil {
		return RunProgress{}, false
	}

	for _, done := range t.completed {
		if done.TrailID == trailID && done.Completed &&
			at.Sub(done.CompletedAt) < t.cfg.ManualDedupWindow {
			return RunProgress{}, false
		}
	}

	run := RunProgress{
		TrailID:         feature.ID,
		TrailName:       feature.Name,
		Category:        feature.Category,
		Difficulty:      feature.Difficulty,
		StartedAt:       at,
		StartProgress:   0,
		CurrentProgress: 1,
		MaxProgress:     1,
		Completed:       true,
		CompletedAt:     at,
		EndedAt:         at,
	}
	t.completed = append(t.completed, run)
	return run, true
}

// Finalize force-closes everything still active at session end: active
// runs become completed or partial by the usual rules, and any open grace
// period is discarded without producing an off-trail segment.
func (t *Tracker) Finalize(at time.Time) Update {
	var up Update
	for id, run := range t.active {
		delete(t.active, id)
		if finalized, emit := t.finalizeRun(run, at); emit {
			up.Runs = append(up.Runs, finalized)
		}
	}
	t.grace = nil
	return up
}

// ActiveRuns returns snapshots of every run currently in progress.
func (t *Tracker) ActiveRuns() []RunProgress {
	out := make([]RunProgress, 0, len(t.active))
	for _, run := range t.active {
		out = append(out, run.snapshot())
	}
	return out
}

// CompletedRuns returns every finalized run so far, completed and partial.
func (t *Tracker) CompletedRuns() []RunProgress {
	return append([]RunProgress(nil), t.completed...)
}

// TopSpeedKmh is the fastest speed seen across everything tracked.
func (t *Tracker) TopSpeedKmh() float64 {
	return t.topSpeedKmh
}
