package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/braincandydan/The-Hunt-sub000/internal/completion"
	"github.com/braincandydan/The-Hunt-sub000/internal/db"
	"github.com/braincandydan/The-Hunt-sub000/internal/descent"
	"github.com/braincandydan/The-Hunt-sub000/internal/stream"
	"github.com/braincandydan/The-Hunt-sub000/internal/tracker"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"
)

var (
	ErrNotTracking       = errors.New("session is not tracking")
	ErrCompletionRefused = errors.New("completion refused")
)

// Service hosts the live trackers. Each session owns one tracker fed by
// one fix stream; a per-session mutex serializes fixes from the transport
// while different sessions proceed independently.
type Service struct {
	db          db.Querier
	hub         *stream.Hub
	trails      *trail.Service
	completions *completion.Service
	descents    *descent.Service
	cfg         tracker.Config

	mu   sync.RWMutex
	live map[string]*liveSession
}

type liveSession struct {
	mu      sync.Mutex
	id      string
	userID  string
	tracker *tracker.Tracker
	stops   *tracker.StopDetector
	descent *descent.Live
}

func NewService(db db.Querier, hub *stream.Hub, trails *trail.Service, completions *completion.Service, descents *descent.Service, cfg tracker.Config) *Service {
	return &Service{
		db:          db,
		hub:         hub,
		trails:      trails,
		completions: completions,
		descents:    descents,
		cfg:         cfg,
		live:        map[string]*liveSession{},
	}
}

// Start opens a tracking session: the area's features are loaded once and
// stay fixed for the session's lifetime.
func (s *Service) Start(ctx context.Context, input Session) (Session, error) {
	input.ID = uuid.NewString()
	if input.StartedAt.IsZero() {
		input.StartedAt = time.Now()
	}
	input.Status = "active"

	features, err := s.trails.ListFeatures(ctx, input.AreaID)
	if err != nil {
		return Session{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO ski_sessions (id, user_id, area_id, started_at, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING started_at, status
	`, input.ID, input.UserID, input.AreaID, input.StartedAt, input.Status)
	if err := row.Scan(&input.StartedAt, &input.Status); err != nil {
		return Session{}, err
	}

	ls := &liveSession{
		id:      input.ID,
		userID:  input.UserID,
		tracker: tracker.New(s.cfg, features),
		stops:   tracker.NewStopDetector(s.cfg.ProximityM, features),
	}
	s.mu.Lock()
	s.live[input.ID] = ls
	s.mu.Unlock()

	return input, nil
}

// Ingest feeds one fix through a session's tracker and persists whatever
// it finalized, stamped with the current descent and sequence order.
func (s *Service) Ingest(ctx context.Context, sessionID string, fix tracker.Fix) ([]completion.Record, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}

	up := ls.tracker.Advance(fix)
	records, err := s.persistUpdate(ctx, ls, up)
	if err != nil {
		return nil, err
	}

	ls.stops.Advance(fix)
	if ls.descent != nil && ls.stops.ShouldClose() {
		if err := s.closeDescent(ctx, ls, fix.Timestamp); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// CompleteManual records an out-of-band completion (QR scan at the trail
// base, typically). The tracker's de-dup window may refuse it.
func (s *Service) CompleteManual(ctx context.Context, sessionID string, req ManualCompletionRequest) (completion.Record, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return completion.Record{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	method := req.Method
	if method == "" {
		method = completion.DetectionManual
	}

	run, ok := ls.tracker.CompleteManually(req.TrailID, at)
	if !ok {
		return completion.Record{}, ErrCompletionRefused
	}
	return s.persistSegment(ctx, ls, completion.FromRun(run, ls.id, ls.userID, method))
}

// End force-finalizes everything still active and closes the session.
func (s *Service) End(ctx context.Context, sessionID string) ([]completion.Record, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := time.Now()
	up := ls.tracker.Finalize(now)
	records, err := s.persistUpdate(ctx, ls, up)
	if err != nil {
		return nil, err
	}
	if ls.descent != nil {
		if err := s.closeDescent(ctx, ls, now); err != nil {
			return nil, err
		}
	}

	if _, err := s.db.Exec(ctx, `
		UPDATE ski_sessions SET ended_at=$2, status='ended' WHERE id=$1
	`, sessionID, now); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()
	return records, nil
}

// Runs reports a session's live tracking state.
func (s *Service) Runs(sessionID string) (Runs, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return Runs{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return Runs{
		SessionID:   sessionID,
		Active:      ls.tracker.ActiveRuns(),
		Completed:   ls.tracker.CompletedRuns(),
		TopSpeedKmh: ls.tracker.TopSpeedKmh(),
	}, nil
}

func (s *Service) session(id string) (*liveSession, error) {
	s.mu.RLock()
	ls, ok := s.live[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotTracking
	}
	return ls, nil
}

func (s *Service) persistUpdate(ctx context.Context, ls *liveSession, up tracker.Update) ([]completion.Record, error) {
	var records []completion.Record
	for _, run := range up.Runs {
		rec, err := s.persistSegment(ctx, ls, completion.FromRun(run, ls.id, ls.userID, completion.DetectionGPS))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if up.OffTrail != nil {
		rec, err := s.persistSegment(ctx, ls, completion.FromOffTrail(*up.OffTrail, ls.id, ls.userID))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// persistSegment stamps one emitted segment with the open descent
// (opening one lazily) and appends it to run_completions.
func (s *Service) persistSegment(ctx context.Context, ls *liveSession, rec completion.Record) (completion.Record, error) {
	if ls.descent == nil {
		live := descent.OpenLive(rec.StartedAt)
		if _, err := s.descents.Open(ctx, descent.Session{
			ID:        live.ID,
			SessionID: ls.id,
			UserID:    ls.userID,
			StartedAt: live.StartedAt,
		}); err != nil {
			return completion.Record{}, err
		}
		ls.descent = live
	}
	rec.DescentSessionID = ls.descent.ID
	seq := ls.descent.Stamp(rec.CompletedAt, rec.TopSpeedKmh, rec.AvgSpeedKmh)
	rec.SequenceOrder = &seq

	rec, err := s.completions.Insert(ctx, rec)
	if err != nil {
		return completion.Record{}, err
	}

	if s.hub != nil {
		payload, _ := json.Marshal(rec)
		s.hub.Broadcast(ls.id, payload)
	}
	return rec, nil
}

func (s *Service) closeDescent(ctx context.Context, ls *liveSession, at time.Time) error {
	agg := ls.descent.Close(ls.id, ls.userID, at)
	if err := s.descents.Close(ctx, agg); err != nil {
		return err
	}
	ls.descent = nil
	ls.stops.Reset()
	return nil
}
