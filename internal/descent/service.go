package descent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/braincandydan/The-Hunt-sub000/internal/db"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Open persists a freshly opened live descent, still active.
func (s *Service) Open(ctx context.Context, d Session) (Session, error) {
	d.IsActive = true
	_, err := s.db.Exec(ctx, `
		INSERT INTO descent_sessions (id, session_id, user_id, started_at, total_segments, top_speed_kmh, avg_speed_kmh, is_active)
		VALUES ($1,$2,$3,$4,0,0,0,true)
	`, d.ID, d.SessionID, d.UserID, d.StartedAt)
	if err != nil {
		return Session{}, err
	}
	return d, nil
}

// Close freezes a descent's aggregates and deactivates it.
func (s *Service) Close(ctx context.Context, d Session) error {
	_, err := s.db.Exec(ctx, `
		UPDATE descent_sessions
		SET ended_at=$2, total_segments=$3, top_speed_kmh=$4, avg_speed_kmh=$5, is_active=false
		WHERE id=$1
	`, d.ID, d.EndedAt, d.TotalSegments, d.TopSpeedKmh, d.AvgSpeedKmh)
	return err
}

// BySession lists a tracking session's descents, oldest first.
func (s *Service) BySession(ctx context.Context, sessionID string) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, user_id, started_at, COALESCE(ended_at, started_at), total_segments, top_speed_kmh, avg_speed_kmh, is_active
		FROM descent_sessions WHERE session_id=$1
		ORDER BY started_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var d Session
		if err := rows.Scan(&d.ID, &d.SessionID, &d.UserID, &d.StartedAt, &d.EndedAt, &d.TotalSegments, &d.TopSpeedKmh, &d.AvgSpeedKmh, &d.IsActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, d)
	}
	return sessions, nil
}

type segmentRow struct {
	id          string
	startedAt   time.Time
	endedAt     time.Time
	topSpeedKmh float64
	avgSpeedKmh float64
}

// Rebuild regroups a session's persisted on-trail records into descents
// from scratch. A gap longer than five minutes between one segment's end
// and the next segment's start opens a new descent; off-trail records
// never move boundaries. They are re-pointed at the descent whose window
// contains them with their sequence cleared, so only the renumbered
// on-trail records hold positions within a descent. Aggregates are
// recomputed and written back.
func (s *Service) Rebuild(ctx context.Context, sessionID, userID string) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, started_at, completed_at, COALESCE(top_speed_kmh,0), COALESCE(avg_speed_kmh,0)
		FROM run_completions
		WHERE session_id=$1 AND user_id=$2 AND segment_type='on_trail'
		ORDER BY started_at
	`, sessionID, userID)
	if err != nil {
		return nil, err
	}
	var segments []segmentRow
	for rows.Next() {
		var seg segmentRow
		if err := rows.Scan(&seg.id, &seg.startedAt, &seg.endedAt, &seg.topSpeedKmh, &seg.avgSpeedKmh); err != nil {
			rows.Close()
			return nil, err
		}
		segments = append(segments, seg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := groupByGap(segments)

	if _, err := s.db.Exec(ctx, `DELETE FROM descent_sessions WHERE session_id=$1`, sessionID); err != nil {
		return nil, err
	}

	var sessions []Session
	for _, group := range groups {
		d := aggregate(group, sessionID, userID)
		_, err := s.db.Exec(ctx, `
			INSERT INTO descent_sessions (id, session_id, user_id, started_at, ended_at, total_segments, top_speed_kmh, avg_speed_kmh, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false)
		`, d.ID, d.SessionID, d.UserID, d.StartedAt, d.EndedAt, d.TotalSegments, d.TopSpeedKmh, d.AvgSpeedKmh)
		if err != nil {
			return nil, err
		}
		for seq, seg := range group {
			_, err := s.db.Exec(ctx, `
				UPDATE run_completions SET descent_session_id=$2, sequence_order=$3 WHERE id=$1
			`, seg.id, d.ID, seq)
			if err != nil {
				return nil, err
			}
		}
		_, err = s.db.Exec(ctx, `
			UPDATE run_completions SET descent_session_id=$2, sequence_order=NULL
			WHERE session_id=$1 AND segment_type='off_trail' AND started_at >= $3 AND started_at <= $4
		`, sessionID, d.ID, d.StartedAt, d.EndedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, d)
	}
	return sessions, nil
}

func groupByGap(segments []segmentRow) [][]segmentRow {
	var groups [][]segmentRow
	var current []segmentRow
	for _, seg := range segments {
		if len(current) > 0 && seg.startedAt.Sub(current[len(current)-1].endedAt) > descentGap {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func aggregate(group []segmentRow, sessionID, userID string) Session {
	tops := make([]float64, 0, len(group))
	avgs := make([]float64, 0, len(group))
	endedAt := group[0].endedAt
	for _, seg := range group {
		tops = append(tops, seg.topSpeedKmh)
		avgs = append(avgs, seg.avgSpeedKmh)
		if seg.endedAt.After(endedAt) {
			endedAt = seg.endedAt
		}
	}
	return Session{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		UserID:        userID,
		StartedAt:     group[0].startedAt,
		EndedAt:       endedAt,
		TotalSegments: len(group),
		TopSpeedKmh:   floats.Max(tops),
		AvgSpeedKmh:   stat.Mean(avgs, nil),
		IsActive:      false,
	}
}
