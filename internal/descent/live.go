package descent

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Live is the open descent of one tracking session. It hands out
// zero-based sequence numbers to segments as they are emitted and
// accumulates the speed stats that freeze when the descent closes.
// Sequence numbers reset when a new descent opens.
type Live struct {
	ID        string
	StartedAt time.Time

	seq     int
	lastEnd time.Time
	tops    []float64
	avgs    []float64
}

// OpenLive starts a descent lazily, on the first segment of the group.
func OpenLive(at time.Time) *Live {
	return &Live{ID: uuid.NewString(), StartedAt: at}
}

// Stamp assigns the next sequence order to one emitted segment and folds
// its stats into the descent aggregates.
func (l *Live) Stamp(endedAt time.Time, topSpeedKmh, avgSpeedKmh float64) int {
	seq := l.seq
	l.seq++
	if endedAt.After(l.lastEnd) {
		l.lastEnd = endedAt
	}
	l.tops = append(l.tops, topSpeedKmh)
	l.avgs = append(l.avgs, avgSpeedKmh)
	return seq
}

// Close freezes the descent into its aggregate row.
func (l *Live) Close(sessionID, userID string, at time.Time) Session {
	endedAt := at
	if l.lastEnd.After(endedAt) {
		endedAt = l.lastEnd
	}
	s := Session{
		ID:            l.ID,
		SessionID:     sessionID,
		UserID:        userID,
		StartedAt:     l.StartedAt,
		EndedAt:       endedAt,
		TotalSegments: l.seq,
	}
	if len(l.tops) > 0 {
		s.TopSpeedKmh = floats.Max(l.tops)
		s.AvgSpeedKmh = stat.Mean(l.avgs, nil)
	}
	return s
}
