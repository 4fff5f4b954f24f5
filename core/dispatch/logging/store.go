package logging

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// LogRecord captures one setpoint dispatch and its outcome.
type LogRecord struct {
	Timestamp      time.Time       `json:"timestamp"`
	Kind           string          `json:"kind"`
	Topic          string          `json:"topic"`
	FrameID        string          `json:"frame_id"`
	Setpoint       json.RawMessage `json:"setpoint,omitempty"`
	Published      bool            `json:"published"`
	ModeEnabled    bool            `json:"mode_enabled"`
	ModeError      string          `json:"mode_error,omitempty"`
	MaxSubscribers int             `json:"max_subscribers"`
	Warnings       int             `json:"warnings"`
	Interrupted    bool            `json:"interrupted"`
	Error          string          `json:"error,omitempty"`
}

// LogQuery defines filters for retrieving records. Limit keeps only the most
// recent matches when positive.
type LogQuery struct {
	Start time.Time
	End   time.Time
	Kind  string
	Limit int
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

func (q LogQuery) match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

// finish orders records oldest first and applies the limit.
func (q LogQuery) finish(res []LogRecord) []LogRecord {
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[len(res)-q.Limit:]
	}
	return res
}
