package checkin

import (
	"context"
	"database/sql"
	"time"
)

// History persists one snapshot per answered check-in question so the
// running score survives restarts.
type History struct {
	db *sql.DB
}

// NewHistory creates a History over an existing database connection.
func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

// RecordSnapshot stores the answer and the score it produced.
func (h *History) RecordSnapshot(ctx context.Context, qid string, value int, score float64) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO checkin_history (qid, answer_value, score, recorded_at) VALUES (?, ?, ?, ?)`,
		qid, value, score, time.Now().UTC(),
	)
	return err
}

// LastScore returns the most recently recorded score. ok is false when no
// check-in has ever been answered.
func (h *History) LastScore(ctx context.Context) (float64, bool, error) {
	var score float64
	err := h.db.QueryRowContext(ctx,
		`SELECT score FROM checkin_history ORDER BY id DESC LIMIT 1`,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// CompletedCount returns how many answers have ever been recorded.
func (h *History) CompletedCount(ctx context.Context) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkin_history`).Scan(&n)
	return n, err
}
