package store

import (
	"database/sql"
	"time"
)

// Position is one stored landmark of one hand in one frame.
type Position struct {
	SessionID     string    `json:"session_id"`
	FrameSeq      int64     `json:"frame_seq"`
	HandIndex     int       `json:"hand_index"`
	Handedness    string    `json:"handedness"`
	LandmarkIndex int       `json:"landmark_index"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
	CapturedAt    time.Time `json:"captured_at"`
}

// PositionRepository stores landmark positions.
type PositionRepository struct {
	db *sql.DB
}

// Positions returns the position repository for this store.
func (s *Store) Positions() *PositionRepository {
	return &PositionRepository{db: s.db}
}

// Append inserts positions in a single transaction.
func (r *PositionRepository) Append(positions []Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO landmark_positions
		 (session_id, frame_seq, hand_index, handedness, landmark_index, x, y, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.Exec(p.SessionID, p.FrameSeq, p.HandIndex, p.Handedness,
			p.LandmarkIndex, p.X, p.Y, p.CapturedAt.UTC()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByFrame returns the positions of one frame ordered by hand, then landmark.
func (r *PositionRepository) ListByFrame(sessionID string, frameSeq int64) ([]Position, error) {
	rows, err := r.db.Query(
		`SELECT session_id, frame_seq, hand_index, handedness, landmark_index, x, y, captured_at
		 FROM landmark_positions
		 WHERE session_id = ? AND frame_seq = ?
		 ORDER BY hand_index, landmark_index`,
		sessionID, frameSeq,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.SessionID, &p.FrameSeq, &p.HandIndex, &p.Handedness,
			&p.LandmarkIndex, &p.X, &p.Y, &p.CapturedAt); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

// Count returns the number of stored positions for a session.
func (r *PositionRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM landmark_positions WHERE session_id = ?`,
		sessionID,
	).Scan(&n)
	return n, err
}

// FrameCount returns the number of distinct frames with at least one hand.
func (r *PositionRepository) FrameCount(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(DISTINCT frame_seq) FROM landmark_positions WHERE session_id = ?`,
		sessionID,
	).Scan(&n)
	return n, err
}
