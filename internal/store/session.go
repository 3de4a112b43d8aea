package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session represents one capture run.
type Session struct {
	ID        string     `json:"id"`
	DeviceID  int        `json:"device_id"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int        `json:"frames"`
	AvgFPS    float64    `json:"avg_fps"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new open session and returns it.
func (r *SessionRepository) Start(deviceID, width, height int) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Width:     width,
		Height:    height,
		StartedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, device_id, width, height, started_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.DeviceID, sess.Width, sess.Height, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Finish closes a session with its final frame count and average rate.
// Returns ErrNotFound if the session does not exist.
func (r *SessionRepository) Finish(id string, frames int, avgFPS float64) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, avg_fps = ? WHERE id = ?`,
		time.Now().UTC(), frames, avgFPS, id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Get retrieves a session by ID.
// Returns ErrNotFound if the session does not exist.
func (r *SessionRepository) Get(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, device_id, width, height, started_at, ended_at, frames, avg_fps
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// List retrieves all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, device_id, width, height, started_at, ended_at, frames, avg_fps
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and, through the foreign key, its positions.
// Returns ErrNotFound if the session does not exist.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.DeviceID, &sess.Width, &sess.Height,
		&sess.StartedAt, &ended, &sess.Frames, &sess.AvgFPS); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
