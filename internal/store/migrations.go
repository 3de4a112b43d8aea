package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per capture run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			device_id INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			avg_fps REAL NOT NULL DEFAULT 0
		)`,

		// Landmark positions table - pixel coordinates per frame, hand and landmark
		`CREATE TABLE IF NOT EXISTS landmark_positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame_seq INTEGER NOT NULL,
			hand_index INTEGER NOT NULL,
			handedness TEXT NOT NULL DEFAULT '',
			landmark_index INTEGER NOT NULL CHECK(landmark_index BETWEEN 0 AND 20),
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			captured_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_landmark_positions_session_frame ON landmark_positions(session_id, frame_seq)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
