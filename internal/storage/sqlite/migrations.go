package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    position INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_members_display_name ON members(display_name);

CREATE TABLE IF NOT EXISTS attendance_events (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('credit', 'duplicate')),
    recorded_at TEXT NOT NULL,
    duplicate_of TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_member_id ON attendance_events(member_id);

CREATE TABLE IF NOT EXISTS fingerprints (
    member_id TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    first_seen TEXT NOT NULL,
    PRIMARY KEY (member_id, fingerprint)
);

CREATE TABLE IF NOT EXISTS matrix_rows (
    day TEXT PRIMARY KEY,
    marks TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
