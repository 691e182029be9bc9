// Package journal is the durable upload queue: a SQLite-backed store of
// JournalEntry rows plus the single-row SystemStatus counters table, both
// sharing one connection pool and one acquisition-timeout convention.
package journal

const schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	filename      TEXT NOT NULL,
	local_path    TEXT NOT NULL,
	remote_path   TEXT NOT NULL,
	timestamp     DATETIME NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	max_attempts  INTEGER NOT NULL DEFAULT 5,
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT,
	file_hash     TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS system_status (
	id               INTEGER PRIMARY KEY CHECK (id = 1),
	last_heartbeat   DATETIME,
	uptime_seconds   INTEGER NOT NULL DEFAULT 0,
	captures         INTEGER NOT NULL DEFAULT 0,
	uploads_success  INTEGER NOT NULL DEFAULT 0,
	uploads_failed   INTEGER NOT NULL DEFAULT 0,
	crashes          INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO system_status (id) VALUES (1);
`
