package database

// Participants reference their event with ON DELETE CASCADE: deleting an event
// removes its registrations in the same statement. Quotas are 64-bit on both
// backends (SQLite INTEGER is already 8 bytes).

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id       BIGSERIAL PRIMARY KEY,
	title    TEXT    NOT NULL,
	date     DATE    NOT NULL,
	location TEXT    NOT NULL,
	quota    BIGINT  NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_events_title ON events (title);

CREATE TABLE IF NOT EXISTS participants (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT   NOT NULL,
	email    TEXT   NOT NULL UNIQUE,
	event_id BIGINT NOT NULL REFERENCES events (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS ix_participants_event_id ON participants (event_id);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	title    TEXT    NOT NULL,
	date     TEXT    NOT NULL,
	location TEXT    NOT NULL,
	quota    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_events_title ON events (title);

CREATE TABLE IF NOT EXISTS participants (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT    NOT NULL,
	email    TEXT    NOT NULL UNIQUE,
	event_id INTEGER NOT NULL REFERENCES events (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS ix_participants_event_id ON participants (event_id);
`
