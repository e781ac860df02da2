package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Dates are YYYY-MM-DD text and money is
// decimal text, so comparisons and round trips are exact.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    owner_id    INTEGER NOT NULL REFERENCES users(id),
    name        TEXT NOT NULL,
    description TEXT,
    rent_price  TEXT NOT NULL DEFAULT '0',
    rent_type   TEXT NOT NULL DEFAULT 'per_day' CHECK (rent_type IN ('per_day', 'per_booking')),
    photo_url   TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_owner_created
    ON items(owner_id, created_at);

CREATE TABLE IF NOT EXISTS bookings (
    id              INTEGER PRIMARY KEY,
    owner_id        INTEGER NOT NULL REFERENCES users(id),
    item_id         INTEGER REFERENCES items(id) ON DELETE SET NULL,
    customer_name   TEXT NOT NULL,
    customer_mobile TEXT NOT NULL,
    start_date      TEXT NOT NULL,
    end_date        TEXT NOT NULL,
    rent_price      TEXT NOT NULL,
    discount        TEXT NOT NULL DEFAULT '0',
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'cancelled')),
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (end_date >= start_date)
);

CREATE INDEX IF NOT EXISTS idx_bookings_item_status
    ON bookings(item_id, status);

CREATE INDEX IF NOT EXISTS idx_bookings_owner_created
    ON bookings(owner_id, created_at);

CREATE TRIGGER IF NOT EXISTS trg_bookings_no_overlap_insert
BEFORE INSERT ON bookings
WHEN NEW.status = 'active' AND NEW.item_id IS NOT NULL
BEGIN
    SELECT RAISE(ABORT, 'booking overlaps an active booking')
    WHERE EXISTS (
        SELECT 1 FROM bookings b
        WHERE b.item_id = NEW.item_id
          AND b.status = 'active'
          AND b.start_date <= NEW.end_date
          AND b.end_date >= NEW.start_date
    );
END;

CREATE TRIGGER IF NOT EXISTS trg_bookings_no_overlap_update
BEFORE UPDATE OF item_id, start_date, end_date, status ON bookings
WHEN NEW.status = 'active' AND NEW.item_id IS NOT NULL
BEGIN
    SELECT RAISE(ABORT, 'booking overlaps an active booking')
    WHERE EXISTS (
        SELECT 1 FROM bookings b
        WHERE b.item_id = NEW.item_id
          AND b.id <> NEW.id
          AND b.status = 'active'
          AND b.start_date <= NEW.end_date
          AND b.end_date >= NEW.start_date
    );
END;

CREATE TABLE IF NOT EXISTS photos (
    key          TEXT PRIMARY KEY,
    data         BLOB NOT NULL,
    content_type TEXT NOT NULL,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
