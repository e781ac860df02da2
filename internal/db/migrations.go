package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: Bookings written before discounts existed carry an empty
	// discount; normalize to zero so decimal scanning succeeds.
	`UPDATE bookings SET discount = '0' WHERE discount IS NULL OR discount = ''`,

	// Migration 2: Upcoming-bookings view filters active bookings by end date.
	`CREATE INDEX IF NOT EXISTS idx_bookings_owner_status_end
	     ON bookings(owner_id, status, end_date)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
